package simulator

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tbourn/realty-dashboard/internal/domain"
)

// API is the part of Client the runner needs.
type API interface {
	List(ctx context.Context) ([]domain.Apartment, error)
	Push(ctx context.Context, u Update) error
}

// Config controls a simulation run.
type Config struct {
	Interval    time.Duration // time between rounds
	Duration    time.Duration // total run time; 0 runs until ctx is done
	Workers     int           // concurrent pushes
	MaxPerRound int           // upper bound of apartments touched per round
	Seed        []Update      // pushed first when the dashboard is empty
}

// Stats summarizes a run.
type Stats struct {
	Rounds   int64
	Changes  int64 // status transitions drawn
	Updates  int64 // pushes accepted by the server
	Failures int64 // pushes that failed
}

// Runner executes rounds of random status changes against API.
type Runner struct {
	api  API
	cfg  Config
	rng  *rand.Rand
	log  zerolog.Logger
	pool *workerpool.WorkerPool

	updates  atomic.Int64
	failures atomic.Int64
}

// NewRunner applies defaults: 1.5s interval, 4 workers, up to 3 apartments
// per round. rng may be nil.
func NewRunner(api API, cfg Config, rng *rand.Rand, log zerolog.Logger) *Runner {
	if cfg.Interval <= 0 {
		cfg.Interval = 1500 * time.Millisecond
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxPerRound <= 0 {
		cfg.MaxPerRound = 3
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return &Runner{api: api, cfg: cfg, rng: rng, log: log}
}

// Run blocks until Duration elapses or ctx is canceled, then waits for
// in-flight pushes. Ending by deadline or cancellation is not an error.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	if r.cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Duration)
		defer cancel()
	}

	r.pool = workerpool.New(r.cfg.Workers)
	var st Stats

	if err := r.seedIfEmpty(ctx); err != nil {
		r.pool.StopWait()
		return r.stats(st), err
	}

	lim := rate.NewLimiter(rate.Every(r.cfg.Interval), 1)
	for {
		if err := lim.Wait(ctx); err != nil {
			// Wait fails fast when the deadline would pass before the next
			// token; either way the run is over.
			break
		}
		st.Rounds++
		changed, err := r.round(ctx)
		if err != nil && ctx.Err() == nil {
			r.log.Warn().Err(err).Msg("round skipped")
		}
		st.Changes += int64(changed)
	}

	r.pool.StopWait()
	return r.stats(st), nil
}

func (r *Runner) stats(st Stats) Stats {
	st.Updates = r.updates.Load()
	st.Failures = r.failures.Load()
	return st
}

func (r *Runner) seedIfEmpty(ctx context.Context) error {
	if len(r.cfg.Seed) == 0 {
		return nil
	}
	current, err := r.api.List(ctx)
	if err != nil {
		return err
	}
	if len(current) > 0 {
		return nil
	}
	r.log.Info().Int("apartments", len(r.cfg.Seed)).Msg("dashboard empty, pushing seed")
	for _, u := range r.cfg.Seed {
		r.submit(ctx, u, "seed")
	}
	r.pool.StopWait()
	r.pool = workerpool.New(r.cfg.Workers)
	return nil
}

// round picks up to MaxPerRound distinct apartments and pushes those whose
// drawn status differs from the current one. It returns the number of
// changes dispatched.
func (r *Runner) round(ctx context.Context) (int, error) {
	list, err := r.api.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(list) == 0 {
		return 0, errors.New("no apartments to update")
	}

	k := 1 + r.rng.IntN(r.cfg.MaxPerRound)
	changed := 0
	for _, i := range pickDistinct(r.rng, len(list), k) {
		a := list[i]
		next := NextStatus(r.rng, a.Status)
		if next == a.Status {
			continue
		}
		changed++
		r.log.Info().
			Str("apartment_id", a.ID).
			Str("from", string(a.Status)).
			Str("to", string(next)).
			Msg("status change")
		r.submit(ctx, UpdateFrom(a, next), "change")
	}
	return changed, nil
}

func (r *Runner) submit(ctx context.Context, u Update, kind string) {
	r.pool.Submit(func() {
		if err := r.api.Push(ctx, u); err != nil {
			// Pushes cut off by the end of the run are not failures.
			if ctx.Err() != nil {
				return
			}
			r.failures.Add(1)
			r.log.Error().Err(err).Str("apartment_id", u.ApartmentID).Str("kind", kind).Msg("push failed")
			return
		}
		r.updates.Add(1)
	})
}
