// Command simulator plays the spreadsheet automation against a running
// backend: every interval it picks a few apartments, draws their next status
// and pushes the changes through the signed webhook.
//
// Flags fall back to BACKEND_URL, API_BASE_PATH and WEBHOOK_SECRET, so the
// same .env used by the server works here.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/realty-dashboard/internal/simulator"
	"github.com/tbourn/realty-dashboard/internal/sysutil"
)

func main() {
	_ = godotenv.Load()

	var (
		backend  = flag.String("backend", sysutil.FirstNonEmpty(os.Getenv("BACKEND_URL"), "http://localhost:5000"), "backend root URL")
		basePath = flag.String("base-path", sysutil.FirstNonEmpty(os.Getenv("API_BASE_PATH"), "/api"), "API base path")
		secret   = flag.String("secret", os.Getenv("WEBHOOK_SECRET"), "webhook HMAC secret")
		interval = flag.Duration("interval", 1500*time.Millisecond, "time between rounds")
		duration = flag.Duration("duration", 2*time.Minute, "total run time (0 = until interrupted)")
		workers  = flag.Int("workers", 4, "concurrent pushes")
		perRound = flag.Int("max-per-round", 3, "max apartments changed per round")
		seedPath = flag.String("seed", "", "YAML file pushed when the dashboard is empty")
		pretty   = flag.Bool("pretty", sysutil.IsTruthy(os.Getenv("LOG_PRETTY")), "human-readable logs")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := sysutil.FirstNonEmpty(os.Getenv("LOG_LEVEL"), "info")
	if *verbose {
		level = "debug"
	}
	logger := sysutil.SetupLogger(os.Stderr, level, *pretty)

	if *secret == "" {
		log.Fatal().Msg("webhook secret is required (-secret or WEBHOOK_SECRET)")
	}

	var seed []simulator.Update
	if *seedPath != "" {
		var err error
		if seed, err = simulator.LoadSeed(*seedPath); err != nil {
			log.Fatal().Err(err).Str("path", *seedPath).Msg("load seed")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	base := strings.TrimRight(*backend, "/") + "/" + strings.Trim(*basePath, "/")
	client := simulator.NewClient(base, *secret)

	hctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err := client.Health(hctx)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Str("backend", base).Msg("backend not reachable")
	}
	log.Info().Str("backend", base).Dur("interval", *interval).Dur("duration", *duration).Msg("simulation started")

	runner := simulator.NewRunner(client, simulator.Config{
		Interval:    *interval,
		Duration:    *duration,
		Workers:     *workers,
		MaxPerRound: *perRound,
		Seed:        seed,
	}, nil, logger)

	st, err := runner.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("simulation failed")
	}
	log.Info().
		Int64("rounds", st.Rounds).
		Int64("changes", st.Changes).
		Int64("updates", st.Updates).
		Int64("failures", st.Failures).
		Msg("simulation finished")
}
