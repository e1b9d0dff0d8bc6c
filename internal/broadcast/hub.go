// Package broadcast fans full apartment snapshots out to connected dashboard
// clients.
//
// Every subscriber owns a single-slot mailbox. Publish never blocks: when a
// subscriber has not yet consumed its previous snapshot, that snapshot is
// replaced by the newer one. Snapshots carry the full state, so a slow client
// only ever skips intermediate states and still converges on the latest.
package broadcast

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/tbourn/realty-dashboard/internal/domain"
)

// EventName is the event type clients listen for.
const EventName = "apartment-update"

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("broadcast hub closed")

var (
	subscribersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "broadcast_subscribers",
		Help: "Currently connected snapshot subscribers.",
	})
	snapshotsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_snapshots_total",
		Help: "Snapshots published to all subscribers.",
	})
	droppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_dropped_total",
		Help: "Undelivered snapshots replaced by a newer one.",
	})
)

func init() {
	prometheus.MustRegister(subscribersGauge, snapshotsTotal, droppedTotal)
}

// Subscriber is one connected client.
type Subscriber struct {
	ID string

	ch   chan []domain.Apartment
	done chan struct{}
	once sync.Once
}

// C delivers snapshots. It is never closed; select on Done as well.
func (s *Subscriber) C() <-chan []domain.Apartment { return s.ch }

// Done is closed when the subscriber is removed from the hub.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

func (s *Subscriber) close() { s.once.Do(func() { close(s.done) }) }

func (s *Subscriber) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Hub is safe for concurrent use. The zero value is not usable; call NewHub.
type Hub struct {
	subs   *xsync.MapOf[string, *Subscriber]
	closed atomic.Bool
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: xsync.NewMapOf[string, *Subscriber]()}
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() (*Subscriber, error) {
	if h.closed.Load() {
		return nil, ErrClosed
	}
	s := &Subscriber{
		ID:   uuid.NewString(),
		ch:   make(chan []domain.Apartment, 1),
		done: make(chan struct{}),
	}
	h.subs.Store(s.ID, s)
	subscribersGauge.Inc()

	// Close may have run between the check and the store.
	if h.closed.Load() {
		h.Unsubscribe(s)
		return nil, ErrClosed
	}
	return s, nil
}

// Unsubscribe removes s and closes its Done channel. It is idempotent.
func (h *Hub) Unsubscribe(s *Subscriber) {
	if s == nil {
		return
	}
	if _, ok := h.subs.LoadAndDelete(s.ID); ok {
		subscribersGauge.Dec()
	}
	s.close()
}

// Publish delivers snapshot to every current subscriber without blocking.
func (h *Hub) Publish(snapshot []domain.Apartment) {
	snapshotsTotal.Inc()
	h.subs.Range(func(_ string, s *Subscriber) bool {
		h.Send(s, snapshot)
		return true
	})
}

// Send delivers snapshot to a single subscriber, replacing any snapshot it
// has not consumed yet.
func (h *Hub) Send(s *Subscriber, snapshot []domain.Apartment) {
	for !s.closed() {
		select {
		case s.ch <- snapshot:
			return
		default:
		}
		select {
		case <-s.ch:
			droppedTotal.Inc()
		default:
		}
	}
}

// Offer delivers snapshot to s only when its slot is empty and reports
// whether it did. Use it for a snapshot read before s could have received a
// Publish: a pending published snapshot is at least as new and is kept.
func (h *Hub) Offer(s *Subscriber, snapshot []domain.Apartment) bool {
	if s.closed() {
		return false
	}
	select {
	case s.ch <- snapshot:
		return true
	default:
		return false
	}
}

// Len reports the number of connected subscribers.
func (h *Hub) Len() int { return h.subs.Size() }

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.closed.Store(true)
	h.subs.Range(func(_ string, s *Subscriber) bool {
		h.Unsubscribe(s)
		return true
	})
}
