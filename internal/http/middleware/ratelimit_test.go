package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// fakeClock is a manually advanced clock for the limiter.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{t: time.Unix(1700000000, 0)} }

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func TestSlidingWindow_AllowsMaxThenRejects(t *testing.T) {
	clk := newFakeClock()
	l := NewSlidingWindowLimiter(RateLimitOptions{Max: 3, Window: time.Minute, Now: clk.Now}, nil)

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow("k"); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
		clk.Advance(10 * time.Second)
	}
	ok, wait := l.Allow("k")
	if ok {
		t.Fatalf("4th request inside window should be rejected")
	}
	// Oldest hit at t0; now t0+30s; it expires at t0+60s.
	if wait != 30*time.Second {
		t.Fatalf("wait = %v; want 30s", wait)
	}

	// Other keys are independent.
	if ok, _ := l.Allow("other"); !ok {
		t.Fatalf("independent key should be allowed")
	}
}

func TestSlidingWindow_SlidesRatherThanResets(t *testing.T) {
	clk := newFakeClock()
	l := NewSlidingWindowLimiter(RateLimitOptions{Max: 2, Window: time.Minute, Now: clk.Now}, nil)

	l.Allow("k") // t=0
	clk.Advance(40 * time.Second)
	l.Allow("k") // t=40
	clk.Advance(10 * time.Second) // t=50
	if ok, _ := l.Allow("k"); ok {
		t.Fatalf("window full at t=50")
	}
	clk.Advance(10 * time.Second) // t=60: first hit is exactly window old -> expired
	if ok, _ := l.Allow("k"); !ok {
		t.Fatalf("first hit should have slid out at t=60")
	}
	if ok, _ := l.Allow("k"); ok {
		t.Fatalf("hits at 40 and 60 still fill the window")
	}
}

func TestSlidingWindow_PruneStrategies(t *testing.T) {
	for _, prune := range []string{PruneLazy, PruneSweep} {
		t.Run(prune, func(t *testing.T) {
			clk := newFakeClock()
			l := NewSlidingWindowLimiter(RateLimitOptions{Max: 1, Window: time.Minute, Prune: prune, Now: clk.Now}, nil)
			l.Allow("a")
			l.Allow("b")
			clk.Advance(2 * time.Minute)
			l.Allow("c")

			switch prune {
			case PruneSweep:
				if l.Keys() != 1 {
					t.Fatalf("sweep should drop idle keys on every request, have %d", l.Keys())
				}
			case PruneLazy:
				if l.Keys() != 3 {
					t.Fatalf("lazy should keep idle keys until collection, have %d", l.Keys())
				}
			}
			// Both strategies admit "a" again since its hit expired.
			if ok, _ := l.Allow("a"); !ok {
				t.Fatalf("expired hit must not count")
			}
		})
	}
}

func TestSlidingWindow_LazyCollectsIdleKeys(t *testing.T) {
	clk := newFakeClock()
	l := NewSlidingWindowLimiter(RateLimitOptions{Max: 1, Window: time.Second, Now: clk.Now}, nil)
	l.Allow("idle")
	clk.Advance(time.Minute)

	for i := 0; i < gcEvery; i++ {
		l.Allow("busy")
	}
	l.mu.Lock()
	_, present := l.hits["idle"]
	l.mu.Unlock()
	if present {
		t.Fatalf("idle key should have been collected after %d lookups", gcEvery)
	}
}

func TestNewSlidingWindowLimiter_Defaults(t *testing.T) {
	l := NewSlidingWindowLimiter(RateLimitOptions{Max: 0, Window: time.Minute}, nil)
	if l.max != 1 || l.now == nil || l.sweep {
		t.Fatalf("unexpected defaults: max=%d sweep=%v", l.max, l.sweep)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	cases := map[time.Duration]int{
		0:                       1,
		-time.Second:            1,
		300 * time.Millisecond:  1,
		1500 * time.Millisecond: 2,
		15 * time.Minute:        900,
	}
	for in, want := range cases {
		if got := retryAfterSeconds(in); got != want {
			t.Fatalf("retryAfterSeconds(%v) = %d; want %d", in, got, want)
		}
	}
}

func TestSlidingWindow_Handler_101stIs429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	clk := newFakeClock()
	l := NewSlidingWindowLimiter(RateLimitOptions{Max: 100, Window: 15 * time.Minute, Now: clk.Now}, KeyByClientAddress())

	r := gin.New()
	r.Use(RequestID())
	r.POST("/hook", l.Handler(), func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(xff string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/hook", nil)
		req.Header.Set("X-Forwarded-For", xff)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 100; i++ {
		if w := send("198.51.100.1"); w.Code != http.StatusOK {
			t.Fatalf("request %d -> %d", i+1, w.Code)
		}
		clk.Advance(time.Second)
	}
	w := send("198.51.100.1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("101st request -> %d; want 429", w.Code)
	}
	// Oldest hit expires 15m after t0; now is t0+100s.
	if got := w.Header().Get("Retry-After"); got != "800" {
		t.Fatalf("Retry-After = %q; want 800", got)
	}
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["code"] != "too_many_requests" || body["error"] != "rate limit exceeded" || body["request_id"] == "" {
		t.Fatalf("unexpected body: %v", body)
	}

	// A different client is unaffected.
	if w := send("198.51.100.2"); w.Code != http.StatusOK {
		t.Fatalf("other client -> %d", w.Code)
	}
}

func TestSlidingWindow_ConcurrentNeverExceedsMax(t *testing.T) {
	l := NewSlidingWindowLimiter(RateLimitOptions{Max: 50, Window: time.Hour}, nil)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("shared"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if allowed != 50 {
		t.Fatalf("allowed = %d; want exactly 50", allowed)
	}
}
