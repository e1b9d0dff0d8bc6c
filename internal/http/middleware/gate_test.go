package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tbourn/realty-dashboard/internal/webhooksig"
)

func TestGates_RunInOrderAndStopAtFirstRejection(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var calls []string
	pass := func(name string) Gate {
		return Gate{Name: name, Check: func(c *gin.Context) *Rejection {
			calls = append(calls, name)
			return nil
		}}
	}
	deny := Gate{Name: "deny", Check: func(c *gin.Context) *Rejection {
		calls = append(calls, "deny")
		return reject(http.StatusForbidden, codeForbidden, "nope")
	}}

	base := testutil.ToFloat64(gateRejections.WithLabelValues("deny", codeForbidden))

	handled := false
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", Gates(pass("first"), deny, pass("never")), func(c *gin.Context) { handled = true })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	if w.Code != http.StatusForbidden || handled {
		t.Fatalf("expected 403 and no handler call, got %d handled=%v", w.Code, handled)
	}
	if strings.Join(calls, ",") != "first,deny" {
		t.Fatalf("gates ran out of order or past rejection: %v", calls)
	}
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["code"] != codeForbidden || body["error"] != "nope" || body["request_id"] != w.Header().Get(requestIDHeader) {
		t.Fatalf("unexpected envelope: %v", body)
	}
	if got := testutil.ToFloat64(gateRejections.WithLabelValues("deny", codeForbidden)); got != base+1 {
		t.Fatalf("rejection counter = %v; want %v", got, base+1)
	}
}

// pipeline builds the webhook gate chain the way the router does.
func pipeline(t *testing.T, allowed []netip.Prefix, limiter *SlidingWindowLimiter, secret []byte, now func() time.Time) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	gates := []Gate{}
	if allowed != nil {
		gates = append(gates, IPFilter(allowed))
	}
	gates = append(gates, limiter.Gate(), Signature(secret, now))
	r.POST("/update-sheet", Gates(gates...), func(c *gin.Context) {
		body, _ := RawBody(c)
		c.Data(http.StatusOK, "application/json", body)
	})
	return r
}

func TestPipeline_IPDenialDoesNotConsumeRateLimit(t *testing.T) {
	clk := newFakeClock()
	lim := NewSlidingWindowLimiter(RateLimitOptions{Max: 1, Window: time.Hour, Now: clk.Now}, KeyByClientAddress())
	secret := []byte("s")
	r := pipeline(t, []netip.Prefix{netip.MustParsePrefix("10.0.0.0/24")}, lim, secret, clk.Now)

	body := []byte(`{"apartment_id":"A1","agency":"x"}`)
	ts := webhooksig.Timestamp(clk.Now())
	send := func(xff string, sig string) int {
		req := httptest.NewRequest(http.MethodPost, "/update-sheet", bytes.NewReader(body))
		req.Header.Set("X-Forwarded-For", xff)
		req.Header.Set(webhooksig.HeaderTimestamp, ts)
		req.Header.Set(webhooksig.HeaderSignature, sig)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("110.0.0.5", webhooksig.Sign(secret, ts, body)); code != http.StatusForbidden {
		t.Fatalf("outside allow-list -> %d; want 403", code)
	}
	if lim.Keys() != 0 {
		t.Fatalf("denied request must not reach the limiter")
	}
	// Bad signature still consumes the slot because rate limiting runs first.
	if code := send("10.0.0.5", "00"); code != http.StatusUnauthorized {
		t.Fatalf("bad signature -> %d; want 401", code)
	}
	if code := send("10.0.0.5", webhooksig.Sign(secret, ts, body)); code != http.StatusTooManyRequests {
		t.Fatalf("second request in window -> %d; want 429", code)
	}
}

func TestPipeline_ValidRequestReachesHandlerWithBody(t *testing.T) {
	clk := newFakeClock()
	lim := NewSlidingWindowLimiter(RateLimitOptions{Max: 10, Window: time.Hour, Now: clk.Now}, KeyByClientAddress())
	secret := []byte("s")
	r := pipeline(t, nil, lim, secret, clk.Now)

	body := []byte(`{"apartment_id":"A1"}`)
	ts := webhooksig.Timestamp(clk.Now())
	req := httptest.NewRequest(http.MethodPost, "/update-sheet", bytes.NewReader(body))
	req.Header.Set(webhooksig.HeaderTimestamp, ts)
	req.Header.Set(webhooksig.HeaderSignature, webhooksig.Sign(secret, ts, body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != string(body) {
		t.Fatalf("expected body echoed after verification, got %d %q", w.Code, w.Body.String())
	}
}
