package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestAdminAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newEngine := func(secret string) *gin.Engine {
		r := gin.New()
		r.DELETE("/apartments", AdminAuth(secret), func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}
	do := func(r *gin.Engine, header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, "/apartments", nil)
		if header != "" {
			req.Header.Set(HeaderAdminSecret, header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	r := newEngine("top-secret")
	if w := do(r, "top-secret"); w.Code != http.StatusOK {
		t.Fatalf("correct secret -> %d", w.Code)
	}
	for _, bad := range []string{"", "top-secre", "top-secret ", "TOP-SECRET"} {
		if w := do(r, bad); w.Code != http.StatusUnauthorized {
			t.Fatalf("secret %q -> %d; want 401", bad, w.Code)
		}
	}

	unconfigured := newEngine("")
	w := do(unconfigured, "")
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), "admin secret is not configured") {
		t.Fatalf("unconfigured -> %d %s", w.Code, w.Body.String())
	}
	if w := do(unconfigured, "anything"); w.Code != http.StatusInternalServerError {
		t.Fatalf("unconfigured with header -> %d", w.Code)
	}
}

func TestTimeout_SetsDeadline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var (
		deadline time.Time
		has      bool
		ctx      context.Context
	)
	r.GET("/t", Timeout(50*time.Millisecond), func(c *gin.Context) {
		ctx = c.Request.Context()
		deadline, has = ctx.Deadline()
		c.Status(http.StatusOK)
	})

	start := time.Now()
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/t", nil))
	if !has || deadline.Before(start) || deadline.After(start.Add(time.Second)) {
		t.Fatalf("unexpected deadline %v (has=%v)", deadline, has)
	}
	if ctx.Err() == nil {
		t.Fatalf("context should be canceled once the handler returns")
	}
}
