// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access logger. It never logs
// bodies, masks credential headers (the webhook signature and the admin
// secret among them) and scrubs secrets that leak into query strings.
//
// Usage:
//
//	r := gin.New()
//	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
//	    MaskHeaders: []string{"X-Forwarded-Authorization"},
//	}))
package middleware

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/realty-dashboard/internal/webhooksig"
)

const redacted = "[REDACTED]"

// RedactOptions configures additional scrub behavior for RedactingLogger.
//
// MaskHeaders lists extra header names whose values are replaced with
// "[REDACTED]". MaskQueryKeys lists extra query parameter names treated the
// same way. Both match case-insensitively and extend the built-in sets.
type RedactOptions struct {
	MaskHeaders   []string
	MaskQueryKeys []string
}

var (
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)

	defaultMaskedHeaders = []string{
		"Authorization", "Cookie", "Set-Cookie",
		webhooksig.HeaderSignature, HeaderAdminSecret,
	}
	// Query keys containing any of these fragments are masked.
	defaultMaskedQueryFragments = []string{"secret", "token", "signature", "password", "key"}
)

// redactor holds the compiled mask sets for one RedactingLogger.
type redactor struct {
	headers   map[string]struct{}
	queryKeys map[string]struct{}
}

func newRedactor(opts RedactOptions) *redactor {
	r := &redactor{headers: map[string]struct{}{}, queryKeys: map[string]struct{}{}}
	for _, h := range append(defaultMaskedHeaders, opts.MaskHeaders...) {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			r.headers[h] = struct{}{}
		}
	}
	for _, k := range opts.MaskQueryKeys {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			r.queryKeys[k] = struct{}{}
		}
	}
	return r
}

func (r *redactor) maskQueryKey(k string) bool {
	k = strings.ToLower(k)
	if _, ok := r.queryKeys[k]; ok {
		return true
	}
	for _, frag := range defaultMaskedQueryFragments {
		if strings.Contains(k, frag) {
			return true
		}
	}
	return false
}

// query rewrites raw with sensitive values masked and email addresses
// scrubbed. Keys are emitted in sorted order. An unparsable query is
// scrubbed as a whole.
func (r *redactor) query(raw string) string {
	if raw == "" {
		return ""
	}
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return truncate(emailRE.ReplaceAllString(raw, "[REDACTED:email]"), maxQueryLogLength)
	}
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range vals[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(k)
			b.WriteByte('=')
			if r.maskQueryKey(k) {
				b.WriteString(redacted)
			} else {
				b.WriteString(emailRE.ReplaceAllString(v, "[REDACTED:email]"))
			}
		}
	}
	return truncate(b.String(), maxQueryLogLength)
}

func (r *redactor) header(name string, vv []string) string {
	if _, ok := r.headers[strings.ToLower(name)]; ok {
		return redacted
	}
	return emailRE.ReplaceAllString(strings.Join(vv, ", "), "[REDACTED:email]")
}

// RedactingLogger returns a Gin middleware that emits one structured access
// log line per request and attaches a request-scoped logger for LoggerFrom.
//
// The line is logged at INFO, WARN for 4xx and ERROR for 5xx. When a webhook
// gate refused the request, its name is included as "rejected_by". For the
// event stream, latency is the lifetime of the connection.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	red := newRedactor(opts)

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		rid, _ := c.Get(requestIDKey)
		scoped := log.With().
			Str("request_id", asString(rid)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("client_addr", ClientAddress(c)).
			Logger()
		c.Set(loggerKey, &scoped)

		c.Next()

		status := c.Writer.Status()
		reqID := c.Writer.Header().Get(requestIDHeader)
		if reqID == "" {
			reqID = c.GetHeader(requestIDHeader)
		}

		var ev *zerolog.Event
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		default:
			ev = log.Info()
		}

		headers := zerolog.Dict()
		for k, vv := range c.Request.Header {
			headers.Str(k, red.header(k, vv))
		}
		if gate := c.GetString(rejectedByKey); gate != "" {
			ev.Str("rejected_by", gate)
		}

		ev.
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", red.query(c.Request.URL.RawQuery)).
			Str("client_addr", ClientAddress(c)).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Dict("headers", headers).
			Msg("http_request")
	}
}
