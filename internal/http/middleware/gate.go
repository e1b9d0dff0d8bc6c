// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file defines the gate pipeline used in front of the webhook. A Gate is
// a named admission check; Gates runs a sequence of them in order and stops
// at the first rejection, so later (more expensive) checks never see traffic
// an earlier one refused. Order for the webhook is IP filter, rate limiter,
// then signature.
//
// Rejections are written with the same JSON envelope handlers use:
//
//	{ "request_id": "...", "code": "forbidden", "error": "forbidden: IP not allowed" }
package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// Rejection is the outcome of a failed gate check.
type Rejection struct {
	Status  int    // HTTP status
	Code    string // stable machine-readable code
	Message string // safe, human-readable reason
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%d %s: %s", r.Status, r.Code, r.Message)
}

// Gate is a single named admission check. Check returns nil to admit the
// request. It may set response headers (e.g. Retry-After) before rejecting.
type Gate struct {
	Name  string
	Check func(c *gin.Context) *Rejection
}

// Gates returns a middleware that runs gates in order. The first rejection is
// counted in webhook_rejections_total, logged at warn level and written as a
// JSON error; the chain is aborted.
func Gates(gates ...Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, g := range gates {
			rej := g.Check(c)
			if rej == nil {
				continue
			}
			gateRejections.WithLabelValues(g.Name, rej.Code).Inc()
			c.Set(rejectedByKey, g.Name)
			LoggerFrom(c).Warn().
				Str("gate", g.Name).
				Str("code", rej.Code).
				Str("client_addr", ClientAddress(c)).
				Msg("request rejected")
			abortJSON(c, rej.Status, rej.Code, rej.Message)
			return
		}
		c.Next()
	}
}

// abortJSON writes the standard error envelope and aborts the chain.
func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"error":      msg,
	})
}

// Stable codes shared with the handlers package.
const (
	codeUnauthorized    = "unauthorized"
	codeForbidden       = "forbidden"
	codeTooManyRequests = "too_many_requests"
	codePayloadTooLarge = "payload_too_large"
	codeBadRequest      = "bad_request"
	codeInternal        = "internal_error"
)

func reject(status int, code, msg string) *Rejection {
	return &Rejection{Status: status, Code: code, Message: msg}
}
