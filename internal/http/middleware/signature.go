// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the webhook signature gate. The request body is read
// once, verified against X-Webhook-Signature / X-Webhook-Timestamp, then put
// back on the request and cached in the Gin context so the handler validates
// exactly the bytes that were signed.
package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/realty-dashboard/internal/webhooksig"
)

// Signature returns a gate that verifies the HMAC signature of the request.
// now is injectable for tests; nil means time.Now.
func Signature(secret []byte, now func() time.Time) Gate {
	if now == nil {
		now = time.Now
	}
	return Gate{
		Name: "signature",
		Check: func(c *gin.Context) *Rejection {
			sig := c.GetHeader(webhooksig.HeaderSignature)
			ts := c.GetHeader(webhooksig.HeaderTimestamp)
			if sig == "" || ts == "" {
				return reject(http.StatusUnauthorized, codeUnauthorized, webhooksig.ErrMissing.Error())
			}

			body, err := RawBody(c)
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					return reject(http.StatusRequestEntityTooLarge, codePayloadTooLarge, "request body too large")
				}
				return reject(http.StatusBadRequest, codeBadRequest, "could not read request body")
			}

			if err := webhooksig.Verify(secret, sig, ts, body, now()); err != nil {
				return reject(http.StatusUnauthorized, codeUnauthorized, err.Error())
			}
			return nil
		},
	}
}

// RawBody returns the request body bytes, reading them at most once per
// request. The bytes are cached under gin.BodyBytesKey and the request body
// is replaced with a fresh reader over them.
func RawBody(c *gin.Context) ([]byte, error) {
	if v, ok := c.Get(gin.BodyBytesKey); ok {
		if b, ok := v.([]byte); ok {
			return b, nil
		}
	}
	if c.Request.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	_ = c.Request.Body.Close()
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	c.Set(gin.BodyBytesKey, body)
	return body, nil
}
