// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file guards the administrative routes with a shared secret sent in
// X-Admin-Secret.
package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HeaderAdminSecret carries the administrative shared secret.
const HeaderAdminSecret = "X-Admin-Secret"

// AdminAuth rejects requests whose X-Admin-Secret does not match secret. The
// comparison is constant-time over SHA-256 digests so neither content nor
// length leaks. With an empty secret every request fails with 500: the
// routes stay closed until the operator configures ADMIN_SECRET.
func AdminAuth(secret string) gin.HandlerFunc {
	want := sha256.Sum256([]byte(secret))
	return func(c *gin.Context) {
		if secret == "" {
			LoggerFrom(c).Error().Msg("admin route called but ADMIN_SECRET is not configured")
			abortJSON(c, http.StatusInternalServerError, codeInternal, "admin secret is not configured")
			return
		}
		got := sha256.Sum256([]byte(c.GetHeader(HeaderAdminSecret)))
		if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
			abortJSON(c, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
			return
		}
		c.Next()
	}
}
