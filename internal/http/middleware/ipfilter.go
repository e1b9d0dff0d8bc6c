// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the IP allow-list gate and the client address
// resolution shared with the rate limiter.
package middleware

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"
)

// ClientAddress returns the caller's address: the first X-Forwarded-For entry
// when present, otherwise the connection's remote IP. The service is expected
// to run behind a proxy that sets X-Forwarded-For.
func ClientAddress(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	return c.RemoteIP()
}

// IPFilter returns a gate that admits only clients whose address falls inside
// one of allowed. IPv4-mapped IPv6 addresses are compared as IPv4. An address
// that does not parse is refused.
func IPFilter(allowed []netip.Prefix) Gate {
	return Gate{
		Name: "ip_filter",
		Check: func(c *gin.Context) *Rejection {
			if ipAllowed(ClientAddress(c), allowed) {
				return nil
			}
			return reject(http.StatusForbidden, codeForbidden, "forbidden: IP not allowed")
		},
	}
}

func ipAllowed(raw string, allowed []netip.Prefix) bool {
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return false
	}
	addr = addr.Unmap().WithZone("")
	for _, p := range allowed {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
