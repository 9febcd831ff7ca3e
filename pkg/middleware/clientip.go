package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the originating client address. The first entry of
// X-Forwarded-For wins, then X-Real-IP, then the connection's RemoteAddr.
// Only trust this behind a proxy that overwrites those headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
