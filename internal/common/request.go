package common

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the address of the POS terminal behind r: the first hop of
// X-Forwarded-For, then X-Real-IP, then the connection address. Header values
// that are not IP addresses are ignored.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); validIP(first) {
		return strings.TrimSpace(first)
	}
	if xr := r.Header.Get("X-Real-IP"); validIP(xr) {
		return strings.TrimSpace(xr)
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func validIP(s string) bool {
	_, err := netip.ParseAddr(strings.TrimSpace(s))
	return err == nil
}
