package security

import (
	"net/http"
	"strconv"
	"strings"
)

const defaultHSTSMaxAge = 365 * 24 * 60 * 60

// apiCSP forbids every content type: the API only answers JSON.
const apiCSP = "default-src 'none'; frame-ancestors 'none'"

// Headers attaches the response headers every API reply carries. Responses
// hold prices and customer data, so nothing is cacheable.
type Headers struct {
	HSTS       bool
	HSTSMaxAge int
}

// Middleware sets the static headers and, when enabled, HSTS on requests
// that arrived over TLS directly or through a proxy reporting https.
func (h Headers) Middleware(next http.Handler) http.Handler {
	maxAge := h.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hsts := "max-age=" + strconv.Itoa(maxAge)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Content-Security-Policy", apiCSP)
		headers.Set("Referrer-Policy", "no-referrer")
		headers.Set("Cache-Control", "no-store")
		if h.HSTS && secure(r) {
			headers.Set("Strict-Transport-Security", hsts)
		}
		next.ServeHTTP(w, r)
	})
}

func secure(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
