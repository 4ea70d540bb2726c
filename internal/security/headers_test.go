package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHeadersSetOnPlainRequest(t *testing.T) {
	rr := httptest.NewRecorder()
	Headers{HSTS: true}.Middleware(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://pos.local/api/v1/settings", nil))

	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	require.Empty(t, rr.Header().Get("Strict-Transport-Security"))
}

func TestHeadersHSTSOnTLS(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "https://pos.local/api/v1/settings", nil)
	req.TLS = &tls.ConnectionState{}
	rr := httptest.NewRecorder()
	Headers{HSTS: true, HSTSMaxAge: 600}.Middleware(okHandler()).ServeHTTP(rr, req)

	require.Equal(t, "max-age=600", rr.Header().Get("Strict-Transport-Security"))
}

func TestHeadersHSTSBehindProxy(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://pos.local/api/v1/settings", nil)
	req.Header.Set("X-Forwarded-Proto", "HTTPS")
	rr := httptest.NewRecorder()
	Headers{HSTS: true}.Middleware(okHandler()).ServeHTTP(rr, req)

	require.Equal(t, "max-age=31536000", rr.Header().Get("Strict-Transport-Security"))
	require.Equal(t, "default-src 'none'; frame-ancestors 'none'", rr.Header().Get("Content-Security-Policy"))
}
