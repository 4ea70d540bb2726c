package common

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5/middleware"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newIdem(t *testing.T) (Idem, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Idem{R: client, TTL: time.Minute}, mr
}

func postInvoice(h http.Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", strings.NewReader(`{}`))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestIdemReplaysFirstResponse(t *testing.T) {
	idem, mr := newIdem(t)
	calls := 0
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		Data(w, http.StatusCreated, map[string]int{"numero_factura": 10000 + calls})
	}))

	first := postInvoice(h, "k-1")
	require.Equal(t, http.StatusCreated, first.Code)
	replay := postInvoice(h, "k-1")
	require.Equal(t, http.StatusCreated, replay.Code)
	require.Equal(t, "true", replay.Header().Get(ReplayedHeader))
	require.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	require.JSONEq(t, first.Body.String(), replay.Body.String())
	require.Equal(t, 1, calls)

	require.Equal(t, http.StatusCreated, postInvoice(h, "k-2").Code)
	require.Equal(t, http.StatusCreated, postInvoice(h, "").Code)
	require.Equal(t, 3, calls)

	mr.FastForward(2 * time.Minute)
	require.Empty(t, postInvoice(h, "k-1").Header().Get(ReplayedHeader))
	require.Equal(t, 4, calls)
}

func TestIdemRejectsConcurrentDuplicate(t *testing.T) {
	idem, mr := newIdem(t)
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", nil)
	require.NoError(t, mr.Set(idemKey(req, "busy"), pendingMarker))

	rr := postInvoice(h, "busy")
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, "IDEMPOTENT_REPLAY", decodeError(t, rr).Code)
}

func TestIdemReleasesKeyOnFailure(t *testing.T) {
	idem, _ := newIdem(t)
	status := http.StatusUnprocessableEntity
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}))

	require.Equal(t, http.StatusUnprocessableEntity, postInvoice(h, "retry").Code)
	status = http.StatusCreated
	require.Equal(t, http.StatusCreated, postInvoice(h, "retry").Code)
}

func TestIdemStoreUnavailable(t *testing.T) {
	idem, mr := newIdem(t)
	mr.Close()
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	require.Equal(t, http.StatusInternalServerError, postInvoice(h, "k").Code)
}

func TestIdemReleasesKeyOnPanic(t *testing.T) {
	idem, mr := newIdem(t)
	calls := 0
	h := middleware.Recoverer(idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			panic("printer offline")
		}
		w.WriteHeader(http.StatusCreated)
	})))

	require.Equal(t, http.StatusInternalServerError, postInvoice(h, "k1").Code)
	require.Empty(t, mr.Keys())

	retry := postInvoice(h, "k1")
	require.Equal(t, http.StatusCreated, retry.Code)
	require.Empty(t, retry.Header().Get(ReplayedHeader))
	require.Equal(t, 2, calls)
}

func TestIdemPendingKeyUsesShortTTL(t *testing.T) {
	idem, mr := newIdem(t)
	idem.PendingTTL = 5 * time.Second
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", nil)
	key := idemKey(req, "k1")

	var pending time.Duration
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		pending = mr.TTL(key)
		w.WriteHeader(http.StatusCreated)
	}))

	require.Equal(t, http.StatusCreated, postInvoice(h, "k1").Code)
	require.Equal(t, 5*time.Second, pending)
	require.Equal(t, time.Minute, mr.TTL(key))
}
