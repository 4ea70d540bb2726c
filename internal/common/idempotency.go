package common

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// IdempotencyHeader carries the client supplied request key.
const IdempotencyHeader = "Idempotency-Key"

// ReplayedHeader marks a response served from the idempotency store.
const ReplayedHeader = "Idempotent-Replayed"

const pendingMarker = "pending"

const defaultPendingTTL = 30 * time.Second

// Idem provides an Idempotency-Key middleware backed by Redis. A key is bound
// to the method and path it was first used with. The first successful
// response is stored for TTL and replayed to retries; a retry that arrives
// while the first request is still running gets 409. While running, the key
// only lives for PendingTTL, so a crashed instance cannot hold it for long.
type Idem struct {
	R          *redis.Client
	TTL        time.Duration
	PendingTTL time.Duration
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// arbitrary header values map to fixed-size Redis keys
func idemKey(r *http.Request, key string) string {
	sum := sha256.Sum256([]byte(r.Method + " " + r.URL.Path + " " + key))
	return "idem:" + hex.EncodeToString(sum[:])
}

// Middleware enforces idempotency for write endpoints. Requests without the
// header pass through untouched. The key is released whenever no response
// could be stored: error statuses, a panicking handler or a failed write to
// Redis.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(IdempotencyHeader)
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := idemKey(r, header)
		ok, err := i.R.SetNX(r.Context(), key, pendingMarker, orDuration(i.PendingTTL, defaultPendingTTL)).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
			return
		}
		if !ok {
			i.replay(w, r, key)
			return
		}

		stored := false
		defer func() {
			// also runs while a handler panic unwinds
			if !stored {
				i.release(r.Context(), key)
			}
		}()

		rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if rec.status >= http.StatusBadRequest {
			return
		}
		stored = i.store(r.Context(), key, storedResponse{
			Status:      rec.status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		}) == nil
	})
}

func (i Idem) store(ctx context.Context, key string, resp storedResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	return i.R.Set(ctx, key, data, orDuration(i.TTL, 24*time.Hour)).Err()
}

func (i Idem) release(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	_ = i.R.Del(ctx, key).Err()
}

func orDuration(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

func (i Idem) replay(w http.ResponseWriter, r *http.Request, key string) {
	raw, err := i.R.Get(r.Context(), key).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
		return
	}
	var prev storedResponse
	if err != nil || string(raw) == pendingMarker || json.Unmarshal(raw, &prev) != nil {
		JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "request with this key is still in progress", nil)
		return
	}
	if prev.ContentType != "" {
		w.Header().Set("Content-Type", prev.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(prev.Status)
	_, _ = w.Write(prev.Body)
}

type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(p []byte) (int, error) {
	rw.body.Write(p)
	return rw.ResponseWriter.Write(p)
}
