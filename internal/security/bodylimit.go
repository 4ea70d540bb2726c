package security

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/noah-isme/backend-lavado/internal/common"
)

// DefaultMaxBody bounds draft and invoice payloads when Max is unset.
const DefaultMaxBody int64 = 1 << 20

// BodyLimit rejects request bodies larger than Max bytes.
type BodyLimit struct {
	Max int64
}

func (b BodyLimit) max() int64 {
	if b.Max <= 0 {
		return DefaultMaxBody
	}
	return b.Max
}

// Middleware answers 413 PAYLOAD_TOO_LARGE before the handler decodes anything.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		limit := b.max()
		if r.ContentLength > limit {
			tooLarge(w)
			return
		}

		buf, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
		if err != nil && !errors.Is(err, io.EOF) {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
			return
		}
		if int64(len(buf)) > limit {
			tooLarge(w)
			return
		}
		_ = r.Body.Close()

		r.Body = io.NopCloser(bytes.NewReader(buf))
		r.ContentLength = int64(len(buf))
		next.ServeHTTP(w, r)
	})
}

func tooLarge(w http.ResponseWriter) {
	common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request entity too large", nil)
}
