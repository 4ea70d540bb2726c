package promotion

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-lavado/internal/common"
)

// Handler exposes promotion endpoints.
type Handler struct {
	Svc *Service
}

// List handles GET /api/v1/promotions.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Svc.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, nonNil(rows))
}

// Active handles GET /api/v1/promotions/active. The first entry is the
// suggested discount for a new invoice.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Svc.Active(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, nonNil(rows))
}

// Get handles GET /api/v1/promotions/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := promotionID(w, r)
	if !ok {
		return
	}
	p, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, p)
}

// Create handles POST /api/v1/promotions.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	p, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, p)
}

// Update handles PUT /api/v1/promotions/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := promotionID(w, r)
	if !ok {
		return
	}
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	p, err := h.Svc.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, p)
}

// Delete handles DELETE /api/v1/promotions/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := promotionID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func promotionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid promotion id", nil)
		return 0, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrPromotionNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "promotion not found", nil)
	case errors.Is(err, ErrPromotionInactive):
		common.JSONError(w, http.StatusUnprocessableEntity, "PROMOTION_INACTIVE", "promotion is not active", nil)
	default:
		common.WriteError(w, err)
	}
}

func nonNil(rows []Promotion) []Promotion {
	if rows == nil {
		return []Promotion{}
	}
	return rows
}
