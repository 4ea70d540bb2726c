package vehicle

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-lavado/internal/common"
)

// Handler exposes vehicle endpoints.
type Handler struct {
	Svc *Service
}

// List handles GET /api/v1/vehicles[?customer=].
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Svc.List(r.Context(), r.URL.Query().Get("customer"))
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []Vehicle{}
	}
	common.Data(w, http.StatusOK, rows)
}

// ByCustomer handles GET /api/v1/customers/{document}/vehicles.
func (h *Handler) ByCustomer(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Svc.List(r.Context(), chi.URLParam(r, "document"))
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []Vehicle{}
	}
	common.Data(w, http.StatusOK, rows)
}

// Get handles GET /api/v1/vehicles/{plate}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.Svc.Resolve(r.Context(), chi.URLParam(r, "plate"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, v)
}

// Create handles POST /api/v1/vehicles.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	v, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, v)
}

// Update handles PUT /api/v1/vehicles/{plate}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	v, err := h.Svc.Update(r.Context(), chi.URLParam(r, "plate"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, v)
}

// Delete handles DELETE /api/v1/vehicles/{plate}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), chi.URLParam(r, "plate")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "vehicle not found", nil)
	case errors.Is(err, ErrPlateTaken):
		common.JSONError(w, http.StatusConflict, "CONFLICT", "plate already registered", nil)
	case errors.Is(err, ErrUnknownCustomer):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "customer not registered", map[string]string{"documento_cliente": "exists"})
	default:
		common.WriteError(w, err)
	}
}
