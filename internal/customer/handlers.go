package customer

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-lavado/internal/common"
)

// Handler exposes customer endpoints.
type Handler struct {
	Svc            *Service
	DefaultPerPage int
	MaxPerPage     int
}

// List handles GET /api/v1/customers?q=&page=&limit=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := common.ParsePage(r, h.defaultPerPage(), h.MaxPerPage)
	rows, total, err := h.Svc.List(r.Context(), r.URL.Query().Get("q"), page)
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []Customer{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       rows,
		"pagination": page.Meta(total),
	})
}

// Get handles GET /api/v1/customers/{document}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.Get(r.Context(), chi.URLParam(r, "document"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, c)
}

// Create handles POST /api/v1/customers.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	c, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, c)
}

// Update handles PUT /api/v1/customers/{document}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	c, err := h.Svc.Update(r.Context(), chi.URLParam(r, "document"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, c)
}

// Delete handles DELETE /api/v1/customers/{document}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), chi.URLParam(r, "document")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) defaultPerPage() int {
	if h.DefaultPerPage > 0 {
		return h.DefaultPerPage
	}
	return 20
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "customer not found", nil)
	case errors.Is(err, ErrDocumentTaken):
		common.JSONError(w, http.StatusConflict, "CONFLICT", "document already registered", nil)
	case errors.Is(err, ErrHasVehicles):
		common.JSONError(w, http.StatusConflict, "CUSTOMER_HAS_VEHICLES", "customer still owns vehicles", nil)
	default:
		common.WriteError(w, err)
	}
}
