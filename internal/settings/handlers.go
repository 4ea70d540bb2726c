package settings

import (
	"net/http"

	"github.com/noah-isme/backend-lavado/internal/common"
)

// Handler exposes the merchant settings endpoints.
type Handler struct {
	Svc *Service
}

// Get handles GET /api/v1/settings.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	current, err := h.Svc.Get(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, current)
}

// Update handles PATCH /api/v1/settings.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var patch Patch
	if err := common.DecodeJSON(r, &patch); err != nil {
		common.WriteError(w, err)
		return
	}
	next, err := h.Svc.Update(r.Context(), patch)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, next)
}

// Reset handles POST /api/v1/settings/reset.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	defaults, err := h.Svc.Reset(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, defaults)
}
