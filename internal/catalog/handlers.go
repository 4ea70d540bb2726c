package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-lavado/internal/common"
)

// Handler exposes catalog endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// List handles GET /api/v1/services?kind=General|Adicional&category=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	kind, err := ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	category := r.URL.Query().Get("category")
	var rows any
	if kind == KindGeneral {
		list, err := h.service.ListGeneral(r.Context(), category)
		if err != nil {
			h.writeError(w, err)
			return
		}
		if list == nil {
			list = []GeneralService{}
		}
		rows = list
	} else {
		list, err := h.service.ListAdditional(r.Context(), category)
		if err != nil {
			h.writeError(w, err)
			return
		}
		if list == nil {
			list = []AdditionalService{}
		}
		rows = list
	}
	common.Data(w, http.StatusOK, rows)
}

// Get handles GET /api/v1/services/{kind}/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	kind, id, err := pathParams(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var svc any
	if kind == KindGeneral {
		svc, err = h.service.GetGeneral(r.Context(), id)
	} else {
		svc, err = h.service.GetAdditional(r.Context(), id)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, svc)
}

// Create handles POST /api/v1/services. The body's tipo_servicio selects the family.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := common.DecodeJSON(r, &raw); err != nil {
		common.WriteError(w, err)
		return
	}
	var head struct {
		Kind string `json:"tipo_servicio"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		common.WriteError(w, common.BadRequest("invalid payload"))
		return
	}
	kind, err := ParseKind(head.Kind)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var created any
	if kind == KindGeneral {
		var in GeneralInput
		if err := json.Unmarshal(raw, &in); err != nil {
			common.WriteError(w, common.BadRequest("invalid payload"))
			return
		}
		created, err = h.service.CreateGeneral(r.Context(), in)
	} else {
		var in AdditionalInput
		if err := json.Unmarshal(raw, &in); err != nil {
			common.WriteError(w, common.BadRequest("invalid payload"))
			return
		}
		created, err = h.service.CreateAdditional(r.Context(), in)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, created)
}

// Update handles PUT /api/v1/services/{kind}/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	kind, id, err := pathParams(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var updated any
	if kind == KindGeneral {
		var in GeneralInput
		if err := common.DecodeJSON(r, &in); err != nil {
			common.WriteError(w, err)
			return
		}
		updated, err = h.service.UpdateGeneral(r.Context(), id, in)
	} else {
		var in AdditionalInput
		if err := common.DecodeJSON(r, &in); err != nil {
			common.WriteError(w, err)
			return
		}
		updated, err = h.service.UpdateAdditional(r.Context(), id, in)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/services/{kind}/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	kind, id, err := pathParams(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), kind, id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Line handles GET /api/v1/services/{kind}/{id}/line?category=&group= and
// returns the draft line the service would add for that vehicle.
func (h *Handler) Line(w http.ResponseWriter, r *http.Request) {
	kind, id, err := pathParams(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var group int
	if raw := r.URL.Query().Get("group"); raw != "" {
		if group, err = strconv.Atoi(raw); err != nil || group < 0 {
			h.writeError(w, common.BadRequest("invalid group"))
			return
		}
	}
	line, err := h.service.LineFor(r.Context(), kind, id, r.URL.Query().Get("category"), group)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, line)
}

func pathParams(r *http.Request) (Kind, int64, error) {
	kind, err := ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		return "", 0, err
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return "", 0, common.BadRequest("invalid service id")
	}
	return kind, id, nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrNameTaken):
		common.JSONError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, ErrUnknownKind):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), map[string]string{"kind": "oneof=General Adicional"})
	case errors.Is(err, ErrPriceUnavailable), errors.Is(err, ErrNotOffered):
		common.JSONError(w, http.StatusUnprocessableEntity, "SERVICE_UNAVAILABLE_FOR_VEHICLE", err.Error(), nil)
	case errors.Is(err, ErrIDsExhausted):
		common.JSONError(w, http.StatusConflict, "SERVICE_IDS_EXHAUSTED", err.Error(), nil)
	default:
		common.WriteError(w, err)
	}
}
