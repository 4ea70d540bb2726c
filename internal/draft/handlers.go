package draft

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-lavado/internal/catalog"
	"github.com/noah-isme/backend-lavado/internal/common"
	"github.com/noah-isme/backend-lavado/internal/invoice"
	"github.com/noah-isme/backend-lavado/internal/lock"
	"github.com/noah-isme/backend-lavado/internal/pricing"
	"github.com/noah-isme/backend-lavado/internal/promotion"
	"github.com/noah-isme/backend-lavado/internal/vehicle"
)

// Handler exposes draft endpoints under /api/v1/drafts.
type Handler struct {
	Svc *Service
}

// Routes mounts the draft endpoints. finalize wraps the finalize endpoint,
// typically with idempotency and rate limiting.
func (h *Handler) Routes(r chi.Router, finalize func(http.Handler) http.Handler) {
	r.Post("/", h.Start)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Discard)
		r.Put("/general", h.SelectGeneral)
		r.Post("/additional", h.ToggleAdditional)
		r.Put("/custom", h.AddCustom)
		r.Patch("/lines/{serviceID}", h.SetQuantity)
		r.Delete("/lines/{serviceID}", h.RemoveLine)
		r.Post("/promotion", h.SelectPromotion)
		r.Delete("/promotion", h.ClearPromotion)
		r.Put("/payment", h.SetPaymentMethod)
		if finalize != nil {
			r.With(finalize).Post("/finalize", h.Finalize)
		} else {
			r.Post("/finalize", h.Finalize)
		}
	})
}

// Start handles POST /api/v1/drafts.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Plate string `json:"placa" validate:"required,min=3,max=10"`
	}
	if err := common.DecodeJSON(r, &body); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := common.ValidateStruct(body); err != nil {
		common.WriteError(w, err)
		return
	}
	sess, err := h.Svc.Start(r.Context(), body.Plate)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, sess)
}

// Get handles GET /api/v1/drafts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}
	sess, err := h.Svc.Get(r.Context(), id)
	respond(w, sess, err)
}

// Discard handles DELETE /api/v1/drafts/{id}.
func (h *Handler) Discard(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Discard(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type serviceBody struct {
	ServiceID int64 `json:"id_servicio" validate:"gt=0"`
}

// SelectGeneral handles PUT /api/v1/drafts/{id}/general.
func (h *Handler) SelectGeneral(w http.ResponseWriter, r *http.Request) {
	id, body, ok := decodeWithID[serviceBody](w, r)
	if !ok {
		return
	}
	sess, err := h.Svc.SelectGeneral(r.Context(), id, body.ServiceID)
	respond(w, sess, err)
}

// ToggleAdditional handles POST /api/v1/drafts/{id}/additional.
func (h *Handler) ToggleAdditional(w http.ResponseWriter, r *http.Request) {
	id, body, ok := decodeWithID[serviceBody](w, r)
	if !ok {
		return
	}
	sess, err := h.Svc.ToggleAdditional(r.Context(), id, body.ServiceID)
	respond(w, sess, err)
}

// AddCustom handles PUT /api/v1/drafts/{id}/custom.
func (h *Handler) AddCustom(w http.ResponseWriter, r *http.Request) {
	id, body, ok := decodeWithID[CustomInput](w, r)
	if !ok {
		return
	}
	sess, err := h.Svc.AddCustom(r.Context(), id, body)
	respond(w, sess, err)
}

// SetQuantity handles PATCH /api/v1/drafts/{id}/lines/{serviceID}. The
// quantity may be sent as a number or as typed text such as "2,5".
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	id, body, ok := decodeWithID[struct {
		Quantity json.RawMessage `json:"cantidad"`
	}](w, r)
	if !ok {
		return
	}
	serviceID, ok := lineID(w, r)
	if !ok {
		return
	}
	sess, err := h.Svc.SetQuantity(r.Context(), id, serviceID, rawQuantity(body.Quantity))
	respond(w, sess, err)
}

// RemoveLine handles DELETE /api/v1/drafts/{id}/lines/{serviceID}.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}
	serviceID, ok := lineID(w, r)
	if !ok {
		return
	}
	sess, err := h.Svc.RemoveLine(r.Context(), id, serviceID)
	respond(w, sess, err)
}

// SelectPromotion handles POST /api/v1/drafts/{id}/promotion. Selecting the
// current promotion again clears it.
func (h *Handler) SelectPromotion(w http.ResponseWriter, r *http.Request) {
	id, body, ok := decodeWithID[struct {
		PromotionID int64 `json:"id_promocion" validate:"gt=0"`
	}](w, r)
	if !ok {
		return
	}
	sess, err := h.Svc.SelectPromotion(r.Context(), id, body.PromotionID)
	respond(w, sess, err)
}

// ClearPromotion handles DELETE /api/v1/drafts/{id}/promotion.
func (h *Handler) ClearPromotion(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}
	sess, err := h.Svc.ClearPromotion(r.Context(), id)
	respond(w, sess, err)
}

// SetPaymentMethod handles PUT /api/v1/drafts/{id}/payment.
func (h *Handler) SetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	id, body, ok := decodeWithID[struct {
		PaymentMethod string `json:"medio_pago" validate:"required"`
	}](w, r)
	if !ok {
		return
	}
	sess, err := h.Svc.SetPaymentMethod(r.Context(), id, body.PaymentMethod)
	respond(w, sess, err)
}

// Finalize handles POST /api/v1/drafts/{id}/finalize.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	id, ok := draftID(w, r)
	if !ok {
		return
	}
	inv, err := h.Svc.Finalize(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, inv)
}

func respond(w http.ResponseWriter, sess Session, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, sess)
}

func decodeWithID[T any](w http.ResponseWriter, r *http.Request) (uuid.UUID, T, bool) {
	var body T
	id, ok := draftID(w, r)
	if !ok {
		return id, body, false
	}
	if err := common.DecodeJSON(r, &body); err != nil {
		common.WriteError(w, err)
		return id, body, false
	}
	if err := common.ValidateStruct(body); err != nil {
		common.WriteError(w, err)
		return id, body, false
	}
	return id, body, true
}

func draftID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid draft id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func lineID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "serviceID"), 10, 64)
	if err != nil || id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid service id", nil)
		return 0, false
	}
	return id, true
}

func rawQuantity(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "DRAFT_NOT_FOUND", "draft not found or expired", nil)
	case errors.Is(err, ErrEmpty):
		common.JSONError(w, http.StatusUnprocessableEntity, "DRAFT_EMPTY", err.Error(), nil)
	case errors.Is(err, ErrPaymentMethodMissing):
		common.JSONError(w, http.StatusUnprocessableEntity, "PAYMENT_METHOD_REQUIRED", err.Error(), nil)
	case errors.Is(err, ErrFinalized):
		common.JSONError(w, http.StatusConflict, "DRAFT_FINALIZED", err.Error(), nil)
	case errors.Is(err, lock.ErrNotAcquired):
		common.JSONError(w, http.StatusConflict, "DRAFT_BUSY", "draft is being modified, retry", nil)
	case errors.Is(err, vehicle.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "VEHICLE_NOT_FOUND", "vehicle not found", nil)
	case errors.Is(err, catalog.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "SERVICE_NOT_FOUND", "service not found", nil)
	case errors.Is(err, catalog.ErrPriceUnavailable), errors.Is(err, catalog.ErrNotOffered):
		common.JSONError(w, http.StatusUnprocessableEntity, "SERVICE_UNAVAILABLE_FOR_VEHICLE", err.Error(), nil)
	case errors.Is(err, promotion.ErrPromotionNotFound):
		common.JSONError(w, http.StatusNotFound, "PROMOTION_NOT_FOUND", "promotion not found", nil)
	case errors.Is(err, promotion.ErrPromotionInactive):
		common.JSONError(w, http.StatusUnprocessableEntity, "PROMOTION_INACTIVE", "promotion is not active", nil)
	case errors.Is(err, pricing.ErrLineNotFound):
		common.JSONError(w, http.StatusNotFound, "LINE_NOT_FOUND", "service is not on the draft", nil)
	case errors.Is(err, pricing.ErrFixedQuantity):
		common.JSONError(w, http.StatusUnprocessableEntity, "FIXED_QUANTITY", "quantity is fixed for this service", nil)
	case errors.Is(err, invoice.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "invoice not found", nil)
	default:
		common.WriteError(w, err)
	}
}
