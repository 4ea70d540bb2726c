package invoice

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-lavado/internal/common"
)

// Handler exposes invoice endpoints.
type Handler struct {
	Svc            *Service
	DefaultPerPage int
	MaxPerPage     int
}

// List handles GET /api/v1/invoices?from=&to=&customer=&payment_method=&plate=&page=&limit=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r, h.Svc.Location)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	size := h.DefaultPerPage
	if size <= 0 {
		size = 20
	}
	page := common.ParsePage(r, size, h.MaxPerPage)
	rows, total, err := h.Svc.List(r.Context(), f, page)
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []Invoice{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       rows,
		"pagination": page.Meta(total),
	})
}

// Get handles GET /api/v1/invoices/{number}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	number, ok := invoiceNumber(w, r)
	if !ok {
		return
	}
	inv, err := h.Svc.Get(r.Context(), number)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, inv)
}

// Create handles POST /api/v1/invoices.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	inv, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, inv)
}

// Update handles PUT /api/v1/invoices/{number}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	number, ok := invoiceNumber(w, r)
	if !ok {
		return
	}
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	inv, err := h.Svc.Update(r.Context(), number, in)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, inv)
}

// Delete handles DELETE /api/v1/invoices/{number}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	number, ok := invoiceNumber(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), number); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ParseFilter reads listing filters from the query string. Dates are calendar
// days in loc; "to" includes the whole day.
func ParseFilter(r *http.Request, loc *time.Location) (Filter, error) {
	if loc == nil {
		loc = time.UTC
	}
	q := r.URL.Query()
	f := Filter{
		CustomerID:    q.Get("customer"),
		PaymentMethod: q.Get("payment_method"),
		Plate:         q.Get("plate"),
	}
	details := map[string]string{}
	if raw := q.Get("from"); raw != "" {
		d, err := common.ParseDate(raw)
		if err != nil {
			details["from"] = "date"
		} else {
			from := d.StartIn(loc)
			f.From = &from
		}
	}
	if raw := q.Get("to"); raw != "" {
		d, err := common.ParseDate(raw)
		if err != nil {
			details["to"] = "date"
		} else {
			to := d.EndIn(loc)
			f.To = &to
		}
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		details["to"] = "gtefield=from"
	}
	if len(details) > 0 {
		return Filter{}, common.Unprocessable("invalid filter", details)
	}
	return f, nil
}

func invoiceNumber(w http.ResponseWriter, r *http.Request) (int64, bool) {
	n, err := strconv.ParseInt(chi.URLParam(r, "number"), 10, 64)
	if err != nil || n <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid invoice number", nil)
		return 0, false
	}
	return n, true
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "invoice not found", nil)
		return
	}
	common.WriteError(w, err)
}
