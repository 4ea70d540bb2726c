package report

import (
	"net/http"

	"github.com/noah-isme/backend-lavado/internal/common"
	"github.com/noah-isme/backend-lavado/internal/invoice"
)

// Handler exposes report endpoints.
type Handler struct {
	Svc *Service
}

// Sales handles GET /api/v1/reports/sales?from=&to=&customer=&payment_method=&plate=.
func (h *Handler) Sales(w http.ResponseWriter, r *http.Request) {
	f, err := invoice.ParseFilter(r, h.Svc.location())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	f.PaymentMethod = common.Upper(f.PaymentMethod)
	f.Plate = common.Upper(f.Plate)
	rows, err := h.Svc.Sales(r.Context(), f)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, rows)
}

// Summary handles GET /api/v1/reports/summary?from=&to=.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	out, err := h.Svc.Summary(r.Context(), from, to)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

func dateRange(r *http.Request) (from, to *common.Date, err error) {
	details := map[string]string{}
	parse := func(name string) *common.Date {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			return nil
		}
		d, err := common.ParseDate(raw)
		if err != nil {
			details[name] = "date"
			return nil
		}
		return &d
	}
	from, to = parse("from"), parse("to")
	if from != nil && to != nil && to.Before(*from) {
		details["to"] = "gtefield=from"
	}
	if len(details) > 0 {
		return nil, nil, common.Unprocessable("invalid date range", details)
	}
	return from, to, nil
}
