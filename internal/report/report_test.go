package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-lavado/internal/cache"
	"github.com/noah-isme/backend-lavado/internal/common"
	"github.com/noah-isme/backend-lavado/internal/invoice"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func bogota(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Bogota")
	require.NoError(t, err)
	return loc
}

func sampleInvoices() []invoice.Invoice {
	return []invoice.Invoice{
		// 2025-03-01 22:00 in Bogota
		{Number: 10000, IssuedAt: time.Date(2025, 3, 2, 3, 0, 0, 0, time.UTC), Category: "Auto", PaymentMethod: "EF", Total: dec("20000")},
		{Number: 10001, IssuedAt: time.Date(2025, 3, 2, 15, 0, 0, 0, time.UTC), Category: "Moto", PaymentMethod: "TR", Total: dec("12000")},
		{Number: 10002, IssuedAt: time.Date(2025, 3, 2, 16, 0, 0, 0, time.UTC), Category: "Bus", PaymentMethod: "TR", Total: dec("50000")},
		{Number: 10003, IssuedAt: time.Date(2025, 3, 2, 17, 0, 0, 0, time.UTC), Category: "Moto", PaymentMethod: "TC", Total: dec("8000.50")},
	}
}

func TestSummarize(t *testing.T) {
	out := Summarize(sampleInvoices(), nil, nil, bogota(t))

	require.True(t, dec("90000.50").Equal(out.Total))
	require.Equal(t, 4, out.Count)

	require.Len(t, out.ByPaymentMethod, 4)
	methods := map[string]MethodSales{}
	for _, m := range out.ByPaymentMethod {
		methods[m.PaymentMethod] = m
	}
	require.Equal(t, "TR", out.ByPaymentMethod[0].PaymentMethod)
	require.True(t, dec("62000").Equal(methods["TR"].Total))
	require.Equal(t, 2, methods["TR"].Count)
	require.Equal(t, 0, methods["TD"].Count)
	require.True(t, methods["TD"].Total.IsZero())

	require.Len(t, out.Daily, 2)
	require.Equal(t, common.Date{Year: 2025, Month: time.March, Day: 1}, out.Daily[0].Date)
	require.Equal(t, 1, out.Daily[0].Count)
	first := out.Daily[0].Categories
	require.Len(t, first, 3)
	require.Equal(t, "Moto", first[0].Category)
	require.Equal(t, 0, first[0].Count)
	require.Equal(t, "Auto", first[1].Category)
	require.Equal(t, 1, first[1].Count)

	second := out.Daily[1]
	require.Equal(t, 3, second.Count)
	require.Len(t, second.Categories, 4)
	require.Equal(t, "Bus", second.Categories[3].Category)
	require.True(t, dec("20000.50").Equal(second.Categories[0].Total))
}

func TestSummarizeEmpty(t *testing.T) {
	from := common.Date{Year: 2025, Month: time.January, Day: 1}
	out := Summarize(nil, &from, nil, time.UTC)
	require.True(t, out.Total.IsZero())
	require.Len(t, out.ByPaymentMethod, 4)
	require.NotNil(t, out.Daily)
	require.Empty(t, out.Daily)

	data, err := json.Marshal(out)
	require.NoError(t, err)
	require.Contains(t, string(data), `"fecha_inicio":"2025-01-01"`)
	require.Contains(t, string(data), `"fecha_fin":null`)
}

type countingInvoices struct {
	rows    []invoice.Invoice
	calls   int
	filters []invoice.Filter
}

func (c *countingInvoices) List(_ context.Context, f invoice.Filter, _ common.Page) ([]invoice.Invoice, int, error) {
	c.calls++
	c.filters = append(c.filters, f)
	return c.rows, len(c.rows), nil
}

func newService(t *testing.T, src *countingInvoices) (*Service, *cache.JSON) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := cache.NewJSON(client, CachePrefix, time.Minute)
	return &Service{Invoices: src, Cache: c, Location: bogota(t)}, c
}

func TestSummaryIsCachedUntilPurged(t *testing.T) {
	src := &countingInvoices{rows: sampleInvoices()}
	svc, c := newService(t, src)
	ctx := context.Background()
	from := common.Date{Year: 2025, Month: time.March, Day: 1}
	to := common.Date{Year: 2025, Month: time.March, Day: 2}

	first, err := svc.Summary(ctx, &from, &to)
	require.NoError(t, err)
	second, err := svc.Summary(ctx, &from, &to)
	require.NoError(t, err)
	require.Equal(t, 1, src.calls)
	require.True(t, first.Total.Equal(second.Total))
	require.Equal(t, first.Count, second.Count)

	require.Equal(t, time.Date(2025, 3, 1, 5, 0, 0, 0, time.UTC), src.filters[0].From.UTC())

	deleted, err := c.Purge(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, deleted)
	_, err = svc.Summary(ctx, &from, &to)
	require.NoError(t, err)
	require.Equal(t, 2, src.calls)
}

func TestHandlers(t *testing.T) {
	src := &countingInvoices{rows: sampleInvoices()}
	svc, _ := newService(t, src)
	h := &Handler{Svc: svc}

	rr := httptest.NewRecorder()
	h.Summary(rr, httptest.NewRequest(http.MethodGet, "/reports/summary?from=2025-03-01&to=2025-03-31", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, 4, body.Data.Count)

	rr = httptest.NewRecorder()
	h.Summary(rr, httptest.NewRequest(http.MethodGet, "/reports/summary?from=2025-03-31&to=2025-03-01", nil))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = httptest.NewRecorder()
	h.Sales(rr, httptest.NewRequest(http.MethodGet, "/reports/sales?payment_method=tr&plate=abc123", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	last := src.filters[len(src.filters)-1]
	require.Equal(t, "TR", last.PaymentMethod)
	require.Equal(t, "ABC123", last.Plate)
}
