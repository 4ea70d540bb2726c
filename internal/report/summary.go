package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-lavado/internal/common"
	"github.com/noah-isme/backend-lavado/internal/invoice"
	"github.com/noah-isme/backend-lavado/internal/vehicle"
)

// MethodSales aggregates invoices paid with one method.
type MethodSales struct {
	PaymentMethod string          `json:"medio_pago"`
	Total         decimal.Decimal `json:"total_ventas"`
	Count         int             `json:"numero_facturas"`
}

// CategorySales aggregates invoices of one vehicle category.
type CategorySales struct {
	Category string          `json:"categoria"`
	Total    decimal.Decimal `json:"total_ventas"`
	Count    int             `json:"numero_facturas"`
}

// DailySales aggregates the invoices of one calendar day.
type DailySales struct {
	Date       common.Date     `json:"fecha"`
	Total      decimal.Decimal `json:"total_ventas"`
	Count      int             `json:"numero_facturas"`
	Categories []CategorySales `json:"categorias"`
}

// Summary is the sales overview of a date range.
type Summary struct {
	From            *common.Date    `json:"fecha_inicio"`
	To              *common.Date    `json:"fecha_fin"`
	Total           decimal.Decimal `json:"total_ventas"`
	Count           int             `json:"numero_facturas"`
	ByPaymentMethod []MethodSales   `json:"ventas_medios_pago"`
	Daily           []DailySales    `json:"ventas_diarias"`
}

// Summarize aggregates invoices by payment method and by calendar day in
// loc. Every known payment method and vehicle category is reported even
// without sales; days without invoices are omitted.
func Summarize(invoices []invoice.Invoice, from, to *common.Date, loc *time.Location) Summary {
	if loc == nil {
		loc = time.UTC
	}
	out := Summary{From: from, To: to, Total: decimal.Zero, Daily: []DailySales{}}

	methods := invoice.PaymentMethods()
	byMethod := make(map[string]*MethodSales, len(methods))
	for _, m := range methods {
		out.ByPaymentMethod = append(out.ByPaymentMethod, MethodSales{PaymentMethod: m, Total: decimal.Zero})
	}
	for i := range out.ByPaymentMethod {
		byMethod[out.ByPaymentMethod[i].PaymentMethod] = &out.ByPaymentMethod[i]
	}

	type dayAcc struct {
		total      decimal.Decimal
		count      int
		categories map[string]*CategorySales
	}
	days := map[common.Date]*dayAcc{}
	for _, inv := range invoices {
		out.Total = out.Total.Add(inv.Total)
		out.Count++
		if m, ok := byMethod[inv.PaymentMethod]; ok {
			m.Total = m.Total.Add(inv.Total)
			m.Count++
		}

		day := common.DateOf(inv.IssuedAt.In(loc))
		acc, ok := days[day]
		if !ok {
			acc = &dayAcc{total: decimal.Zero, categories: map[string]*CategorySales{}}
			days[day] = acc
		}
		acc.total = acc.total.Add(inv.Total)
		acc.count++
		cat, ok := acc.categories[inv.Category]
		if !ok {
			cat = &CategorySales{Category: inv.Category, Total: decimal.Zero}
			acc.categories[inv.Category] = cat
		}
		cat.Total = cat.Total.Add(inv.Total)
		cat.Count++
	}

	keys := make([]common.Date, 0, len(days))
	for d := range days {
		keys = append(keys, d)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	for _, d := range keys {
		acc := days[d]
		out.Daily = append(out.Daily, DailySales{
			Date:       d,
			Total:      acc.total,
			Count:      acc.count,
			Categories: categoryRows(acc.categories),
		})
	}
	return out
}

func categoryRows(found map[string]*CategorySales) []CategorySales {
	defaults := vehicle.Categories()
	rows := make([]CategorySales, 0, len(defaults)+len(found))
	seen := make(map[string]bool, len(defaults))
	for _, c := range defaults {
		seen[c] = true
		if acc, ok := found[c]; ok {
			rows = append(rows, *acc)
			continue
		}
		rows = append(rows, CategorySales{Category: c, Total: decimal.Zero})
	}
	var extra []string
	for c := range found {
		if !seen[c] {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	for _, c := range extra {
		rows = append(rows, *found[c])
	}
	return rows
}
