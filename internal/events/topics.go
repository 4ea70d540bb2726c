package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice lifecycle topics. Each one changes sales figures, so report caches
// are purged when any of them is emitted.
const (
	TopicInvoiceCreated = "invoice.created"
	TopicInvoiceUpdated = "invoice.updated"
	TopicInvoiceDeleted = "invoice.deleted"
)

// InvoiceTopics returns the topics that change sales figures.
func InvoiceTopics() []string {
	return []string{TopicInvoiceCreated, TopicInvoiceUpdated, TopicInvoiceDeleted}
}

// InvoiceChanged is the payload of every invoice topic.
type InvoiceChanged struct {
	Number        int64           `json:"numero_factura"`
	IssuedAt      time.Time       `json:"fecha"`
	PaymentMethod string          `json:"medio_pago"`
	Total         decimal.Decimal `json:"total"`
}
