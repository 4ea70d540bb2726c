package invoice

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-lavado/internal/db"
)

// numberLockKey serialises invoice numbering across API instances.
const numberLockKey int64 = 0x1a7ad0

// PGStore persists invoices in Postgres.
type PGStore struct {
	DB db.Pool
}

const invoiceColumns = `number, issued_at, plate, category, price_group, customer_id, payment_method,
tax_rate, tax_amount, gross, discount_percent, discount_amount, subtotal, total`

// ListInvoices returns the invoices matching f, newest first, with their
// lines. A non-positive limit returns every match.
func (s PGStore) ListInvoices(ctx context.Context, f Filter, limit, offset int) ([]Invoice, int, error) {
	where, args := filterClause(f)

	var total int
	if err := s.DB.QueryRow(ctx, `SELECT count(*) FROM invoices`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}

	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	args = append(args, limitArg, offset)
	query := `SELECT ` + invoiceColumns + ` FROM invoices` + where +
		` ORDER BY number DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		out = append(out, inv)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := s.attachLines(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetInvoice loads one invoice with its lines.
func (s PGStore) GetInvoice(ctx context.Context, number int64) (Invoice, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE number = $1`, number)
	inv, err := scanInvoice(row)
	if db.IsNoRows(err) {
		return Invoice{}, ErrNotFound
	}
	if err != nil {
		return Invoice{}, err
	}
	list := []Invoice{inv}
	if err := s.attachLines(ctx, list); err != nil {
		return Invoice{}, err
	}
	return list[0], nil
}

// CreateInvoice numbers and stores inv in one transaction. The advisory lock
// keeps concurrent creations from reading the same maximum.
func (s PGStore) CreateInvoice(ctx context.Context, inv Invoice, startNumber int64) (Invoice, error) {
	err := db.WithTx(ctx, s.DB, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, numberLockKey); err != nil {
			return fmt.Errorf("lock invoice numbers: %w", err)
		}
		if err := tx.QueryRow(ctx,
			`SELECT GREATEST(COALESCE(MAX(number), 0) + 1, $1::bigint) FROM invoices`, startNumber,
		).Scan(&inv.Number); err != nil {
			return fmt.Errorf("next invoice number: %w", err)
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO invoices (`+invoiceColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`, headerArgs(inv)...); err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		return insertLines(ctx, tx, inv)
	})
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// ReplaceInvoice overwrites the header and every line of inv.Number.
func (s PGStore) ReplaceInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	err := db.WithTx(ctx, s.DB, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
UPDATE invoices
SET issued_at = $2, plate = $3, category = $4, price_group = $5, customer_id = $6, payment_method = $7,
    tax_rate = $8, tax_amount = $9, gross = $10, discount_percent = $11, discount_amount = $12,
    subtotal = $13, total = $14, updated_at = now()
WHERE number = $1`, headerArgs(inv)...)
		if err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM invoice_lines WHERE invoice_number = $1`, inv.Number); err != nil {
			return fmt.Errorf("clear invoice lines: %w", err)
		}
		return insertLines(ctx, tx, inv)
	})
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// DeleteInvoice removes the invoice; its lines cascade.
func (s PGStore) DeleteInvoice(ctx context.Context, number int64) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM invoices WHERE number = $1`, number)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s PGStore) attachLines(ctx context.Context, list []Invoice) error {
	if len(list) == 0 {
		return nil
	}
	numbers := make([]int64, len(list))
	index := make(map[int64]int, len(list))
	for i, inv := range list {
		numbers[i] = inv.Number
		index[inv.Number] = i
	}
	rows, err := s.DB.Query(ctx, `
SELECT invoice_number, service_id, description, unit_price, quantity, variable_priced
FROM invoice_lines
WHERE invoice_number = ANY($1)
ORDER BY invoice_number, position`, numbers)
	if err != nil {
		return fmt.Errorf("list invoice lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			number int64
			line   Line
		)
		if err := rows.Scan(&number, &line.ServiceID, &line.Description, &line.UnitPrice, &line.Quantity, &line.VariablePriced); err != nil {
			return err
		}
		i := index[number]
		list[i].Lines = append(list[i].Lines, line)
	}
	return rows.Err()
}

func insertLines(ctx context.Context, tx pgx.Tx, inv Invoice) error {
	batch := &pgx.Batch{}
	for pos, line := range inv.Lines {
		batch.Queue(`
INSERT INTO invoice_lines (invoice_number, position, service_id, description, unit_price, quantity, variable_priced)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			inv.Number, pos, line.ServiceID, line.Description, line.UnitPrice.String(), line.Quantity.String(), line.VariablePriced)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert invoice lines: %w", err)
	}
	return nil
}

func headerArgs(inv Invoice) []any {
	return []any{
		inv.Number, inv.IssuedAt, inv.Plate, inv.Category, inv.Group, inv.CustomerID, inv.PaymentMethod,
		inv.TaxRate.String(), inv.TaxAmount.String(), inv.Gross.String(), inv.DiscountPercent.String(),
		inv.DiscountAmount.String(), inv.Subtotal.String(), inv.Total.String(),
	}
}

func filterClause(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if f.From != nil {
		add("issued_at >= ?", *f.From)
	}
	if f.To != nil {
		add("issued_at <= ?", *f.To)
	}
	if f.CustomerID != "" {
		add("customer_id = ?", f.CustomerID)
	}
	if f.PaymentMethod != "" {
		add("payment_method = ?", f.PaymentMethod)
	}
	if f.Plate != "" {
		add("plate = ?", f.Plate)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(
		&inv.Number, &inv.IssuedAt, &inv.Plate, &inv.Category, &inv.Group, &inv.CustomerID, &inv.PaymentMethod,
		&inv.TaxRate, &inv.TaxAmount, &inv.Gross, &inv.DiscountPercent, &inv.DiscountAmount, &inv.Subtotal, &inv.Total,
	)
	return inv, err
}
