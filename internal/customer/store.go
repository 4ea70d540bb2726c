package customer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-lavado/internal/db"
)

// PGStore persists customers in Postgres.
type PGStore struct {
	DB db.DBTX
}

const customerColumns = `doc_type, document, first_name, last_name, birth_date, phone, email`

// ListCustomers pages through customers matching search.
func (s PGStore) ListCustomers(ctx context.Context, search string, limit, offset int) ([]Customer, int, error) {
	const filter = `($1 = '' OR document ILIKE '%' || $1 || '%' OR (first_name || ' ' || last_name) ILIKE '%' || $1 || '%')`
	var total int
	if err := s.DB.QueryRow(ctx, `SELECT count(*) FROM customers WHERE `+filter, search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}
	rows, err := s.DB.Query(ctx, `
SELECT `+customerColumns+` FROM customers
WHERE `+filter+`
ORDER BY last_name, first_name, document
LIMIT $2 OFFSET $3`, search, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// GetCustomer loads a customer by document.
func (s PGStore) GetCustomer(ctx context.Context, document string) (Customer, error) {
	c, err := scanCustomer(s.DB.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE document = $1`, document))
	if db.IsNoRows(err) {
		return Customer{}, ErrNotFound
	}
	return c, err
}

// InsertCustomer registers c.
func (s PGStore) InsertCustomer(ctx context.Context, c Customer) (Customer, error) {
	out, err := scanCustomer(s.DB.QueryRow(ctx, `
INSERT INTO customers (`+customerColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+customerColumns,
		c.DocType, c.Document, c.FirstName, c.LastName, db.DateArg(c.BirthDate), c.Phone, c.Email))
	if db.IsUniqueViolation(err) {
		return Customer{}, ErrDocumentTaken
	}
	return out, err
}

// UpdateCustomer overwrites the customer with c.Document.
func (s PGStore) UpdateCustomer(ctx context.Context, c Customer) (Customer, error) {
	out, err := scanCustomer(s.DB.QueryRow(ctx, `
UPDATE customers
SET doc_type = $1, first_name = $3, last_name = $4, birth_date = $5, phone = $6, email = $7, updated_at = now()
WHERE document = $2
RETURNING `+customerColumns,
		c.DocType, c.Document, c.FirstName, c.LastName, db.DateArg(c.BirthDate), c.Phone, c.Email))
	if db.IsNoRows(err) {
		return Customer{}, ErrNotFound
	}
	return out, err
}

// DeleteCustomer removes a customer. Customers that still own vehicles are kept.
func (s PGStore) DeleteCustomer(ctx context.Context, document string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM customers WHERE document = $1`, document)
	if db.IsForeignKeyViolation(err) {
		return ErrHasVehicles
	}
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var (
		c     Customer
		birth pgtype.Date
	)
	if err := row.Scan(&c.DocType, &c.Document, &c.FirstName, &c.LastName, &birth, &c.Phone, &c.Email); err != nil {
		return Customer{}, err
	}
	c.BirthDate = db.DateFromPG(birth)
	return c, nil
}
