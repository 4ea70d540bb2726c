package promotion

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-lavado/internal/db"
)

// PGStore persists promotions in Postgres.
type PGStore struct {
	DB db.DBTX
}

const promotionColumns = `id, description, start_date, end_date, percent, enabled`

// ListPromotions returns every promotion ordered by id.
func (s PGStore) ListPromotions(ctx context.Context) ([]Promotion, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+promotionColumns+` FROM promotions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	defer rows.Close()
	var out []Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPromotion loads one promotion.
func (s PGStore) GetPromotion(ctx context.Context, id int64) (Promotion, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+promotionColumns+` FROM promotions WHERE id = $1`, id)
	p, err := scanPromotion(row)
	if db.IsNoRows(err) {
		return Promotion{}, ErrPromotionNotFound
	}
	return p, err
}

// InsertPromotion stores p and returns it with its assigned id.
func (s PGStore) InsertPromotion(ctx context.Context, p Promotion) (Promotion, error) {
	row := s.DB.QueryRow(ctx, `
INSERT INTO promotions (description, start_date, end_date, percent, enabled)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+promotionColumns,
		p.Description, db.DateArg(p.StartDate), db.DateArg(p.EndDate), p.Percent.String(), p.Enabled)
	return scanPromotion(row)
}

// UpdatePromotion overwrites the promotion with p.ID.
func (s PGStore) UpdatePromotion(ctx context.Context, p Promotion) (Promotion, error) {
	row := s.DB.QueryRow(ctx, `
UPDATE promotions
SET description = $2, start_date = $3, end_date = $4, percent = $5, enabled = $6, updated_at = now()
WHERE id = $1
RETURNING `+promotionColumns,
		p.ID, p.Description, db.DateArg(p.StartDate), db.DateArg(p.EndDate), p.Percent.String(), p.Enabled)
	out, err := scanPromotion(row)
	if db.IsNoRows(err) {
		return Promotion{}, ErrPromotionNotFound
	}
	return out, err
}

// DeletePromotion removes the promotion with id.
func (s PGStore) DeletePromotion(ctx context.Context, id int64) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM promotions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete promotion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPromotionNotFound
	}
	return nil
}

func scanPromotion(row pgx.Row) (Promotion, error) {
	var (
		p          Promotion
		start, end pgtype.Date
	)
	if err := row.Scan(&p.ID, &p.Description, &start, &end, &p.Percent, &p.Enabled); err != nil {
		return Promotion{}, err
	}
	p.StartDate = db.DateFromPG(start)
	p.EndDate = db.DateFromPG(end)
	return p, nil
}
