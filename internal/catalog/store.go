package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-lavado/internal/common"
	"github.com/noah-isme/backend-lavado/internal/db"
)

// Store persists both service families.
type Store interface {
	ListGeneral(ctx context.Context) ([]GeneralService, error)
	GetGeneral(ctx context.Context, id int64) (GeneralService, error)
	InsertGeneral(ctx context.Context, s GeneralService) (GeneralService, error)
	UpdateGeneral(ctx context.Context, s GeneralService) (GeneralService, error)
	DeleteGeneral(ctx context.Context, id int64) error

	ListAdditional(ctx context.Context) ([]AdditionalService, error)
	GetAdditional(ctx context.Context, id int64) (AdditionalService, error)
	InsertAdditional(ctx context.Context, s AdditionalService) (AdditionalService, error)
	UpdateAdditional(ctx context.Context, s AdditionalService) (AdditionalService, error)
	DeleteAdditional(ctx context.Context, id int64) error
}

// PGStore implements Store on Postgres.
type PGStore struct {
	DB db.DBTX
}

// ListGeneral returns general services ordered by id.
func (s PGStore) ListGeneral(ctx context.Context) ([]GeneralService, error) {
	rows, err := s.DB.Query(ctx, `SELECT id, name, prices FROM general_services ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list general services: %w", err)
	}
	defer rows.Close()
	var out []GeneralService
	for rows.Next() {
		svc, err := scanGeneral(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

// GetGeneral loads one general service.
func (s PGStore) GetGeneral(ctx context.Context, id int64) (GeneralService, error) {
	svc, err := scanGeneral(s.DB.QueryRow(ctx, `SELECT id, name, prices FROM general_services WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return GeneralService{}, ErrNotFound
	}
	return svc, err
}

// InsertGeneral stores svc under the next free general id.
func (s PGStore) InsertGeneral(ctx context.Context, svc GeneralService) (GeneralService, error) {
	prices, err := json.Marshal(svc.Prices)
	if err != nil {
		return GeneralService{}, err
	}
	return insertWithRetry(func() (GeneralService, error) {
		return scanGeneral(s.DB.QueryRow(ctx, `
INSERT INTO general_services (id, name, prices)
SELECT COALESCE(MAX(id), 999) + 1, $1, $2 FROM general_services
RETURNING id, name, prices`, svc.Name, prices))
	})
}

// UpdateGeneral overwrites name and prices of svc.ID.
func (s PGStore) UpdateGeneral(ctx context.Context, svc GeneralService) (GeneralService, error) {
	prices, err := json.Marshal(svc.Prices)
	if err != nil {
		return GeneralService{}, err
	}
	out, err := scanGeneral(s.DB.QueryRow(ctx, `
UPDATE general_services SET name = $2, prices = $3, updated_at = now()
WHERE id = $1
RETURNING id, name, prices`, svc.ID, svc.Name, prices))
	if db.IsNoRows(err) {
		return GeneralService{}, ErrNotFound
	}
	return out, mapWriteErr(err)
}

// DeleteGeneral removes a general service.
func (s PGStore) DeleteGeneral(ctx context.Context, id int64) error {
	return s.delete(ctx, `DELETE FROM general_services WHERE id = $1`, id)
}

const additionalColumns = `id, name, categories, variable_priced, unit, base_price`

// ListAdditional returns additional services ordered by id.
func (s PGStore) ListAdditional(ctx context.Context) ([]AdditionalService, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+additionalColumns+` FROM additional_services ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list additional services: %w", err)
	}
	defer rows.Close()
	var out []AdditionalService
	for rows.Next() {
		svc, err := scanAdditional(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

// GetAdditional loads one additional service.
func (s PGStore) GetAdditional(ctx context.Context, id int64) (AdditionalService, error) {
	svc, err := scanAdditional(s.DB.QueryRow(ctx, `SELECT `+additionalColumns+` FROM additional_services WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return AdditionalService{}, ErrNotFound
	}
	return svc, err
}

// InsertAdditional stores svc under the next free additional id. The custom
// line id is never handed out.
func (s PGStore) InsertAdditional(ctx context.Context, svc AdditionalService) (AdditionalService, error) {
	return insertWithRetry(func() (AdditionalService, error) {
		return scanAdditional(s.DB.QueryRow(ctx, `
WITH next AS (
    SELECT COALESCE(MAX(id), 4999) + 1 AS id FROM additional_services
)
INSERT INTO additional_services (id, name, categories, variable_priced, unit, base_price)
SELECT CASE WHEN next.id = 9999 THEN 10000 ELSE next.id END, $1, $2, $3, $4, $5 FROM next
RETURNING `+additionalColumns,
			svc.Name, categoriesArg(svc.Categories), svc.VariablePriced, unitArg(svc.Unit), svc.BasePrice.String()))
	})
}

// UpdateAdditional overwrites svc.ID.
func (s PGStore) UpdateAdditional(ctx context.Context, svc AdditionalService) (AdditionalService, error) {
	out, err := scanAdditional(s.DB.QueryRow(ctx, `
UPDATE additional_services
SET name = $2, categories = $3, variable_priced = $4, unit = $5, base_price = $6, updated_at = now()
WHERE id = $1
RETURNING `+additionalColumns,
		svc.ID, svc.Name, categoriesArg(svc.Categories), svc.VariablePriced, unitArg(svc.Unit), svc.BasePrice.String()))
	if db.IsNoRows(err) {
		return AdditionalService{}, ErrNotFound
	}
	return out, mapWriteErr(err)
}

// DeleteAdditional removes an additional service.
func (s PGStore) DeleteAdditional(ctx context.Context, id int64) error {
	return s.delete(ctx, `DELETE FROM additional_services WHERE id = $1`, id)
}

func (s PGStore) delete(ctx context.Context, sql string, id int64) error {
	tag, err := s.DB.Exec(ctx, sql, id)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanGeneral(row pgx.Row) (GeneralService, error) {
	var (
		svc    GeneralService
		prices []byte
	)
	if err := row.Scan(&svc.ID, &svc.Name, &prices); err != nil {
		return GeneralService{}, err
	}
	svc.Kind = KindGeneral
	if len(prices) > 0 {
		if err := json.Unmarshal(prices, &svc.Prices); err != nil {
			return GeneralService{}, fmt.Errorf("decode prices of service %d: %w", svc.ID, err)
		}
	}
	return svc, nil
}

func scanAdditional(row pgx.Row) (AdditionalService, error) {
	var (
		svc  AdditionalService
		unit string
	)
	if err := row.Scan(&svc.ID, &svc.Name, &svc.Categories, &svc.VariablePriced, &unit, &svc.BasePrice); err != nil {
		return AdditionalService{}, err
	}
	svc.Kind = KindAdditional
	if unit != "" {
		svc.Unit = &unit
	}
	return svc, nil
}

func categoriesArg(categories []string) []string {
	if categories == nil {
		return []string{}
	}
	return categories
}

func unitArg(unit *string) string {
	if unit == nil {
		return ""
	}
	return *unit
}

// insertAttempts bounds retries when a concurrent create took the same
// MAX(id)+1.
const insertAttempts = 3

func insertWithRetry[T any](insert func() (T, error)) (T, error) {
	var (
		out T
		err error
	)
	for range insertAttempts {
		out, err = insert()
		if !isIDRace(err) {
			break
		}
	}
	return out, mapWriteErr(err)
}

func isIDRace(err error) bool {
	constraint, ok := db.UniqueConstraint(err)
	return ok && strings.HasSuffix(constraint, "_pkey")
}

func mapWriteErr(err error) error {
	constraint, unique := db.UniqueConstraint(err)
	switch {
	case err == nil:
		return nil
	case unique && strings.HasSuffix(constraint, "_name_key"):
		return ErrNameTaken
	case unique:
		return fmt.Errorf("catalog write conflict on %s: %w", constraint, common.ErrConflict)
	case db.IsCheckViolation(err):
		return ErrIDsExhausted
	default:
		return err
	}
}
