package vehicle

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-lavado/internal/db"
)

// PGStore persists vehicles in Postgres.
type PGStore struct {
	DB db.DBTX
}

const vehicleColumns = `plate, customer_document, category, segment, brand, line, model, displacement, price_group`

// ListVehicles returns vehicles ordered by plate, filtered by owner when given.
func (s PGStore) ListVehicles(ctx context.Context, customerDocument string) ([]Vehicle, error) {
	rows, err := s.DB.Query(ctx, `
SELECT `+vehicleColumns+` FROM vehicles
WHERE ($1 = '' OR customer_document = $1)
ORDER BY plate`, customerDocument)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()
	var out []Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetVehicle loads a vehicle by plate.
func (s PGStore) GetVehicle(ctx context.Context, plate string) (Vehicle, error) {
	v, err := scanVehicle(s.DB.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE plate = $1`, plate))
	if db.IsNoRows(err) {
		return Vehicle{}, ErrNotFound
	}
	return v, err
}

// InsertVehicle registers v.
func (s PGStore) InsertVehicle(ctx context.Context, v Vehicle) (Vehicle, error) {
	out, err := scanVehicle(s.DB.QueryRow(ctx, `
INSERT INTO vehicles (`+vehicleColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING `+vehicleColumns,
		v.Plate, v.CustomerDocument, v.Category, v.Segment, v.Brand, v.Line, v.Model, v.Displacement, v.Group))
	return out, mapWriteErr(err)
}

// UpdateVehicle overwrites the vehicle with v.Plate.
func (s PGStore) UpdateVehicle(ctx context.Context, v Vehicle) (Vehicle, error) {
	out, err := scanVehicle(s.DB.QueryRow(ctx, `
UPDATE vehicles
SET customer_document = $2, category = $3, segment = $4, brand = $5, line = $6,
    model = $7, displacement = $8, price_group = $9, updated_at = now()
WHERE plate = $1
RETURNING `+vehicleColumns,
		v.Plate, v.CustomerDocument, v.Category, v.Segment, v.Brand, v.Line, v.Model, v.Displacement, v.Group))
	if db.IsNoRows(err) {
		return Vehicle{}, ErrNotFound
	}
	return out, mapWriteErr(err)
}

// DeleteVehicle removes a vehicle.
func (s PGStore) DeleteVehicle(ctx context.Context, plate string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM vehicles WHERE plate = $1`, plate)
	if err != nil {
		return fmt.Errorf("delete vehicle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanVehicle(row pgx.Row) (Vehicle, error) {
	var v Vehicle
	err := row.Scan(&v.Plate, &v.CustomerDocument, &v.Category, &v.Segment, &v.Brand, &v.Line, &v.Model, &v.Displacement, &v.Group)
	return v, err
}

func mapWriteErr(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err):
		return ErrPlateTaken
	case db.IsForeignKeyViolation(err):
		return ErrUnknownCustomer
	default:
		return err
	}
}
