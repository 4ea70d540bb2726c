package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-lavado/internal/common"
)

type scriptedRow struct {
	err  error
	id   int64
	name string
}

func (r scriptedRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*int64) = r.id
	*dest[1].(*string) = r.name
	*dest[2].(*[]byte) = []byte(`[]`)
	return nil
}

// scriptedDB answers QueryRow with the next scripted row.
type scriptedDB struct {
	rows  []scriptedRow
	calls int
}

func (d *scriptedDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("not scripted")
}

func (d *scriptedDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not scripted")
}

func (d *scriptedDB) QueryRow(context.Context, string, ...any) pgx.Row {
	row := d.rows[d.calls]
	d.calls++
	return row
}

func uniqueErr(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func TestInsertGeneralRetriesWhenIDTakenConcurrently(t *testing.T) {
	fake := &scriptedDB{rows: []scriptedRow{
		{err: uniqueErr("general_services_pkey")},
		{id: 1001, name: "Polichado"},
	}}
	svc, err := PGStore{DB: fake}.InsertGeneral(context.Background(), GeneralService{Name: "Polichado"})
	require.NoError(t, err)
	require.Equal(t, int64(1001), svc.ID)
	require.Equal(t, 2, fake.calls)
}

func TestInsertGeneralNameClash(t *testing.T) {
	fake := &scriptedDB{rows: []scriptedRow{{err: uniqueErr("general_services_name_key")}}}
	_, err := PGStore{DB: fake}.InsertGeneral(context.Background(), GeneralService{Name: "Polichado"})
	require.ErrorIs(t, err, ErrNameTaken)
	require.Equal(t, 1, fake.calls)
}

func TestInsertGeneralGivesUpOnPersistentIDRace(t *testing.T) {
	rows := make([]scriptedRow, insertAttempts)
	for i := range rows {
		rows[i] = scriptedRow{err: uniqueErr("general_services_pkey")}
	}
	fake := &scriptedDB{rows: rows}
	_, err := PGStore{DB: fake}.InsertGeneral(context.Background(), GeneralService{Name: "Polichado"})
	require.ErrorIs(t, err, common.ErrConflict)
	require.NotErrorIs(t, err, ErrNameTaken)
	require.Equal(t, insertAttempts, fake.calls)
}
