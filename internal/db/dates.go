package db

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-lavado/internal/common"
)

// DateFromPG converts a nullable DATE column into a calendar date.
func DateFromPG(d pgtype.Date) *common.Date {
	if !d.Valid {
		return nil
	}
	out := common.DateOf(d.Time.UTC())
	return &out
}

// DateArg encodes an optional calendar date as a DATE parameter.
func DateArg(d *common.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return pgtype.Date{Time: d.StartIn(time.UTC), Valid: true}
}
