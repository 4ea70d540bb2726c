package settings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/noah-isme/backend-lavado/internal/db"
)

// PGStore keeps the settings document in a single JSONB row.
type PGStore struct {
	DB db.DBTX
}

// LoadSettings reads the saved document.
func (s PGStore) LoadSettings(ctx context.Context) (Settings, error) {
	var raw []byte
	err := s.DB.QueryRow(ctx, `SELECT payload FROM merchant_settings WHERE id = 1`).Scan(&raw)
	if db.IsNoRows(err) {
		return Settings{}, ErrNotFound
	}
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	var out Settings
	if err := json.Unmarshal(raw, &out); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return out, nil
}

// SaveSettings upserts the document.
func (s PGStore) SaveSettings(ctx context.Context, v Settings) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = s.DB.Exec(ctx, `
INSERT INTO merchant_settings (id, payload, updated_at) VALUES (1, $1, now())
ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`, raw)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
