package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoSettings indicates no configuration version has been stored yet.
var ErrNoSettings = errors.New("settings: no stored configuration")

// Repo persists configuration versions. Saving always creates a new
// version; existing versions are never rewritten.
type Repo interface {
	Latest(ctx context.Context) (Settings, int64, error)
	Save(ctx context.Context, s Settings) (int64, error)
}

// PGRepo stores configuration versions in Postgres, one row per version.
type PGRepo struct {
	Pool *pgxpool.Pool
}

// Latest returns the most recent configuration version.
func (r PGRepo) Latest(ctx context.Context) (Settings, int64, error) {
	if r.Pool == nil {
		return Settings{}, 0, errors.New("settings: pool not configured")
	}
	var (
		version int64
		payload []byte
	)
	row := r.Pool.QueryRow(ctx, `SELECT version, payload FROM pricing_settings ORDER BY version DESC LIMIT 1`)
	if err := row.Scan(&version, &payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Settings{}, 0, ErrNoSettings
		}
		return Settings{}, 0, fmt.Errorf("settings: load latest: %w", err)
	}
	var s Settings
	if err := json.Unmarshal(payload, &s); err != nil {
		return Settings{}, 0, fmt.Errorf("settings: decode version %d: %w", version, err)
	}
	return s, version, nil
}

// Save appends a new configuration version and returns its number.
func (r PGRepo) Save(ctx context.Context, s Settings) (int64, error) {
	if r.Pool == nil {
		return 0, errors.New("settings: pool not configured")
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return 0, fmt.Errorf("settings: encode: %w", err)
	}
	var version int64
	row := r.Pool.QueryRow(ctx, `INSERT INTO pricing_settings (payload) VALUES ($1) RETURNING version`, payload)
	if err := row.Scan(&version); err != nil {
		return 0, fmt.Errorf("settings: save: %w", err)
	}
	return version, nil
}

// MemRepo is an in-memory Repo for tests and local development.
type MemRepo struct {
	versions []Settings
}

// Latest returns the newest stored version.
func (m *MemRepo) Latest(context.Context) (Settings, int64, error) {
	if len(m.versions) == 0 {
		return Settings{}, 0, ErrNoSettings
	}
	return m.versions[len(m.versions)-1], int64(len(m.versions)), nil
}

// Save appends a version.
func (m *MemRepo) Save(_ context.Context, s Settings) (int64, error) {
	m.versions = append(m.versions, s)
	return int64(len(m.versions)), nil
}
