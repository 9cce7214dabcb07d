package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/devboard/devboard-api/internal/models"
)

// Names of the documents kept in runtime_settings.
const (
	SettingCORS      = "cors"
	SettingRateLimit = "ratelimit"
)

// SettingsRepository stores the operator tunables the server hot-reloads.
// Each setting is one JSON document keyed by name.
type SettingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a settings repository
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// load decodes the named document into dst. It reports false when no row exists.
func (r *SettingsRepository) load(ctx context.Context, name string, dst any) (time.Time, bool, error) {
	var raw []byte
	var updatedAt time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT value, updated_at FROM runtime_settings WHERE name = $1`, name,
	).Scan(&raw, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load %s settings: %w", name, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return time.Time{}, false, fmt.Errorf("decode %s settings: %w", name, err)
	}
	return updatedAt, true, nil
}

func (r *SettingsRepository) store(ctx context.Context, name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s settings: %w", name, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO runtime_settings (name, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, name, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store %s settings: %w", name, err)
	}
	return nil
}

// CORS returns the stored CORS settings, or nil when none were saved
func (r *SettingsRepository) CORS(ctx context.Context) (*models.CORSSettings, error) {
	s := &models.CORSSettings{}
	updatedAt, ok, err := r.load(ctx, SettingCORS, s)
	if err != nil || !ok {
		return nil, err
	}
	s.UpdatedAt = updatedAt
	return s, nil
}

// SetCORS validates and saves CORS settings
func (r *SettingsRepository) SetCORS(ctx context.Context, s *models.CORSSettings) error {
	origins := ParseOrigins(strings.Join(s.AllowedOrigins, ","))
	if len(origins) == 0 {
		return fmt.Errorf("allowed_origins cannot be empty")
	}
	if s.MaxAge < 0 {
		return fmt.Errorf("max_age must not be negative")
	}
	clean := *s
	clean.AllowedOrigins = origins
	return r.store(ctx, SettingCORS, &clean)
}

// RateLimit returns the stored rate, or nil when none was saved
func (r *SettingsRepository) RateLimit(ctx context.Context) (*models.RateLimitSettings, error) {
	s := &models.RateLimitSettings{}
	updatedAt, ok, err := r.load(ctx, SettingRateLimit, s)
	if err != nil || !ok {
		return nil, err
	}
	s.UpdatedAt = updatedAt
	return s, nil
}

// SetRateLimit saves the per-user rate. Format checking is left to the caller,
// which owns the limiter dependency.
func (r *SettingsRepository) SetRateLimit(ctx context.Context, s *models.RateLimitSettings) error {
	rate := strings.ToUpper(strings.TrimSpace(s.Rate))
	if rate == "" {
		return fmt.Errorf("rate cannot be empty")
	}
	return r.store(ctx, SettingRateLimit, &models.RateLimitSettings{Rate: rate})
}

// ParseOrigins splits a comma separated origin list, trimming blanks,
// trailing slashes and duplicates while keeping order.
func ParseOrigins(raw string) []string {
	var out []string
	seen := make(map[string]bool)
	for part := range strings.SplitSeq(raw, ",") {
		o := strings.TrimRight(strings.TrimSpace(part), "/")
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	return out
}
