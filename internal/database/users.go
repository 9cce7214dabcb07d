package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/devboard/devboard-api/internal/models"
	"github.com/google/uuid"
)

const userColumns = `id, email, provider_id, name, created_at, updated_at`

// ErrMissingEmail is returned when a first-time token carries no email claim
var ErrMissingEmail = errors.New("token has no email claim")

// UserRepository maps identity provider subjects to board owners
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.ProviderID, &user.Name, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// EnsureFromClaims returns the user behind a verified token. Known subjects
// get email and name refreshed when the provider reports new values; unknown
// subjects are created. Concurrent first requests resolve to one row.
func (r *UserRepository) EnsureFromClaims(ctx context.Context, claims *models.TokenClaims) (*models.User, error) {
	now := time.Now().UTC()

	// Empty claims keep the stored value; updated_at only moves on a real change
	user, err := scanUser(r.db.QueryRowContext(ctx, `
		UPDATE users SET
			email = COALESCE(NULLIF($2, ''), email),
			name = COALESCE(NULLIF($3, ''), name),
			updated_at = CASE
				WHEN ($2 <> '' AND email <> $2) OR ($3 <> '' AND name IS DISTINCT FROM $3) THEN $4
				ELSE updated_at
			END
		WHERE provider_id = $1
		RETURNING `+userColumns,
		claims.Sub, claims.Email, claims.Name, now,
	))
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("refresh user %s: %w", claims.Sub, err)
	}

	if claims.Email == "" {
		return nil, fmt.Errorf("create user %s: %w", claims.Sub, ErrMissingEmail)
	}
	user, err = scanUser(r.db.QueryRowContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $5)
		ON CONFLICT (provider_id) DO UPDATE SET provider_id = EXCLUDED.provider_id
		RETURNING `+userColumns,
		uuid.New(), claims.Email, claims.Sub, claims.Name, now,
	))
	if err != nil {
		return nil, fmt.Errorf("create user %s: %w", claims.Sub, err)
	}
	return user, nil
}
