package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/compliai/compliai/internal/domain/credentials"
	"github.com/compliai/compliai/internal/domain/identity"
)

type CredentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) Put(ctx context.Context, c *domain.Credential) error {
	const q = `
INSERT INTO api_credentials (user_id, provider, api_key, updated_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (user_id, provider) DO UPDATE SET
  api_key=EXCLUDED.api_key, updated_at=EXCLUDED.updated_at;
`
	updatedAt := c.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, c.UserID, c.Provider, c.Key, updatedAt)
	return err
}

func (r *CredentialRepository) Get(ctx context.Context, userID identity.UserID, provider string) (*domain.Credential, error) {
	const q = `
SELECT user_id, provider, api_key, updated_at
FROM api_credentials
WHERE user_id=$1 AND provider=$2;
`
	var c domain.Credential
	err := r.db.QueryRowContext(ctx, q, userID, provider).Scan(&c.UserID, &c.Provider, &c.Key, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
