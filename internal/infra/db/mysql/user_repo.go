package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/compliai/compliai/internal/domain/identity"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user record
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	const q = `
INSERT INTO users (id, email, password_hash, created_at)
VALUES (?,?,?,?);
`
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, u.ID, u.Email, u.PasswordHash, createdAt)
	return err
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `
SELECT id, email, password_hash, created_at
FROM users
WHERE email=?;
`
	return r.scanOne(r.db.QueryRowContext(ctx, q, email))
}

func (r *UserRepository) ByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	const q = `
SELECT id, email, password_hash, created_at
FROM users
WHERE id=?;
`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id domain.UserID, hash string) error {
	const q = `UPDATE users SET password_hash=? WHERE id=?;`
	res, err := r.db.ExecContext(ctx, q, hash, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) scanOne(row *sql.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
