package identity

import "context"

// Repository port for persisting and querying users
type Repository interface {
	Create(ctx context.Context, u *User) error
	ByEmail(ctx context.Context, email string) (*User, error)
	ByID(ctx context.Context, id UserID) (*User, error)
	UpdatePassword(ctx context.Context, id UserID, passwordHash string) error
}
