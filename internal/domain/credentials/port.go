package credentials

import (
	"context"

	"github.com/compliai/compliai/internal/domain/identity"
)

// Repository port for credential storage. Put overwrites any existing value
// for the same user and provider.
type Repository interface {
	Put(ctx context.Context, c *Credential) error
	Get(ctx context.Context, userID identity.UserID, provider string) (*Credential, error)
}
