package memory

import (
	"context"
	"sync"

	domain "github.com/compliai/compliai/internal/domain/credentials"
	"github.com/compliai/compliai/internal/domain/identity"
)

// CredentialRepository is an in-memory credential store.
type CredentialRepository struct {
	mu    sync.RWMutex
	creds map[string]domain.Credential
}

func NewCredentialRepository() *CredentialRepository {
	return &CredentialRepository{creds: make(map[string]domain.Credential)}
}

func key(userID identity.UserID, provider string) string {
	return string(userID) + "/" + provider
}

func (r *CredentialRepository) Put(ctx context.Context, c *domain.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creds[key(c.UserID, c.Provider)] = *c
	return nil
}

func (r *CredentialRepository) Get(ctx context.Context, userID identity.UserID, provider string) (*domain.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.creds[key(userID, provider)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}
