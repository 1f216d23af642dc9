package credentials

import (
	"errors"
	"time"

	"github.com/compliai/compliai/internal/domain/identity"
)

// ProviderOpenRouter is the fixed key under which the scoring credential is
// stored. Presence or absence is the only signal consumed.
const ProviderOpenRouter = "openrouter"

// Credential is one API key held for a user, keyed by provider name.
type Credential struct {
	UserID    identity.UserID `json:"user_id"`
	Provider  string          `json:"provider"`
	Key       string          `json:"-"`
	UpdatedAt time.Time       `json:"updated_at"`
}

var ErrNotFound = errors.New("credential not found")
