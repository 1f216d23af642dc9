package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/compliai/compliai/internal/domain/credentials"
	mw "github.com/compliai/compliai/internal/middleware"
)

// handlePutCredential stores an API key for the named provider. The key
// itself never appears in any response after this call.
func (r *Router) handlePutCredential(w http.ResponseWriter, req *http.Request) error {
	user := mw.UserFromContext(req.Context())
	provider := chi.URLParam(req, "provider")
	if provider != credentials.ProviderOpenRouter {
		return fmt.Errorf("%w: unsupported provider %q", errBadRequest, provider)
	}

	var body struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: invalid JSON body", errBadRequest)
	}
	if strings.TrimSpace(body.Key) == "" {
		return fmt.Errorf("%w: key is required", errBadRequest)
	}

	cred := &credentials.Credential{
		UserID:    user.ID,
		Provider:  provider,
		Key:       strings.TrimSpace(body.Key),
		UpdatedAt: r.clock.Now().UTC(),
	}
	if err := r.credentials.Put(req.Context(), cred); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"provider":   cred.Provider,
		"configured": true,
		"updated_at": cred.UpdatedAt,
	})
}

// handleGetCredential reports whether a key is configured, never the key.
func (r *Router) handleGetCredential(w http.ResponseWriter, req *http.Request) error {
	user := mw.UserFromContext(req.Context())
	provider := chi.URLParam(req, "provider")

	cred, err := r.credentials.Get(req.Context(), user.ID, provider)
	if errors.Is(err, credentials.ErrNotFound) {
		return writeJSON(w, http.StatusOK, map[string]any{
			"provider":   provider,
			"configured": false,
		})
	}
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"provider":   cred.Provider,
		"configured": true,
		"updated_at": cred.UpdatedAt,
	})
}
