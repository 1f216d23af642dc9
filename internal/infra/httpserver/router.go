package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/compliai/compliai/internal/application"
	appassess "github.com/compliai/compliai/internal/application/assessments"
	"github.com/compliai/compliai/internal/domain/compliance"
	"github.com/compliai/compliai/internal/domain/credentials"
	domid "github.com/compliai/compliai/internal/domain/identity"
	mw "github.com/compliai/compliai/internal/middleware"
)

// retryMessage is what both request and parse failures look like to the
// client; the distinction stays in the logs.
const retryMessage = "analysis failed, please retry"

type Router struct {
	identity    IdentityService
	credentials credentials.Repository
	assessments *appassess.Service
	clock       application.Clock
}

// IdentityService is the slice of the identity use-cases the router needs.
type IdentityService interface {
	mw.TokenVerifier
	SignUp(ctx context.Context, email, password string) (string, *domid.User, error)
	SignIn(ctx context.Context, email, password string) (string, *domid.User, error)
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
}

// Config carries the cross-cutting options applied at the router level.
type Config struct {
	AllowedOrigins []string
	RateLimit      *mw.RateLimiter
	Health         map[string]mw.HealthChecker
}

func NewRouter(ident IdentityService, creds credentials.Repository, assess *appassess.Service, clock application.Clock, cfg Config) http.Handler {
	r := &Router{identity: ident, credentials: creds, assessments: assess, clock: clock}
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(mw.Logging)
	mux.Use(mw.CountRequests)
	if len(cfg.AllowedOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}))
	}
	mux.Get("/health", mw.HealthHandler(cfg.Health))
	mux.Get("/metrics", mw.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		// public endpoints are limited per remote address
		rt.Group(func(pub chi.Router) {
			if cfg.RateLimit != nil {
				pub.Use(cfg.RateLimit.Middleware)
			}
			pub.Post("/auth/signup", r.wrap(r.handleSignUp))
			pub.Post("/auth/signin", r.wrap(r.handleSignIn))
			pub.Post("/auth/password-reset", r.wrap(r.handlePasswordReset))
			pub.Post("/auth/password-reset/confirm", r.wrap(r.handlePasswordResetConfirm))
		})

		rt.Group(func(priv chi.Router) {
			// the limiter runs after auth so each user gets their own bucket
			priv.Use(mw.BearerAuth(ident))
			if cfg.RateLimit != nil {
				priv.Use(cfg.RateLimit.Middleware)
			}

			priv.Post("/auth/signout", r.wrap(r.handleSignOut))
			priv.Get("/auth/session", r.wrap(r.handleSession))

			priv.Put("/credentials/{provider}", r.wrap(r.handlePutCredential))
			priv.Get("/credentials/{provider}", r.wrap(r.handleGetCredential))

			priv.Post("/sessions", r.wrap(r.handleCreateSession))
			priv.Get("/sessions/{id}", r.wrap(r.handleGetSession))
			priv.Delete("/sessions/{id}", r.wrap(r.handleCloseSession))
			priv.Post("/sessions/{id}/regulations/{regulation}", r.wrap(r.handleToggleRegulation))
			priv.Put("/sessions/{id}/document", r.wrap(r.handleSetDocument))
			priv.Post("/sessions/{id}/analyze", r.wrap(r.handleAnalyze))
			priv.Post("/sessions/{id}/questionnaire", r.wrap(r.handleQuestionnaire))
			priv.Get("/sessions/{id}/export", r.wrap(r.handleExport))
			priv.Post("/sessions/{id}/export", r.wrap(r.handleArchiveExport))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		switch {
		case errors.Is(err, domid.ErrValidation), errors.Is(err, compliance.ErrUnknownRegulation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domid.ErrInvalidCredentials), errors.Is(err, domid.ErrInvalidToken):
			writeError(w, http.StatusUnauthorized, err.Error())
		case errors.Is(err, domid.ErrEmailTaken):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, domid.ErrUserNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, appassess.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, appassess.ErrNoReport):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, appassess.ErrArchiveDisabled):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, appassess.ErrUnknownMode), errors.Is(err, appassess.ErrSessionClosed):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, compliance.ErrEmptyDocument),
			errors.Is(err, compliance.ErrNoRegulations),
			errors.Is(err, compliance.ErrNoCredential):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, compliance.ErrRequestFailed), errors.Is(err, compliance.ErrParse):
			slog.Warn("analysis pipeline error", "path", req.URL.Path, "error", err)
			writeError(w, http.StatusBadGateway, retryMessage)
		case errors.Is(err, errBadRequest):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("internal error", "path", req.URL.Path, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

var errBadRequest = errors.New("bad request")

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
