package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/compliai/compliai/internal/application"
	domain "github.com/compliai/compliai/internal/domain/identity"
)

const (
	purposeSession = "session"
	purposeReset   = "reset"
)

// Claims carried in session and password-reset tokens.
type Claims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Service implements the identity use-cases: sign-up, sign-in, session
// restore and password reset. Tokens are HS256 JWTs; sign-out is a
// client-side token discard acknowledged by the server.
type Service struct {
	Users    domain.Repository
	Secret   []byte
	TokenTTL time.Duration
	ResetTTL time.Duration
	Clock    application.Clock
}

// SignUp registers a new account and returns a session token for it.
func (s *Service) SignUp(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = domain.NormalizeEmail(email)
	if err := domain.ValidateEmail(email); err != nil {
		return "", nil, err
	}
	if err := domain.ValidatePassword(password); err != nil {
		return "", nil, err
	}
	if _, err := s.Users.ByEmail(ctx, email); err == nil {
		return "", nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return "", nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}
	user := &domain.User{
		ID:           domain.UserID(uuid.New().String()),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.Clock.Now().UTC(),
	}
	if err := s.Users.Create(ctx, user); err != nil {
		return "", nil, err
	}
	token, err := s.mint(user, purposeSession, s.TokenTTL)
	return token, user, err
}

// SignIn verifies the password and returns a session token.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.Users.ByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, domain.ErrUserNotFound) {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	token, err := s.mint(user, purposeSession, s.TokenTTL)
	return token, user, err
}

// Verify restores the user behind a session token.
func (s *Service) Verify(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.parse(token, purposeSession)
	if err != nil {
		return nil, err
	}
	user, err := s.Users.ByID(ctx, domain.UserID(claims.Subject))
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidToken
	}
	return user, err
}

// RequestPasswordReset issues a short-lived reset token for the account.
// Delivery is left to the caller; unknown addresses still return an error so
// the HTTP layer can decide what to disclose.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.Users.ByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return "", err
	}
	return s.mint(user, purposeReset, s.ResetTTL)
}

// ConfirmPasswordReset sets a new password for the token's account.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	claims, err := s.parse(token, purposeReset)
	if err != nil {
		return err
	}
	if err := domain.ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.Users.UpdatePassword(ctx, domain.UserID(claims.Subject), string(hash))
}

func (s *Service) mint(user *domain.User, purpose string, ttl time.Duration) (string, error) {
	now := s.Clock.Now()
	claims := Claims{
		Email:   user.Email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(user.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *Service) parse(tokenStr, purpose string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Purpose != purpose {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}
