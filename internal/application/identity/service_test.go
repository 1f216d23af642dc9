package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compliai/compliai/internal/application"
	domain "github.com/compliai/compliai/internal/domain/identity"
	"github.com/compliai/compliai/internal/infra/db/memory"
)

func newService() *Service {
	return &Service{
		Users:    memory.NewUserRepository(),
		Secret:   []byte("test-secret"),
		TokenTTL: time.Hour,
		ResetTTL: 15 * time.Minute,
		Clock:    application.SystemClock{},
	}
}

func TestSignUpAndSessionRestore(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	token, user, err := svc.SignUp(ctx, "Alex@Example.com", "Sup3rSecret")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "alex@example.com", user.Email)
	assert.NotEqual(t, "Sup3rSecret", user.PasswordHash)

	restored, err := svc.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, restored.ID)
}

func TestSignUpValidation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, _, err := svc.SignUp(ctx, "not-an-email", "Sup3rSecret")
	assert.Error(t, err)

	for _, weak := range []string{"short1A", "alllowercase1", "ALLUPPERCASE1", "NoDigitsHere"} {
		_, _, err := svc.SignUp(ctx, "a@example.com", weak)
		assert.Error(t, err, "password %q should be rejected", weak)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, _, err := svc.SignUp(ctx, "a@example.com", "Sup3rSecret")
	require.NoError(t, err)
	_, _, err = svc.SignUp(ctx, "A@example.com", "An0therSecret")
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestSignIn(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, _, err := svc.SignUp(ctx, "a@example.com", "Sup3rSecret")
	require.NoError(t, err)

	token, user, err := svc.SignIn(ctx, "a@example.com", "Sup3rSecret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "a@example.com", user.Email)

	_, _, err = svc.SignIn(ctx, "a@example.com", "WrongPass1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, _, err = svc.SignIn(ctx, "nobody@example.com", "Sup3rSecret")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestVerifyRejectsGarbageAndResetTokens(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, _, err := svc.SignUp(ctx, "a@example.com", "Sup3rSecret")
	require.NoError(t, err)

	_, err = svc.Verify(ctx, "not.a.token")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	// a reset token must not act as a session token
	reset, err := svc.RequestPasswordReset(ctx, "a@example.com")
	require.NoError(t, err)
	_, err = svc.Verify(ctx, reset)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestPasswordResetFlow(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, _, err := svc.SignUp(ctx, "a@example.com", "Sup3rSecret")
	require.NoError(t, err)

	reset, err := svc.RequestPasswordReset(ctx, "a@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.ConfirmPasswordReset(ctx, reset, "Fresh3rSecret"))

	_, _, err = svc.SignIn(ctx, "a@example.com", "Sup3rSecret")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, _, err = svc.SignIn(ctx, "a@example.com", "Fresh3rSecret")
	assert.NoError(t, err)
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	svc := newService()
	_, err := svc.RequestPasswordReset(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
