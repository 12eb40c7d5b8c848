package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amorempixels/amor_server/internal/model/dto"
	"github.com/amorempixels/amor_server/internal/pkg/jwt"
	"github.com/amorempixels/amor_server/internal/pkg/oauth"
	"github.com/amorempixels/amor_server/internal/repository"
	"github.com/amorempixels/amor_server/internal/testutil"
)

func TestAuthService_Register(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	resp, err := e.auth.Register(ctx, &dto.RegisterRequest{
		Email:    "Ana@Example.com",
		Password: "segredo123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ana@example.com", resp.User.Email)
	assert.Equal(t, "ana", resp.User.DisplayName)
	assert.Equal(t, int64(1), e.queued(t))

	_, err = e.auth.Register(ctx, &dto.RegisterRequest{Email: "ana@example.com", Password: "outrasenha"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestAuthService_Login(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	user := testutil.TestUser(t, e.db,
		testutil.WithEmail("bruno@example.com"),
		testutil.WithPasswordHash(testutil.HashPassword(t, "segredo123")))

	resp, err := e.auth.Login(ctx, &dto.LoginRequest{Email: "bruno@example.com", Password: "segredo123"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, resp.User.ID)

	claims, err := jwt.ParseToken(resp.Token, e.cfg.JWT.Secret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, err = e.auth.Login(ctx, &dto.LoginRequest{Email: "bruno@example.com", Password: "errada"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = e.auth.Login(ctx, &dto.LoginRequest{Email: "ninguem@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// github-only accounts cannot log in with a password
	testutil.TestUser(t, e.db, testutil.WithEmail("gh@example.com"))
	_, err = e.auth.Login(ctx, &dto.LoginRequest{Email: "gh@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Logout(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	user := testutil.TestUser(t, e.db)
	token, err := jwt.GenerateToken(user.ID, e.cfg.JWT.Secret, 1)
	require.NoError(t, err)
	claims, err := jwt.ParseToken(token, e.cfg.JWT.Secret)
	require.NoError(t, err)

	revoked, err := e.auth.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, e.auth.Logout(ctx, claims))

	revoked, err = e.auth.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestAuthService_GetUserByID(t *testing.T) {
	e := newEnv(t)

	user := testutil.TestUser(t, e.db)
	info, err := e.auth.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, info.Email)

	_, err = e.auth.GetUserByID(424242)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_GithubDisabled(t *testing.T) {
	e := newEnv(t)

	_, err := e.auth.GithubAuthURL(context.Background(), "/dashboard")
	assert.ErrorIs(t, err, ErrOAuthDisabled)

	_, _, err = e.auth.GithubCallback(context.Background(), "code", "unknown-state")
	assert.ErrorIs(t, err, oauth.ErrInvalidState)
}

func TestAuthService_FindOrCreateGithubUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	users := repository.NewUserRepository(e.db)

	existing := testutil.TestUser(t, e.db, testutil.WithEmail("ana@example.com"))

	// matched by e-mail and linked
	linked, err := e.auth.findOrCreateGithubUser(ctx, &oauth.GithubUser{ID: 11, Login: "ana", Email: "Ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, linked.ID)

	byGithub, err := users.GetByGithubID("11")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, byGithub.ID)

	// new account
	created, err := e.auth.findOrCreateGithubUser(ctx, &oauth.GithubUser{ID: 12, Login: "bruno", Name: "Bruno", Email: "bruno@example.com"})
	require.NoError(t, err)
	assert.NotEqual(t, existing.ID, created.ID)
	assert.Equal(t, "Bruno", created.DisplayName)
	assert.Nil(t, created.PasswordHash)

	// no e-mail, no account
	_, err = e.auth.findOrCreateGithubUser(ctx, &oauth.GithubUser{ID: 13, Login: "anon"})
	assert.ErrorIs(t, err, ErrOAuthFailed)
}
