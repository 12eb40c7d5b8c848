package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amorempixels/amor_server/internal/model/dto"
	"github.com/amorempixels/amor_server/internal/pkg/response"
	"github.com/amorempixels/amor_server/internal/testutil"
)

func register(t *testing.T, e *testEnv, email string) string {
	t.Helper()
	w := performRequest(e.router, "POST", "/api/v1/auth/register", dto.RegisterRequest{
		Email:       email,
		Password:    "segredo123",
		DisplayName: "Ana",
	})
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code, resp.Message)
	token, _ := dataMap(t, resp)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestAuthHandler_Register(t *testing.T) {
	e := newTestEnv(t)

	register(t, e, "Ana@Example.com")

	w := performRequest(e.router, "POST", "/api/v1/auth/register", dto.RegisterRequest{
		Email:    "ana@example.com",
		Password: "outrasenha1",
	})
	assert.Equal(t, response.CodeDuplicateAction, parseResponse(t, w).Code)
}

func TestAuthHandler_Register_InvalidBody(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"bad email", dto.RegisterRequest{Email: "not-an-email", Password: "segredo123"}},
		{"short password", dto.RegisterRequest{Email: "ana@example.com", Password: "123"}},
		{"missing fields", map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(e.router, "POST", "/api/v1/auth/register", tt.body)
			assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	e := newTestEnv(t)
	testutil.TestUser(t, e.db,
		testutil.WithEmail("bruno@example.com"),
		testutil.WithPasswordHash(testutil.HashPassword(t, "segredo123")),
	)

	w := performRequest(e.router, "POST", "/api/v1/auth/login", dto.LoginRequest{
		Email:    "bruno@example.com",
		Password: "segredo123",
	})
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.NotEmpty(t, dataMap(t, resp)["token"])

	w = performRequest(e.router, "POST", "/api/v1/auth/login", dto.LoginRequest{
		Email:    "bruno@example.com",
		Password: "errada",
	})
	assert.Equal(t, response.CodeAuthFailed, parseResponse(t, w).Code)
}

func TestAuthHandler_MeAndLogout(t *testing.T) {
	e := newTestEnv(t)
	token := register(t, e, "casal@example.com")

	w := performAuthRequest(e.router, "GET", "/api/v1/auth/me", nil, token)
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Equal(t, "casal@example.com", dataMap(t, resp)["email"])

	w = performAuthRequest(e.router, "POST", "/api/v1/auth/logout", nil, token)
	assert.Equal(t, response.CodeSuccess, parseResponse(t, w).Code)

	// the same token is refused once revoked
	w = performAuthRequest(e.router, "GET", "/api/v1/auth/me", nil, token)
	assert.Equal(t, response.CodeAuthFailed, parseResponse(t, w).Code)
}

func TestAuthHandler_Me_Unauthenticated(t *testing.T) {
	e := newTestEnv(t)

	w := performRequest(e.router, "GET", "/api/v1/auth/me", nil)
	assert.Equal(t, response.CodeAuthFailed, parseResponse(t, w).Code)
}

func TestAuthHandler_Github(t *testing.T) {
	e := newTestEnv(t)

	// no client id configured
	w := performRequest(e.router, "GET", "/api/v1/auth/github", nil)
	assert.Equal(t, response.CodeUpstreamError, parseResponse(t, w).Code)

	w = performRequest(e.router, "GET", "/api/v1/auth/github/callback", nil)
	assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)

	w = performRequest(e.router, "GET", "/api/v1/auth/github/callback?code=abc&state=unknown", nil)
	assert.Equal(t, response.CodeAuthFailed, parseResponse(t, w).Code)
}
