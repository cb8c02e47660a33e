package api

import (
	"context"
	"net/http"
	"testing"

	"laptop-checkpoint/internal/cloud/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"default role", models.RegisterRequest{Email: "a@company.com", Password: "password123"}, http.StatusCreated},
		{"duplicate email", models.RegisterRequest{Email: "A@company.com", Password: "password123"}, http.StatusConflict},
		{"short password", models.RegisterRequest{Email: "b@company.com", Password: "short"}, http.StatusBadRequest},
		{"bad email", models.RegisterRequest{Email: "nobody", Password: "password123"}, http.StatusBadRequest},
		{"unknown role", models.RegisterRequest{Email: "c@company.com", Password: "password123", Role: "root"}, http.StatusBadRequest},
		{"malformed body", `{"email":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/auth/register", "", tt.body, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	user, err := env.users.GetByEmail(context.Background(), "a@company.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEqual(t, "password123", user.PasswordHash)
}

func TestLogin(t *testing.T) {
	env := setupTestEnv(t)
	env.login(t)

	var errBody models.ErrorResponse
	resp := env.do(t, http.MethodPost, "/auth/login", "", models.LoginRequest{Email: "ops@company.com", Password: "wrong-password"}, &errBody)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid credentials", errBody.Message)

	resp = env.do(t, http.MethodPost, "/auth/login", "", models.LoginRequest{Email: "nobody@company.com", Password: "password123"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/auth/login", "", models.LoginRequest{Email: "ops@company.com"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var tokens models.TokenResponse
	resp = env.do(t, http.MethodPost, "/auth/login", "", models.LoginRequest{Email: "OPS@company.com", Password: "password123"}, &tokens)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	require.NotNil(t, tokens.User)
	assert.Equal(t, models.RoleAdmin, tokens.User.Role)

	claims, err := env.server.tokens.parse(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, tokens.User.ID, claims.Subject)
	assert.Equal(t, "ops@company.com", claims.Email)

	user, err := env.users.GetByEmail(context.Background(), "ops@company.com")
	require.NoError(t, err)
	assert.NotNil(t, user.LastLoginAt)

	assert.Contains(t, env.logBuf.String(), `"error_category":"security"`)
}

func TestRefreshRotatesTokens(t *testing.T) {
	env := setupTestEnv(t)

	var first models.TokenResponse
	resp := env.do(t, http.MethodPost, "/auth/register", "", models.RegisterRequest{Email: "ops@company.com", Password: "password123"}, &first)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var second models.TokenResponse
	resp = env.do(t, http.MethodPost, "/auth/refresh", "", models.RefreshRequest{RefreshToken: first.RefreshToken}, &second)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	resp = env.do(t, http.MethodGet, "/logs", second.AccessToken, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The first refresh token was consumed
	resp = env.do(t, http.MethodPost, "/auth/refresh", "", models.RefreshRequest{RefreshToken: first.RefreshToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/auth/refresh", "", models.RefreshRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	env := setupTestEnv(t)

	var tokens models.TokenResponse
	resp := env.do(t, http.MethodPost, "/auth/register", "", models.RegisterRequest{Email: "ops@company.com", Password: "password123"}, &tokens)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/auth/logout", "", models.RefreshRequest{RefreshToken: tokens.RefreshToken}, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/auth/refresh", "", models.RefreshRequest{RefreshToken: tokens.RefreshToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
