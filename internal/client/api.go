package client

import (
	"context"
	"fmt"
	"net/http"

	"laptop-checkpoint/internal/cloud/models"
)

// Login authenticates an operator and stores the returned token pair
func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.UserInfo, error) {
	req := &Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body: &models.LoginRequest{
			Email:    email,
			Password: password,
		},
		RequireAuth: false,
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}

	var tokenResp models.TokenResponse
	if err := parseJSONResponse(resp, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse login response: %w", err)
	}

	if err := c.tokens.Save(ctx, Tokens{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
	}); err != nil {
		return nil, err
	}

	c.logger.WithField("email", email).Info("Logged in successfully")
	return tokenResp.User, nil
}

// Logout revokes the refresh token on the service and clears the stored pair.
// The local pair is cleared even when the service cannot be reached.
func (c *HTTPClient) Logout(ctx context.Context) error {
	tokens, err := c.tokens.Load(ctx)
	if err != nil {
		return err
	}
	if tokens == nil {
		return nil
	}

	if tokens.RefreshToken != "" {
		_, err := c.Do(ctx, &Request{
			Method:      http.MethodPost,
			Path:        "/auth/logout",
			Body:        &models.RefreshRequest{RefreshToken: tokens.RefreshToken},
			RequireAuth: false,
		})
		if err != nil {
			c.logger.WithError(err).Warn("Failed to revoke refresh token")
		}
	}

	return c.tokens.Clear(ctx)
}

// GetLogStats retrieves the service-side daily counters
func (c *HTTPClient) GetLogStats(ctx context.Context) (*models.LogStats, error) {
	resp, err := c.Do(ctx, &Request{
		Method:      http.MethodGet,
		Path:        "/logs/stats",
		RequireAuth: true,
	})
	if err != nil {
		return nil, fmt.Errorf("stats retrieval failed: %w", err)
	}

	var stats models.LogStats
	if err := parseJSONResponse(resp, &stats); err != nil {
		return nil, fmt.Errorf("failed to parse stats response: %w", err)
	}
	return &stats, nil
}

// CheckConnectivity performs a simple connectivity check
func (c *HTTPClient) CheckConnectivity(ctx context.Context) error {
	req := &Request{
		Method:      http.MethodGet,
		Path:        "/health",
		RequireAuth: false,
	}

	_, err := c.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("connectivity check failed: %w", err)
	}

	return nil
}
