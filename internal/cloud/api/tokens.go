package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"laptop-checkpoint/internal/cloud/config"
	"laptop-checkpoint/internal/cloud/models"
	"laptop-checkpoint/internal/cloud/sessions"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the payload of an access token. Subject is the user id.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// tokenIssuer signs HS256 access tokens and keeps opaque refresh tokens in
// the session store
type tokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	sessions   sessions.Store
	now        func() time.Time
}

func newTokenIssuer(cfg config.AuthConfig, store sessions.Store) *tokenIssuer {
	return &tokenIssuer{
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  cfg.JWTExpiration,
		refreshTTL: cfg.RefreshExpiration,
		sessions:   store,
		now:        time.Now,
	}
}

// issue creates a new access/refresh pair for the user
func (ti *tokenIssuer) issue(ctx context.Context, user *models.User) (*models.TokenResponse, error) {
	now := ti.now()
	claims := Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.accessTTL)),
			ID:        uuid.New().String(),
		},
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken := uuid.New().String()
	if err := ti.sessions.Save(ctx, refreshToken, user.ID, ti.refreshTTL); err != nil {
		return nil, err
	}

	return &models.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         &models.UserInfo{ID: user.ID, Email: user.Email, Role: user.Role},
	}, nil
}

// parse validates an access token and returns its claims
func (ti *tokenIssuer) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ti.secret, nil
	}, jwt.WithTimeFunc(ti.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid access token")
	}
	return claims, nil
}
