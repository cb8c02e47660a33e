package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"laptop-checkpoint/internal/database"
)

// Tokens is the stored access/refresh token pair
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenStore persists the token pair between runs
type TokenStore interface {
	// Load returns nil, nil when no tokens are stored
	Load(ctx context.Context) (*Tokens, error)
	Save(ctx context.Context, tokens Tokens) error
	Clear(ctx context.Context) error
}

// documentStore is the part of *database.DB the token store needs
type documentStore interface {
	GetDocument(ctx context.Context, key string) ([]byte, bool, error)
	PutDocument(ctx context.Context, key string, value []byte) error
	DeleteDocument(ctx context.Context, key string) error
}

// DocumentTokenStore keeps tokens in the local database under the auth_tokens
// key, encrypted when the database has a key
type DocumentTokenStore struct {
	docs documentStore
}

// NewDocumentTokenStore creates a token store over the local database
func NewDocumentTokenStore(docs documentStore) *DocumentTokenStore {
	return &DocumentTokenStore{docs: docs}
}

func (s *DocumentTokenStore) Load(ctx context.Context) (*Tokens, error) {
	raw, found, err := s.docs.GetDocument(ctx, database.KeyAuthTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to read auth tokens: %w", err)
	}
	if !found {
		return nil, nil
	}

	var tokens Tokens
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return nil, fmt.Errorf("failed to decode auth tokens: %w", err)
	}
	return &tokens, nil
}

func (s *DocumentTokenStore) Save(ctx context.Context, tokens Tokens) error {
	raw, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("failed to encode auth tokens: %w", err)
	}
	if err := s.docs.PutDocument(ctx, database.KeyAuthTokens, raw); err != nil {
		return fmt.Errorf("failed to store auth tokens: %w", err)
	}
	return nil
}

func (s *DocumentTokenStore) Clear(ctx context.Context) error {
	if err := s.docs.DeleteDocument(ctx, database.KeyAuthTokens); err != nil {
		return fmt.Errorf("failed to clear auth tokens: %w", err)
	}
	return nil
}

// MemoryTokenStore holds tokens for the lifetime of the process
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens *Tokens
}

func (s *MemoryTokenStore) Load(ctx context.Context) (*Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		return nil, nil
	}
	t := *s.tokens
	return &t, nil
}

func (s *MemoryTokenStore) Save(ctx context.Context, tokens Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = &tokens
	return nil
}

func (s *MemoryTokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = nil
	return nil
}
