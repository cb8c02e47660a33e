package local

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"laptop-checkpoint/internal/database"
	"laptop-checkpoint/internal/store"
	"laptop-checkpoint/internal/types"
)

// DefaultIdentities is returned until an identity is registered locally.
// Seed ids are numeric, so scan never resolves them; bulk selection does.
func DefaultIdentities() []types.Identity {
	return []types.Identity{
		{ID: "12345", Name: "John Smith", Department: "IT", Email: "john.smith@company.com"},
		{ID: "67890", Name: "Jane Doe", Department: "HR", Email: "jane.doe@company.com"},
		{ID: "11111", Name: "Bob Johnson", Department: "Finance", Email: "bob.johnson@company.com"},
		{ID: "22222", Name: "Alice Brown", Department: "Marketing", Email: "alice.brown@company.com"},
	}
}

// DirectoryStore keeps identities as one JSON array document
type DirectoryStore struct {
	db *database.DB
}

// NewDirectoryStore creates a directory over db
func NewDirectoryStore(db *database.DB) *DirectoryStore {
	return &DirectoryStore{db: db}
}

// ListAll returns the registered identities, or the seed set if none were ever saved
func (s *DirectoryStore) ListAll(ctx context.Context) ([]types.Identity, error) {
	raw, found, err := s.db.GetDocument(ctx, database.KeyEmployees)
	if err != nil {
		return nil, storageError("get employees", err)
	}

	identities, err := decodeIdentities(raw, found)
	if err != nil {
		return nil, storageError("get employees", err)
	}
	return identities, nil
}

// FindByDeviceID returns the identity with the exact id, or nil
func (s *DirectoryStore) FindByDeviceID(ctx context.Context, id string) (*types.Identity, error) {
	identities, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return store.FindIdentity(identities, id), nil
}

// Save registers a new identity. The first save materializes the seed set so
// registering one identity does not hide the defaults.
func (s *DirectoryStore) Save(ctx context.Context, identity types.Identity) error {
	identity.ID = strings.TrimSpace(identity.ID)
	identity.Name = strings.TrimSpace(identity.Name)
	if identity.ID == "" || identity.Name == "" {
		return store.ValidationError("identity id and name are required")
	}

	var duplicate bool
	err := s.db.UpdateDocument(ctx, database.KeyEmployees, func(current []byte, found bool) ([]byte, error) {
		identities, err := decodeIdentities(current, found)
		if err != nil {
			return nil, err
		}
		if store.FindIdentity(identities, identity.ID) != nil {
			duplicate = true
			return nil, fmt.Errorf("identity %s already exists", identity.ID)
		}
		return json.Marshal(append(identities, identity))
	})
	if duplicate {
		return store.ValidationError("identity %s already exists", identity.ID)
	}
	if err != nil {
		return storageError("save employee", err)
	}
	return nil
}

func decodeIdentities(raw []byte, found bool) ([]types.Identity, error) {
	if !found {
		return DefaultIdentities(), nil
	}
	var identities []types.Identity
	if err := json.Unmarshal(raw, &identities); err != nil {
		return nil, fmt.Errorf("failed to decode employees: %w", err)
	}
	return identities, nil
}
