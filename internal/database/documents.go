package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// sensitiveDocuments are encrypted at rest when an encryption key is configured
var sensitiveDocuments = map[string]bool{
	KeyAuthTokens: true,
}

// GetDocument returns the stored value for key. found is false when the key was
// never written or has been removed.
func (db *DB) GetDocument(ctx context.Context, key string) (value []byte, found bool, err error) {
	return db.readDocument(ctx, db.conn, key)
}

// PutDocument replaces the whole value stored under key
func (db *DB) PutDocument(ctx context.Context, key string, value []byte) error {
	return db.writeDocument(ctx, db.conn, key, value)
}

// DeleteDocument removes key; removing a missing key is not an error
func (db *DB) DeleteDocument(ctx context.Context, key string) error {
	if _, err := db.conn.ExecContext(ctx, "DELETE FROM documents WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", key, err)
	}
	return nil
}

// UpdateDocument performs a read-modify-write of key inside one transaction.
// fn receives the current value (nil, false when absent) and returns the
// replacement.
func (db *DB) UpdateDocument(ctx context.Context, key string, fn func(current []byte, found bool) ([]byte, error)) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", key, err)
	}
	defer tx.Rollback()

	current, found, err := db.readDocument(ctx, tx, key)
	if err != nil {
		return err
	}

	next, err := fn(current, found)
	if err != nil {
		return err
	}

	if err := db.writeDocument(ctx, tx, key, next); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document %s: %w", key, err)
	}
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (db *DB) readDocument(ctx context.Context, q querier, key string) ([]byte, bool, error) {
	var stored string
	err := q.QueryRowContext(ctx, "SELECT value FROM documents WHERE key = ?", key).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get document %s: %w", key, err)
	}

	if db.encrypts(key) {
		decrypted, err := db.Decrypt(stored)
		if err != nil {
			return nil, false, fmt.Errorf("failed to decrypt document %s: %w", key, err)
		}
		return decrypted, true, nil
	}

	return []byte(stored), true, nil
}

func (db *DB) writeDocument(ctx context.Context, q querier, key string, value []byte) error {
	stored := string(value)
	if db.encrypts(key) {
		encrypted, err := db.Encrypt(value)
		if err != nil {
			return fmt.Errorf("failed to encrypt document %s: %w", key, err)
		}
		stored = encrypted
	}

	query := `
		INSERT OR REPLACE INTO documents (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
	`
	if _, err := q.ExecContext(ctx, query, key, stored); err != nil {
		return fmt.Errorf("failed to put document %s: %w", key, err)
	}
	return nil
}

func (db *DB) encrypts(key string) bool {
	return db.cipher != nil && sensitiveDocuments[key]
}
