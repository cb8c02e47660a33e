package database

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database holding the checkpoint's local documents
type DB struct {
	conn   *sql.DB
	cipher cipher.AEAD
}

// Config holds database configuration options
type Config struct {
	DatabasePath string
	// EncryptionKey enables AES-GCM encryption of sensitive documents when set.
	// Must be 16, 24 or 32 bytes.
	EncryptionKey []byte
	// FullSync trades write speed for durability across power loss
	FullSync bool
}

// NewDB creates a new database connection with the specified configuration
func NewDB(config Config) (*DB, error) {
	if config.DatabasePath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Ensure database directory exists
	if err := os.MkdirAll(filepath.Dir(config.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Immediate transactions so read-modify-write of a document never hits a lock upgrade
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", config.DatabasePath)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}

	if len(config.EncryptionKey) > 0 {
		block, err := aes.NewCipher(config.EncryptionKey)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create cipher: %w", err)
		}

		gcm, err := cipher.NewGCM(block)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create GCM: %w", err)
		}
		db.cipher = gcm
	}

	if err := db.configurePragmas(config.FullSync); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to configure pragmas: %w", err)
	}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// configurePragmas sets SQLite pragmas for a small single-device store
func (db *DB) configurePragmas(fullSync bool) error {
	syncMode := "NORMAL"
	if fullSync {
		syncMode = "FULL"
	}

	pragmas := []string{
		fmt.Sprintf("PRAGMA synchronous = %s", syncMode),
		"PRAGMA cache_size = -8000", // 8MB cache
		"PRAGMA temp_store = memory",
	}

	for _, pragma := range pragmas {
		if _, err := db.conn.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Encrypted reports whether an encryption key was configured
func (db *DB) Encrypted() bool {
	return db.cipher != nil
}

// Encrypt encrypts data using AES-GCM
func (db *DB) Encrypt(plaintext []byte) (string, error) {
	if db.cipher == nil {
		return "", fmt.Errorf("encryption key not configured")
	}

	nonce := make([]byte, db.cipher.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := db.cipher.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts data using AES-GCM
func (db *DB) Decrypt(ciphertext string) ([]byte, error) {
	if db.cipher == nil {
		return nil, fmt.Errorf("encryption key not configured")
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	nonceSize := db.cipher.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := db.cipher.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return plaintext, nil
}
