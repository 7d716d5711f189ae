// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

package session

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/guilhermeosaka/voxpop-web/models"
)

// Persisted key names. All three are written together and cleared together.
const (
	KeyPhoneNumber  = "phoneNumber"
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
)

var allKeys = []string{KeyPhoneNumber, KeyAccessToken, KeyRefreshToken}

// Store is the durable, process-wide credential slot.
type Store interface {
	// Load returns ok=false unless all three keys are present.
	Load(ctx context.Context) (creds models.Credentials, ok bool, err error)
	Save(ctx context.Context, creds models.Credentials) error
	// SaveTokens overwrites the token pair, leaving the identity marker alone.
	SaveTokens(ctx context.Context, pair models.TokenPair) error
	Clear(ctx context.Context) error
	// RefreshToken returns "" when no refresh token is stored, even if other
	// keys are missing.
	RefreshToken(ctx context.Context) (string, error)
}

// SQLStore keeps credentials in the credential table created by db.CreateSchema.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) values(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, value FROM credential
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		values[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	return values, nil
}

func (s *SQLStore) Load(ctx context.Context) (models.Credentials, bool, error) {
	values, err := s.values(ctx)
	if err != nil {
		return models.Credentials{}, false, err
	}
	return credentialsFrom(values)
}

func (s *SQLStore) RefreshToken(ctx context.Context) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM credential WHERE name = $1
	`, KeyRefreshToken).Scan(&token)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query refresh token: %w", err)
	}
	return token, nil
}

func (s *SQLStore) Save(ctx context.Context, creds models.Credentials) error {
	return s.put(ctx, map[string]string{
		KeyPhoneNumber:  creds.PhoneNumber,
		KeyAccessToken:  creds.Tokens.AccessToken,
		KeyRefreshToken: creds.Tokens.RefreshToken,
	})
}

func (s *SQLStore) SaveTokens(ctx context.Context, pair models.TokenPair) error {
	return s.put(ctx, map[string]string{
		KeyAccessToken:  pair.AccessToken,
		KeyRefreshToken: pair.RefreshToken,
	})
}

func (s *SQLStore) put(ctx context.Context, values map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for name, value := range values {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO credential (name, value, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, name, value, now)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit credentials: %w", err)
	}
	return nil
}

func (s *SQLStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM credential WHERE name IN ($1, $2, $3)
	`, KeyPhoneNumber, KeyAccessToken, KeyRefreshToken)
	if err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// MemoryStore is a Store that lives for the process only.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Load(ctx context.Context) (models.Credentials, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return credentialsFrom(m.values)
}

func (m *MemoryStore) RefreshToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[KeyRefreshToken], nil
}

func (m *MemoryStore) Save(ctx context.Context, creds models.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[KeyPhoneNumber] = creds.PhoneNumber
	m.values[KeyAccessToken] = creds.Tokens.AccessToken
	m.values[KeyRefreshToken] = creds.Tokens.RefreshToken
	return nil
}

func (m *MemoryStore) SaveTokens(ctx context.Context, pair models.TokenPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[KeyAccessToken] = pair.AccessToken
	m.values[KeyRefreshToken] = pair.RefreshToken
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range allKeys {
		delete(m.values, k)
	}
	return nil
}

// Set writes a single raw key. Tests use it to build partial sessions.
func (m *MemoryStore) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// Has reports whether a raw key is present
func (m *MemoryStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	return ok
}

// credentialsFrom treats partial presence as absent
func credentialsFrom(values map[string]string) (models.Credentials, bool, error) {
	for _, k := range allKeys {
		if values[k] == "" {
			return models.Credentials{}, false, nil
		}
	}
	return models.Credentials{
		PhoneNumber: values[KeyPhoneNumber],
		Tokens: models.TokenPair{
			AccessToken:  values[KeyAccessToken],
			RefreshToken: values[KeyRefreshToken],
		},
	}, true, nil
}
