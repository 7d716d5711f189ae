// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported store types
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Open connects to the credential database and makes sure the schema exists.
// For sqlite the URL is a file path (or ":memory:"); its directory is created.
func Open(storeType, storeURL string) (*sql.DB, error) {
	if strings.TrimSpace(storeURL) == "" {
		return nil, fmt.Errorf("store URL is required")
	}

	var driver, dsn string
	switch storeType {
	case TypeSQLite:
		driver = "sqlite"
		dsn = storeURL
		if storeURL != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(filepath.Clean(storeURL)), 0o700); err != nil {
				return nil, fmt.Errorf("failed to create store directory: %w", err)
			}
			dsn = filepath.Clean(storeURL) + "?_pragma=busy_timeout(5000)"
		}
	case TypePostgres:
		driver = "postgres"
		dsn = storeURL
	default:
		return nil, fmt.Errorf("unsupported store type %q", storeType)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", storeType, err)
	}
	if storeType == TypeSQLite {
		// every connection to :memory: is a separate database
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping %s store: %w", storeType, err)
	}

	if err := CreateSchema(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}

// CreateSchema creates all tables needed for the credential store.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// One row per persisted key (phoneNumber, accessToken, refreshToken)
const schema = `
CREATE TABLE IF NOT EXISTS credential (
    name TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`
