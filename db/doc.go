// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

/*
Package db opens the database that backs the durable credential store.

# Drivers

Two store types are supported:

  - sqlite (default): a local file, via modernc.org/sqlite (pure Go, no cgo)
  - postgres: a shared database, via github.com/lib/pq

	conn, err := db.Open(db.TypeSQLite, "/home/me/.config/voxpop/session.db")

Open creates the parent directory of a sqlite file, pings the database,
and applies the schema.

# Schema

A single key/value table:

	credential
	  name        TEXT PRIMARY KEY   -- phoneNumber | accessToken | refreshToken
	  value       TEXT NOT NULL
	  updated_at  TIMESTAMP NOT NULL

CreateSchema is idempotent (IF NOT EXISTS) and is called by Open.
*/
package db
