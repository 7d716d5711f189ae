// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - CoreAPIURL: polls and votes API (default: http://localhost:5001)
  - IdentityAPIURL: OTP and token API (default: http://localhost:5002)
  - StoreType: credential store, sqlite, postgres or memory (default: sqlite)
  - StoreURL: sqlite file path or Postgres connection string
  - LogLevel: slog level name (default: warn)
  - Args: the command and its arguments

# CLI Flags

	-core-url      Core API base URL
	-identity-url  Identity API base URL
	-store         Credential store type
	-store-url     Credential store path or URL
	-log-level     Log level

Global flags come before the command:

	voxpop -log-level debug polls -sort newest

# Environment Variables

Flags fall back to environment variables, parsed with caarlos0/env:

	CORE_API_URL     → -core-url
	IDENTITY_API_URL → -identity-url
	STORE_TYPE       → -store
	STORE_URL        → -store-url
	LOG_LEVEL        → -log-level

CLI flags take precedence over environment variables. LoadDotEnv reads a
.env file first; variables already in the environment are kept.

# Validation

ParseFlags returns an error if:

  - a base URL is empty
  - the store type is unknown
  - the store is postgres and no URL is given
  - the log level is not a slog level name

A sqlite store without a URL uses DefaultStorePath, a file under the user's
config directory.
*/
package cliparse
