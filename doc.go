// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

/*
Package main provides the entry point for the voxpop terminal client.

voxpop talks to the VoxPop polling service: users log in with a one-time
code sent by SMS, list and create polls, and toggle votes.

# Running

Configuration comes from a .env file, environment variables or flags:

	CORE_API_URL=https://core.example.com voxpop polls -sort most-votes

Or with flags:

	voxpop -core-url https://core.example.com -log-level debug polls

# Commands

	voxpop login -phone +5511999998888
	voxpop whoami
	voxpop polls [-sort S] [-mine] [-voted] [-mode M] [-page N] [-page-size N]
	voxpop create -question Q -option A -option B [-mode multiple] [-expires 48h]
	voxpop vote POLL OPTION [OPTION...]
	voxpop logout

# Configuration

  - CORE_API_URL (-core-url): polls API (default: http://localhost:5001)
  - IDENTITY_API_URL (-identity-url): OTP and token API (default: http://localhost:5002)
  - STORE_TYPE (-store): sqlite, postgres or memory (default: sqlite)
  - STORE_URL (-store-url): sqlite path or Postgres URL
  - LOG_LEVEL (-log-level): debug, info, warn, error (default: warn)

Logs go to stderr; command output goes to stdout.

# Session

The session (phone number, access token, refresh token) lives in the
credential store. Before each command other than login and logout the
stored session is refreshed once; if that fails the session is cleared.
During a command any 401 triggers one shared refresh and one retry.

# Architecture

  - apiclient: REST client and authenticated gateway (refresh and retry)
  - ledger: client-side vote mirror with single-flight toggles
  - session: session manager and credential stores
  - auth: OTP login flow and token claims
  - handlers: command handlers and output rendering
  - router: command dispatch
  - middleware: HTTP transport logging and JSON helpers
  - models: wire and domain types
  - db: credential database connection and schema
  - cliparse: configuration parsing
  - testutil: in-memory fake of the REST APIs for tests

See package documentation for each component.
*/
package main
