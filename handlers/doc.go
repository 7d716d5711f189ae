// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

/*
Package handlers contains the voxpop command handlers.

# Handler Types

Each handler is a struct holding a shared *Env:

  - AuthHandler: login, logout, whoami
  - PollHandler: listing and creating polls
  - VotingHandler: toggling votes through the vote ledger

Handlers are created via constructor functions:

	env := handlers.NewEnv(client, manager, os.Stdin, os.Stdout, os.Stderr)
	pollHandler := handlers.NewPollHandler(env)

Every handler method has the router signature
func(ctx context.Context, args []string) error and parses its own flags.

# Authentication

Listing works anonymously; with a stored session it goes through the
gateway so the server can mark the user's votes and polls. Creating and
voting need a session. Any 401 is retried once after a token refresh.

# Voting Flow

	vote POLL OPTION [OPTION...]

The poll is located by paging through GET /polls, a ledger is seeded from
it, and each option (ID, 1-based position or text) is toggled in order.
The first failure stops the run; if anything was toggled the poll is
fetched again, the ledger re-seeded from it, and printed. When that fetch
fails the ledger's own counts are printed instead.

# Output

When stdout is a terminal (go-isatty) polls render as cards with bars and
relative expiry (go-humanize). Otherwise one tab-separated row per option
is written, headed by:

	poll_id question mode status option_id option votes percent selected

# Errors

Message maps errors to what the user sees: maintenance (503), network
failures, expired sessions, the ledger sentinels and a few statuses
(404, 409, 429) each get a fixed line.
*/
package handlers
