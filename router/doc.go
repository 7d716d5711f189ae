// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

/*
Package router maps voxpop commands to their handlers.

# Route Registration

NewRouter creates a configured Mux with all commands:

	mux := router.NewRouter(env)
	err := mux.Dispatch(ctx, cfg.Args)

# Commands

Session:

	login -phone NUMBER - Request an SMS code, prompt for it, store the session
	logout              - Clear the stored session
	whoami              - Phone number and token expiry

Polls:

	polls  - List polls (filters: -sort, -mine, -voted, -mode, -page, -page-size)
	create - Create a poll (-question, repeated -option, -mode, -expires)

Voting:

	vote POLL OPTION... - Toggle votes through the vote ledger

# Handler Initialization

The router creates handler instances with dependency injection:

	authHandler := handlers.NewAuthHandler(env)
	pollHandler := handlers.NewPollHandler(env)
	votingHandler := handlers.NewVotingHandler(env)

All handlers share one handlers.Env holding the API client, gateway,
session manager and output streams.

Dispatch returns ErrNoCommand for empty args and wraps ErrUnknownCommand
for names that were never registered.
*/
package router
