// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

/*
Package ledger keeps the client-side mirror of poll vote counts and the
current user's selections.

# Mirror

A Ledger is seeded from a poll snapshot and afterwards moves only when the
server confirms a vote or unvote. There is no rollback path because nothing
changes before the server answers.

	l := ledger.New(poll)
	outcome, err := l.Toggle(ctx, gateway.Voter(manager), optionID)

Toggle semantics:

  - option already selected: DELETE the vote, then decrement it (never below 0)
  - option not selected: PUT the vote, then increment it
  - single-choice polls: a confirmed vote also decrements the previous choice
  - a failed call leaves the mirror untouched and returns the error

# Concurrency

Only one toggle per poll may be in flight; others fail fast with ErrBusy.
The network call runs without holding the lock, so reads stay available and
State reports StatePending for the option being toggled.

Reseed replaces the mirror with a fresh snapshot and bumps a version. A
toggle that started before the reseed returns OutcomeDiscarded and leaves
the fresh snapshot as is, since the server already counted the vote.

# Derived values

TotalVotes is summed from the per-option counts on every read. Percentage
is 0 when the total is 0.

# Board

Board holds one Ledger per poll of a list fetch. Sync re-seeds known polls
in place, adds new ones and forgets polls no longer listed.
*/
package ledger
