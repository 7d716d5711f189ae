// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

/*
Package session owns the durable credential slot and the active session.

A session is three persisted keys written and cleared together:
phoneNumber (identity marker), accessToken, refreshToken. Stores report a
session only when all three are present.

Manager serializes refreshes. When several authenticated calls are refused
with 401 at the same time, one PUT /tokens is issued and every caller
retries with its result:

	pair, err := mgr.Refresh(ctx, rejectedAccessToken)
	switch {
	case errors.Is(err, session.ErrSessionMissing):
		// nothing to refresh with
	case errors.Is(err, session.ErrSessionExpired):
		// refresh refused; all keys were cleared
	}

Restore runs once at startup and refreshes a stored session so stale
sessions are dropped before the first command runs.
*/
package session
