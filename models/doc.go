// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

/*
Package models defines request, response, and domain types for the VoxPop API.

# Request Types

Types encoded as JSON request bodies:

  - GenerateCodeRequest: target, channel
  - GenerateTokensRequest: target, channel, code
  - RefreshTokenRequest: token
  - CreatePollRequest: question, expiresAt, voteMode, options

ListPollsParams is encoded as a query string instead:

	q := models.ListPollsParams{SortBy: models.SortTotalVotesDesc, VotedByMe: true}.Query()
	// sortBy=3&votedByMe=true

# Response Types

  - TokenPair: accessToken, refreshToken
  - PollsResponse: items
  - ErrorResponse: error, message

# Domain Types

Poll and Option mirror the server snapshot. Option.Votes is the authoritative
tally at snapshot time and Option.HasVoted the current user's membership.

	if poll.IsExpired(time.Now()) {
		// no further votes
	}

# Timestamps

Expiry timestamps sent to the server always carry a numeric offset:

	s := models.FormatExpiresAt(t) // 2026-06-01T14:30:00-03:00
*/
package models
