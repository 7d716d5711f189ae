// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

/*
Package middleware provides HTTP transport middleware and JSON helpers.

# Request Logging

Wrap the client transport with request logging:

	httpClient := &http.Client{
		Transport: middleware.WithLogging(http.DefaultTransport),
	}

Each request gets an X-Request-ID (a random UUID) unless one is already set.
Completion is logged with method, path, status, request_id and duration_ms;
transport failures are logged as warnings.

# JSON Helpers

Encode request bodies and decode responses:

	body, err := middleware.JSONBody(models.RefreshTokenRequest{Token: rt})

	var pair models.TokenPair
	if err := middleware.ParseJSONBody(resp.Body, &pair); err != nil {
		return err
	}

Non-2xx bodies can be read for a server message:

	msg := middleware.ReadErrorMessage(resp.Body)

JSONResponse and ErrorResponse write JSON from an http.Handler; the fake
API server in testutil is built on them.
*/
package middleware
