// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

/*
Package apiclient binds the VoxPop core and identity REST APIs.

# Client

Client performs unauthenticated calls:

	client := apiclient.New("http://localhost:5001", "http://localhost:5002", nil)
	polls, err := client.ListPolls(ctx, models.ListPollsParams{})
	err = client.GenerateCode(ctx, phone, models.ChannelSMS)
	pair, err := client.GenerateTokens(ctx, phone, code, models.ChannelSMS)
	pair, err = client.RefreshTokens(ctx, pair.RefreshToken)

# Gateway

Gateway performs bearer-authenticated calls. The protocol for every call:

 1. Send with Authorization: Bearer <accessToken>.
 2. Anything but 401 is returned unchanged.
 3. On 401 the Session is asked for a refreshed pair (PUT /tokens), then the
    request is retried exactly once with the new access token and that
    response is returned whatever its status.
 4. If no refresh token is stored the call fails with
    session.ErrSessionMissing; if the refresh is refused every stored key
    is cleared and the call fails with session.ErrSessionExpired. A
    cancelled refresh leaves the keys in place.

Typed operations decode 2xx bodies and turn everything else into errors:

	gw := apiclient.NewGateway(client, manager)
	poll, err := gw.CreatePoll(ctx, token, req)
	err = gw.Vote(ctx, token, pollID, optionID)
	err = gw.DeleteVote(ctx, token, pollID, optionID)

# Errors

  - *RequestError: non-2xx status (Op, Status, server Message)
  - ErrServiceUnavailable: matches a RequestError with status 503
  - ErrNetworkUnreachable: the request never got an answer

Callers use errors.Is to tell "backend is down" from "backend said no":

	switch {
	case errors.Is(err, apiclient.ErrServiceUnavailable):
	case errors.Is(err, apiclient.ErrNetworkUnreachable):
	}

# Tracing

Each Gateway.Call runs in an OpenTelemetry client span. Without an SDK
installed the global tracer is a no-op.
*/
package apiclient
