// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

package apiclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/guilhermeosaka/voxpop-web/middleware"
	"github.com/guilhermeosaka/voxpop-web/models"
)

const tracerName = "github.com/guilhermeosaka/voxpop-web/apiclient"

// Session refreshes credentials after a 401. session.Manager implements it.
type Session interface {
	Refresh(ctx context.Context, rejected string) (models.TokenPair, error)
}

// TokenSource yields the current access token ("" when logged out)
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Gateway performs bearer-authenticated calls with at most one
// refresh-and-retry cycle per call.
type Gateway struct {
	client  *Client
	session Session
	tracer  trace.Tracer
}

func NewGateway(client *Client, session Session) *Gateway {
	return &Gateway{
		client:  client,
		session: session,
		tracer:  otel.Tracer(tracerName),
	}
}

// Call sends method target with a bearer token. Any status other than 401
// is returned as is. On 401 the session is refreshed once and the request
// retried once with the new access token; that response is returned
// whatever its status. Refresh failures surface as session.ErrSessionMissing
// or session.ErrSessionExpired.
func (g *Gateway) Call(ctx context.Context, method, target string, body interface{}, accessToken string) (*http.Response, error) {
	ctx, span := g.tracer.Start(ctx, "apiclient.Call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", target),
		),
	)
	defer span.End()

	resp, refreshed, err := g.call(ctx, method, target, body, accessToken)
	span.SetAttributes(attribute.Bool("voxpop.token_refreshed", refreshed))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	return resp, nil
}

func (g *Gateway) call(ctx context.Context, method, target string, body interface{}, accessToken string) (*http.Response, bool, error) {
	// encoded once so the retry sends identical bytes
	payload, err := middleware.JSONBody(body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode request body: %w", err)
	}

	resp, err := g.client.send(ctx, method, target, payload, accessToken)
	if err != nil {
		return nil, false, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, false, nil
	}
	middleware.DrainAndClose(resp.Body)

	slog.Debug("access token rejected, refreshing", "method", method, "target", target)
	pair, err := g.session.Refresh(ctx, accessToken)
	if err != nil {
		return nil, false, err
	}

	resp, err = g.client.send(ctx, method, target, payload, pair.AccessToken)
	if err != nil {
		return nil, true, err
	}
	return resp, true, nil
}

func (g *Gateway) votesURL(pollID, optionID string) string {
	return g.client.CoreURL("/polls/" + url.PathEscape(pollID) + "/votes/" + url.PathEscape(optionID))
}

// ListPolls fetches polls with the caller's identity, so HasVoted and
// HasCreated reflect the current user.
func (g *Gateway) ListPolls(ctx context.Context, accessToken string, params models.ListPollsParams) ([]models.Poll, error) {
	resp, err := g.Call(ctx, http.MethodGet, g.client.pollsURL(params), nil, accessToken)
	if err != nil {
		return nil, err
	}
	var out models.PollsResponse
	if err := expect(resp, "fetch polls", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// CreatePoll creates a poll (POST /polls)
func (g *Gateway) CreatePoll(ctx context.Context, accessToken string, req models.CreatePollRequest) (models.Poll, error) {
	resp, err := g.Call(ctx, http.MethodPost, g.client.CoreURL("/polls"), req, accessToken)
	if err != nil {
		return models.Poll{}, err
	}
	var poll models.Poll
	if err := expect(resp, "create poll", &poll); err != nil {
		return models.Poll{}, err
	}
	return poll, nil
}

// Vote adds optionID to the caller's votes (PUT /polls/{pollId}/votes/{optionId})
func (g *Gateway) Vote(ctx context.Context, accessToken, pollID, optionID string) error {
	resp, err := g.Call(ctx, http.MethodPut, g.votesURL(pollID, optionID), nil, accessToken)
	if err != nil {
		return err
	}
	return expect(resp, "vote", nil)
}

// DeleteVote removes optionID from the caller's votes
func (g *Gateway) DeleteVote(ctx context.Context, accessToken, pollID, optionID string) error {
	resp, err := g.Call(ctx, http.MethodDelete, g.votesURL(pollID, optionID), nil, accessToken)
	if err != nil {
		return err
	}
	return expect(resp, "delete vote", nil)
}

// Voter binds the gateway to a token source for the vote ledger. The token
// is read on every call so a refresh by an earlier call is picked up.
type Voter struct {
	gateway *Gateway
	tokens  TokenSource
}

func (g *Gateway) Voter(tokens TokenSource) *Voter {
	return &Voter{gateway: g, tokens: tokens}
}

func (v *Voter) Vote(ctx context.Context, pollID, optionID string) error {
	token, err := v.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}
	return v.gateway.Vote(ctx, token, pollID, optionID)
}

func (v *Voter) Unvote(ctx context.Context, pollID, optionID string) error {
	token, err := v.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}
	return v.gateway.DeleteVote(ctx, token, pollID, optionID)
}
