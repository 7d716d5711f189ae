// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/guilhermeosaka/voxpop-web/middleware"
	"github.com/guilhermeosaka/voxpop-web/models"
)

// Client talks to the core (polls) and identity (codes, tokens) APIs
// without credentials. Gateway layers bearer authentication on top.
type Client struct {
	coreURL     string
	identityURL string
	http        *http.Client
}

// New creates a client. A nil httpClient gets a logging transport and no
// timeout; timeouts are left to the caller's context.
func New(coreURL, identityURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Transport: middleware.WithLogging(http.DefaultTransport)}
	}
	return &Client{
		coreURL:     strings.TrimRight(coreURL, "/"),
		identityURL: strings.TrimRight(identityURL, "/"),
		http:        httpClient,
	}
}

// CoreURL joins path onto the core API base URL
func (c *Client) CoreURL(path string) string {
	return c.coreURL + path
}

func (c *Client) identity(path string) string {
	return c.identityURL + path
}

// send issues one request. payload may be nil; token may be empty.
func (c *Client) send(ctx context.Context, method, target string, payload []byte, token string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s %s: %w", ErrNetworkUnreachable, method, target, err)
	}
	return resp, nil
}

// expect turns a non-2xx into a RequestError and decodes a 2xx into out
// (when out is non-nil). The body is always closed.
func expect(resp *http.Response, op string, out interface{}) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RequestError{
			Op:      op,
			Status:  resp.StatusCode,
			Message: middleware.ReadErrorMessage(resp.Body),
		}
	}
	if out == nil {
		middleware.DrainAndClose(resp.Body)
		return nil
	}
	if err := middleware.ParseJSONBody(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

func (c *Client) pollsURL(params models.ListPollsParams) string {
	target := c.CoreURL("/polls")
	if q := params.Query().Encode(); q != "" {
		target += "?" + q
	}
	return target
}

// ListPolls fetches polls anonymously (GET /polls)
func (c *Client) ListPolls(ctx context.Context, params models.ListPollsParams) ([]models.Poll, error) {
	resp, err := c.send(ctx, http.MethodGet, c.pollsURL(params), nil, "")
	if err != nil {
		return nil, err
	}
	var out models.PollsResponse
	if err := expect(resp, "fetch polls", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// GenerateCode asks the identity API to dispatch an OTP (POST /codes/otp)
func (c *Client) GenerateCode(ctx context.Context, target string, channel models.Channel) error {
	payload, err := middleware.JSONBody(models.GenerateCodeRequest{Target: target, Channel: channel})
	if err != nil {
		return fmt.Errorf("failed to encode code request: %w", err)
	}
	resp, err := c.send(ctx, http.MethodPost, c.identity("/codes/otp"), payload, "")
	if err != nil {
		return err
	}
	return expect(resp, "generate code", nil)
}

// GenerateTokens exchanges an OTP for a token pair (POST /tokens/otp)
func (c *Client) GenerateTokens(ctx context.Context, target, code string, channel models.Channel) (models.TokenPair, error) {
	payload, err := middleware.JSONBody(models.GenerateTokensRequest{Target: target, Channel: channel, Code: code})
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("failed to encode tokens request: %w", err)
	}
	resp, err := c.send(ctx, http.MethodPost, c.identity("/tokens/otp"), payload, "")
	if err != nil {
		return models.TokenPair{}, err
	}
	var pair models.TokenPair
	if err := expect(resp, "generate tokens", &pair); err != nil {
		return models.TokenPair{}, err
	}
	return pair, nil
}

// RefreshTokens exchanges a refresh token for a new pair (PUT /tokens)
func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	payload, err := middleware.JSONBody(models.RefreshTokenRequest{Token: refreshToken})
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("failed to encode refresh request: %w", err)
	}
	resp, err := c.send(ctx, http.MethodPut, c.identity("/tokens"), payload, "")
	if err != nil {
		return models.TokenPair{}, err
	}
	var pair models.TokenPair
	if err := expect(resp, "refresh tokens", &pair); err != nil {
		return models.TokenPair{}, err
	}
	return pair, nil
}
