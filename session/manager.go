// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/guilhermeosaka/voxpop-web/models"
)

var (
	// ErrSessionMissing means a refresh was needed but no refresh token is stored.
	ErrSessionMissing = errors.New("no refresh token available")
	// ErrSessionExpired means the identity API refused the refresh token; credentials were cleared.
	ErrSessionExpired = errors.New("session expired, please log in again")
)

// Refresher exchanges a refresh token for a new pair (PUT /tokens).
type Refresher interface {
	RefreshTokens(ctx context.Context, refreshToken string) (models.TokenPair, error)
}

// Manager is the single owner of the active session. Concurrent callers
// that hit a 401 share one refresh call.
type Manager struct {
	store     Store
	refresher Refresher
	group     singleflight.Group
}

func NewManager(store Store, refresher Refresher) *Manager {
	return &Manager{store: store, refresher: refresher}
}

// Login persists a freshly issued session
func (m *Manager) Login(ctx context.Context, phoneNumber string, pair models.TokenPair) error {
	err := m.store.Save(ctx, models.Credentials{PhoneNumber: phoneNumber, Tokens: pair})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	slog.Info("session started", "phone", phoneNumber)
	return nil
}

// Logout removes every persisted key
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	slog.Info("session cleared")
	return nil
}

// Current returns the stored session, ok=false when logged out
func (m *Manager) Current(ctx context.Context) (models.Credentials, bool, error) {
	return m.store.Load(ctx)
}

// AccessToken returns the stored access token, "" when logged out
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	creds, ok, err := m.store.Load(ctx)
	if err != nil || !ok {
		return "", err
	}
	return creds.Tokens.AccessToken, nil
}

// Refresh returns a pair to retry with after rejected was refused with 401.
// If the stored access token already differs from rejected, another caller
// has refreshed and the stored pair is returned as is.
//
// The refresh itself runs detached from ctx since other callers may be
// waiting on it. Cancelling ctx only stops this caller from waiting.
func (m *Manager) Refresh(ctx context.Context, rejected string) (models.TokenPair, error) {
	ch := m.group.DoChan("refresh", func() (interface{}, error) {
		return m.refresh(context.WithoutCancel(ctx), rejected)
	})

	select {
	case <-ctx.Done():
		return models.TokenPair{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return models.TokenPair{}, res.Err
		}
		if res.Shared {
			slog.Debug("refresh shared with concurrent caller")
		}
		return res.Val.(models.TokenPair), nil
	}
}

// interrupted reports whether a refresh failed because it was cancelled or
// timed out rather than refused. Those failures keep the stored session.
func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (m *Manager) refresh(ctx context.Context, rejected string) (models.TokenPair, error) {
	creds, ok, err := m.store.Load(ctx)
	if err != nil {
		return models.TokenPair{}, err
	}
	if ok && rejected != "" && creds.Tokens.AccessToken != rejected {
		return creds.Tokens, nil
	}

	refreshToken, err := m.store.RefreshToken(ctx)
	if err != nil {
		return models.TokenPair{}, err
	}
	if refreshToken == "" {
		return models.TokenPair{}, ErrSessionMissing
	}

	pair, err := m.refresher.RefreshTokens(ctx, refreshToken)
	if err != nil && interrupted(ctx, err) {
		return models.TokenPair{}, fmt.Errorf("failed to refresh tokens: %w", err)
	}
	if err != nil {
		slog.Warn("token refresh failed, clearing session", "error", err)
		if clearErr := m.store.Clear(ctx); clearErr != nil {
			slog.Error("failed to clear session", "error", clearErr)
		}
		return models.TokenPair{}, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	if err := m.store.SaveTokens(ctx, pair); err != nil {
		return models.TokenPair{}, fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}
	slog.Info("tokens refreshed")
	return pair, nil
}

// Restore confirms a stored session at startup by refreshing it once.
// A refused refresh logs the user out; a cancelled one returns the error and
// keeps the session. ok reports whether a session survived.
func (m *Manager) Restore(ctx context.Context) (models.Credentials, bool, error) {
	creds, ok, err := m.store.Load(ctx)
	if err != nil || !ok {
		return models.Credentials{}, false, err
	}

	pair, err := m.refresher.RefreshTokens(ctx, creds.Tokens.RefreshToken)
	if err != nil && interrupted(ctx, err) {
		return models.Credentials{}, false, fmt.Errorf("failed to restore session: %w", err)
	}
	if err != nil {
		slog.Warn("failed to refresh stored session", "error", err)
		if err := m.Logout(ctx); err != nil {
			return models.Credentials{}, false, err
		}
		return models.Credentials{}, false, nil
	}

	if err := m.store.SaveTokens(ctx, pair); err != nil {
		return models.Credentials{}, false, fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}
	creds.Tokens = pair
	return creds, true, nil
}
