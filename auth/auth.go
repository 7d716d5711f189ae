// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/guilhermeosaka/voxpop-web/models"
	"github.com/guilhermeosaka/voxpop-web/session"
)

// CodeLength is the number of digits in an OTP
const CodeLength = 6

var (
	ErrInvalidPhone = errors.New("phone number must be in international format, e.g. +5511999998888")
	ErrInvalidCode  = errors.New("code must be 6 digits")
	ErrInvalidToken = errors.New("invalid token format")
)

// Identity is the subset of the identity API used to log in.
// apiclient.Client implements it.
type Identity interface {
	GenerateCode(ctx context.Context, target string, channel models.Channel) error
	GenerateTokens(ctx context.Context, target, code string, channel models.Channel) (models.TokenPair, error)
}

// NormalizePhone strips common separators and checks for an E.164 number:
// a leading + and 8 to 15 digits.
func NormalizePhone(phone string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		switch {
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
			continue
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			return "", ErrInvalidPhone
		}
	}
	normalized := b.String()
	digits := strings.TrimPrefix(normalized, "+")
	if len(digits) == len(normalized) || len(digits) < 8 || len(digits) > 15 || digits[0] == '0' {
		return "", ErrInvalidPhone
	}
	return normalized, nil
}

// NormalizeCode drops whitespace and requires exactly CodeLength digits
func NormalizeCode(code string) (string, error) {
	code = strings.Join(strings.Fields(code), "")
	if len(code) != CodeLength {
		return "", ErrInvalidCode
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return "", ErrInvalidCode
		}
	}
	return code, nil
}

// RequestCode asks the identity API to text an OTP to phone.
// It returns the normalized number the code was sent to.
func RequestCode(ctx context.Context, identity Identity, phone string) (string, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return "", err
	}
	if err := identity.GenerateCode(ctx, normalized, models.ChannelSMS); err != nil {
		return "", err
	}
	slog.Info("login code requested", "phone", normalized)
	return normalized, nil
}

// VerifyCode exchanges the OTP for a token pair and starts the session.
// The code is checked locally first so a typo never reaches the API.
func VerifyCode(ctx context.Context, identity Identity, mgr *session.Manager, phone, code string) (models.TokenPair, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return models.TokenPair{}, err
	}
	code, err = NormalizeCode(code)
	if err != nil {
		return models.TokenPair{}, err
	}

	pair, err := identity.GenerateTokens(ctx, normalized, code, models.ChannelSMS)
	if err != nil {
		return models.TokenPair{}, err
	}
	if err := mgr.Login(ctx, normalized, pair); err != nil {
		return models.TokenPair{}, err
	}
	return pair, nil
}

// Claims is what the client can read from an access token
type Claims struct {
	Subject   string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token's exp claim has passed. A token with
// no exp claim never expires locally; the server has the last word.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// ParseClaims decodes the access token payload without verifying the
// signature. The client has no key; this is for display only.
func ParseClaims(accessToken string) (Claims, error) {
	var registered jwt.RegisteredClaims
	_, _, err := jwt.NewParser().ParseUnverified(accessToken, &registered)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims := Claims{Subject: registered.Subject, TokenID: registered.ID}
	if registered.IssuedAt != nil {
		claims.IssuedAt = registered.IssuedAt.Time
	}
	if registered.ExpiresAt != nil {
		claims.ExpiresAt = registered.ExpiresAt.Time
	}
	return claims, nil
}
