// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

package handlers

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/guilhermeosaka/voxpop-web/auth"
)

type AuthHandler struct {
	env *Env
}

func NewAuthHandler(env *Env) *AuthHandler {
	return &AuthHandler{env: env}
}

// Login handles `login -phone NUMBER`
func (h *AuthHandler) Login(ctx context.Context, args []string) error {
	fs := h.env.flagSet("login")
	phone := fs.String("phone", "", "Phone number in international format (+5511999998888)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *phone == "" {
		return fmt.Errorf("%w: -phone is required", ErrUsage)
	}

	normalized, err := auth.RequestCode(ctx, h.env.Client, *phone)
	if err != nil {
		return fmt.Errorf("failed to send code: %w", err)
	}
	fmt.Fprintf(h.env.Out, "Code sent to %s\n", normalized)
	fmt.Fprint(h.env.Out, "Enter the 6-digit code: ")

	line, err := bufio.NewReader(h.env.In).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return fmt.Errorf("failed to read code: %w", err)
	}

	if _, err := auth.VerifyCode(ctx, h.env.Client, h.env.Session, normalized, strings.TrimSpace(line)); err != nil {
		return fmt.Errorf("failed to verify code: %w", err)
	}
	fmt.Fprintf(h.env.Out, "Logged in as %s\n", normalized)
	return nil
}

// Logout handles `logout`
func (h *AuthHandler) Logout(ctx context.Context, args []string) error {
	_, ok, err := h.env.Session.Current(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(h.env.Out, "Not logged in")
		return nil
	}
	if err := h.env.Session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(h.env.Out, "Logged out")
	return nil
}

// Whoami handles `whoami`
func (h *AuthHandler) Whoami(ctx context.Context, args []string) error {
	creds, ok, err := h.env.Session.Current(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(h.env.Out, "Not logged in")
		return nil
	}
	fmt.Fprintln(h.env.Out, creds.PhoneNumber)

	claims, err := auth.ParseClaims(creds.Tokens.AccessToken)
	if err != nil {
		slog.Debug("access token is not a readable JWT", "error", err)
		return nil
	}
	if claims.ExpiresAt.IsZero() {
		return nil
	}

	now := h.env.Now()
	rel := humanize.RelTime(claims.ExpiresAt, now, "ago", "from now")
	if claims.Expired(now) {
		fmt.Fprintf(h.env.Out, "Access token expired %s (renewed on next request)\n", rel)
	} else {
		fmt.Fprintf(h.env.Out, "Access token expires %s\n", rel)
	}
	return nil
}
