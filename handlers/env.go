// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

package handlers

import (
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/guilhermeosaka/voxpop-web/apiclient"
	"github.com/guilhermeosaka/voxpop-web/ledger"
	"github.com/guilhermeosaka/voxpop-web/session"
)

var (
	ErrUsage         = errors.New("invalid usage")
	ErrLoginRequired = errors.New("please log in first: voxpop login -phone NUMBER")
)

// Env is what every command handler needs
type Env struct {
	Client  *apiclient.Client
	Gateway *apiclient.Gateway
	Session *session.Manager

	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
	Now    func() time.Time

	// Bars draws vote bars; otherwise output is tab-separated
	Bars bool
}

func NewEnv(client *apiclient.Client, mgr *session.Manager, in io.Reader, out, errOut io.Writer) *Env {
	return &Env{
		Client:  client,
		Gateway: apiclient.NewGateway(client, mgr),
		Session: mgr,
		In:      in,
		Out:     out,
		ErrOut:  errOut,
		Now:     time.Now,
		Bars:    IsTerminal(out),
	}
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (e *Env) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.ErrOut)
	return fs
}

// Message turns a command error into the line shown to the user
func Message(err error) string {
	switch {
	case errors.Is(err, session.ErrSessionMissing), errors.Is(err, session.ErrSessionExpired):
		return "your session has expired, please log in again"
	case errors.Is(err, ledger.ErrUnauthenticated), errors.Is(err, ErrLoginRequired):
		return ErrLoginRequired.Error()
	case errors.Is(err, apiclient.ErrServiceUnavailable):
		return "service is under maintenance, try again later"
	case errors.Is(err, apiclient.ErrNetworkUnreachable):
		return "service unreachable, check your connection"
	case errors.Is(err, ledger.ErrExpired):
		return "this poll has expired and no longer accepts votes"
	case errors.Is(err, ledger.ErrBusy):
		return "a vote on this poll is still in progress"
	}

	switch apiclient.StatusOf(err) {
	case http.StatusNotFound:
		return "that poll or option no longer exists"
	case http.StatusConflict:
		return "this poll has expired and no longer accepts votes"
	case http.StatusTooManyRequests:
		return "too many requests, try again later"
	}
	return err.Error()
}
