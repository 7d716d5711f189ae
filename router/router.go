// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"text/tabwriter"

	"github.com/guilhermeosaka/voxpop-web/handlers"
)

var (
	ErrNoCommand      = errors.New("no command given")
	ErrUnknownCommand = errors.New("unknown command")
)

// HandlerFunc runs one command with the arguments that follow its name
type HandlerFunc func(ctx context.Context, args []string) error

type route struct {
	usage   string
	summary string
	handler HandlerFunc
}

// Mux maps command names to handlers
type Mux struct {
	routes map[string]route
}

func NewMux() *Mux {
	return &Mux{routes: make(map[string]route)}
}

// Handle registers a command. Registering a name twice panics, like http.ServeMux.
func (m *Mux) Handle(name, usage, summary string, handler HandlerFunc) {
	if _, exists := m.routes[name]; exists {
		panic("router: multiple registrations for " + name)
	}
	m.routes[name] = route{usage: usage, summary: summary, handler: handler}
}

// Dispatch runs the command named by args[0]
func (m *Mux) Dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrNoCommand
	}
	r, ok := m.routes[args[0]]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownCommand, args[0])
	}
	slog.Debug("dispatching command", "command", args[0], "args", len(args)-1)
	return r.handler(ctx, args[1:])
}

// Usage writes every command, sorted by name
func (m *Mux) Usage(w io.Writer) {
	names := make([]string, 0, len(m.routes))
	for name := range m.routes {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: voxpop [global flags] <command> [flags]")
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, name := range names {
		r := m.routes[name]
		fmt.Fprintf(tw, "  %s\t%s\n", r.usage, r.summary)
	}
	tw.Flush()
}

func NewRouter(env *handlers.Env) *Mux {
	mux := NewMux()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(env)
	pollHandler := handlers.NewPollHandler(env)
	votingHandler := handlers.NewVotingHandler(env)

	// Session
	mux.Handle("login", "login -phone NUMBER", "Log in with a code sent by SMS", authHandler.Login)
	mux.Handle("logout", "logout", "Forget the stored session", authHandler.Logout)
	mux.Handle("whoami", "whoami", "Show the logged in phone number", authHandler.Whoami)

	// Polls
	mux.Handle("polls", "polls [-sort S] [-mine] [-voted] [-mode M] [-page N] [-page-size N]", "List polls", pollHandler.List)
	mux.Handle("create", "create -question Q -option A -option B [-mode M] [-expires T]", "Create a poll", pollHandler.Create)

	// Voting
	mux.Handle("vote", "vote POLL OPTION [OPTION...]", "Toggle your vote on options", votingHandler.Vote)

	return mux
}
