// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/guilhermeosaka/voxpop-web/ledger"
	"github.com/guilhermeosaka/voxpop-web/models"
)

// searchPageSize and searchMaxPages bound the lookup of a poll by ID
const (
	searchPageSize = 50
	searchMaxPages = 20
)

type VotingHandler struct {
	env *Env
}

func NewVotingHandler(env *Env) *VotingHandler {
	return &VotingHandler{env: env}
}

// findPoll pages through the listing until pollID shows up
func (h *VotingHandler) findPoll(ctx context.Context, pollID string) (models.Poll, error) {
	for page := 1; page <= searchMaxPages; page++ {
		polls, err := fetchPolls(ctx, h.env, models.ListPollsParams{Page: page, PageSize: searchPageSize})
		if err != nil {
			return models.Poll{}, fmt.Errorf("failed to fetch polls: %w", err)
		}
		for _, p := range polls {
			if p.ID == pollID {
				return p, nil
			}
		}
		if len(polls) < searchPageSize {
			break
		}
	}
	return models.Poll{}, fmt.Errorf("poll %q not found", pollID)
}

// resolveOption accepts an option ID, its 1-based position, or its text
func resolveOption(poll models.Poll, ref string) (models.Option, error) {
	for _, opt := range poll.Options {
		if opt.ID == ref {
			return opt, nil
		}
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(poll.Options) {
		return poll.Options[n-1], nil
	}

	var match []models.Option
	for _, opt := range poll.Options {
		if strings.EqualFold(strings.TrimSpace(opt.Value), strings.TrimSpace(ref)) {
			match = append(match, opt)
		}
	}
	if len(match) == 1 {
		return match[0], nil
	}
	return models.Option{}, fmt.Errorf("%w: %q", ledger.ErrUnknownOption, ref)
}

// Vote handles `vote POLL OPTION [OPTION...]`. Each option is toggled in
// order through the poll's ledger; the first failure stops the run. The
// poll is fetched again before it is printed.
func (h *VotingHandler) Vote(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: vote POLL OPTION [OPTION...]", ErrUsage)
	}
	pollID, refs := args[0], args[1:]

	token, err := h.env.Session.AccessToken(ctx)
	if err != nil {
		return err
	}
	var voter ledger.Voter
	if token != "" {
		voter = h.env.Gateway.Voter(h.env.Session)
	}

	poll, err := h.findPoll(ctx, pollID)
	if err != nil {
		return err
	}

	l := ledger.New(poll)
	l.SetClock(h.env.Now)

	var (
		toggleErr error
		toggled   int
	)
	for _, ref := range refs {
		opt, err := resolveOption(poll, ref)
		if err != nil {
			toggleErr = err
			break
		}

		outcome, err := l.Toggle(ctx, voter, opt.ID)
		if err != nil {
			toggleErr = fmt.Errorf("failed to toggle %q: %w", opt.Value, err)
			break
		}
		toggled++
		slog.Debug("vote toggled", "poll_id", poll.ID, "option_id", opt.ID, "outcome", outcome.String())

		switch outcome {
		case ledger.OutcomeVoted:
			fmt.Fprintf(h.env.Out, "Voted for %s\n", opt.Value)
		case ledger.OutcomeUnvoted:
			fmt.Fprintf(h.env.Out, "Removed vote for %s\n", opt.Value)
		}
	}

	if toggled == 0 {
		return toggleErr
	}
	h.reconcile(ctx, l)
	newRenderer(h.env).polls([]ledger.PollView{l.View()})
	return toggleErr
}

// reconcile re-seeds the ledger from a fresh listing so the printed counts
// include votes cast by others meanwhile. On failure the mirror is kept.
func (h *VotingHandler) reconcile(ctx context.Context, l *ledger.Ledger) {
	fresh, err := h.findPoll(ctx, l.Poll().ID)
	if err != nil {
		slog.Warn("failed to refresh poll after voting", "poll_id", l.Poll().ID, "error", err)
		return
	}
	l.Reseed(fresh)
}
