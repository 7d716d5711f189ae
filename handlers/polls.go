// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/guilhermeosaka/voxpop-web/ledger"
	"github.com/guilhermeosaka/voxpop-web/models"
)

type PollHandler struct {
	env *Env
}

func NewPollHandler(env *Env) *PollHandler {
	return &PollHandler{env: env}
}

// fetchPolls lists polls as the current user when logged in, anonymously otherwise
func fetchPolls(ctx context.Context, env *Env, params models.ListPollsParams) ([]models.Poll, error) {
	token, err := env.Session.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		if params.CreatedByMe || params.VotedByMe {
			return nil, ErrLoginRequired
		}
		return env.Client.ListPolls(ctx, params)
	}
	return env.Gateway.ListPolls(ctx, token, params)
}

// List handles `polls`
func (h *PollHandler) List(ctx context.Context, args []string) error {
	fs := h.env.flagSet("polls")
	sortBy := fs.String("sort", "", "Sort order: newest, oldest, most-votes, least-votes, expires-soon, expires-late")
	mine := fs.Bool("mine", false, "Only polls you created")
	voted := fs.Bool("voted", false, "Only polls you voted on")
	mode := fs.String("mode", "", "Only single or multiple choice polls")
	page := fs.Int("page", 0, "Page number, starting at 1")
	pageSize := fs.Int("page-size", 0, "Polls per page")
	if err := fs.Parse(args); err != nil {
		return err
	}

	params := models.ListPollsParams{
		Page:        *page,
		PageSize:    *pageSize,
		CreatedByMe: *mine,
		VotedByMe:   *voted,
	}
	if *page < 0 || *pageSize < 0 {
		return fmt.Errorf("%w: -page and -page-size must be positive", ErrUsage)
	}
	if *sortBy != "" {
		s, err := models.ParseSortBy(*sortBy)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		params.SortBy = s
	}
	if *mode != "" {
		m, err := models.ParseVoteMode(*mode)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		params.VoteMode = m
	}

	polls, err := fetchPolls(ctx, h.env, params)
	if err != nil {
		return fmt.Errorf("failed to fetch polls: %w", err)
	}

	board := ledger.NewBoard()
	board.Sync(polls)
	if board.Len() == 0 {
		fmt.Fprintln(h.env.Out, "No polls found")
		return nil
	}

	views := make([]ledger.PollView, 0, board.Len())
	for _, l := range board.Ledgers() {
		l.SetClock(h.env.Now)
		views = append(views, l.View())
	}
	newRenderer(h.env).polls(views)
	return nil
}

// stringList collects a repeated flag
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// Create handles `create`
func (h *PollHandler) Create(ctx context.Context, args []string) error {
	fs := h.env.flagSet("create")
	question := fs.String("question", "", "Poll question")
	var options stringList
	fs.Var(&options, "option", "Option text (repeat for each option)")
	mode := fs.String("mode", "single", "Vote mode: single or multiple")
	expires := fs.String("expires", "", "Expiry as RFC3339, local YYYY-MM-DDTHH:MM, or a duration like 48h")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req, err := h.buildCreateRequest(*question, options, *mode, *expires)
	if err != nil {
		return err
	}

	token, err := h.env.Session.AccessToken(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return ErrLoginRequired
	}

	poll, err := h.env.Gateway.CreatePoll(ctx, token, req)
	if err != nil {
		return fmt.Errorf("failed to create poll: %w", err)
	}
	slog.Info("poll created", "poll_id", poll.ID, "options", len(poll.Options))

	fmt.Fprintf(h.env.Out, "Created poll %s\n", poll.ID)
	l := ledger.New(poll)
	l.SetClock(h.env.Now)
	newRenderer(h.env).polls([]ledger.PollView{l.View()})
	return nil
}

func (h *PollHandler) buildCreateRequest(question string, options []string, mode, expires string) (models.CreatePollRequest, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.CreatePollRequest{}, fmt.Errorf("%w: -question is required", ErrUsage)
	}

	// blank options are ignored
	var inputs []models.OptionInput
	for _, opt := range options {
		if v := strings.TrimSpace(opt); v != "" {
			inputs = append(inputs, models.OptionInput{Value: v})
		}
	}
	if len(inputs) < 2 {
		return models.CreatePollRequest{}, fmt.Errorf("%w: at least two -option values are required", ErrUsage)
	}

	voteMode, err := models.ParseVoteMode(mode)
	if err != nil {
		return models.CreatePollRequest{}, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	req := models.CreatePollRequest{Question: question, VoteMode: voteMode, Options: inputs}
	if expires != "" {
		t, err := parseExpiry(expires, h.env.Now())
		if err != nil {
			return models.CreatePollRequest{}, fmt.Errorf("%w: %v", ErrUsage, err)
		}
		formatted := models.FormatExpiresAt(t)
		req.ExpiresAt = &formatted
	}
	return req, nil
}

// localLayouts are accepted for -expires and read in the local time zone
var localLayouts = []string{"2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02T15:04:05"}

// parseExpiry accepts RFC3339, a local date-time, or a duration from now.
// The result must lie in the future.
func parseExpiry(s string, now time.Time) (time.Time, error) {
	var (
		t   time.Time
		err error
	)
	if d, derr := time.ParseDuration(s); derr == nil {
		t = now.Add(d)
	} else if t, err = time.Parse(time.RFC3339, s); err != nil {
		parsed := false
		for _, layout := range localLayouts {
			if lt, lerr := time.ParseInLocation(layout, s, time.Local); lerr == nil {
				t, parsed = lt, true
				break
			}
		}
		if !parsed {
			return time.Time{}, fmt.Errorf("invalid expiry %q", s)
		}
	}
	if !t.After(now) {
		return time.Time{}, fmt.Errorf("expiry %q is not in the future", s)
	}
	return t, nil
}
