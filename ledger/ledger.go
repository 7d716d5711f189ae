// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/guilhermeosaka/voxpop-web/models"
)

var (
	ErrUnauthenticated = errors.New("login required to vote")
	ErrExpired         = errors.New("poll has expired")
	ErrBusy            = errors.New("another vote on this poll is in progress")
	ErrUnknownOption   = errors.New("option does not belong to this poll")
)

// Voter issues the mutating calls. apiclient.Voter implements it.
type Voter interface {
	Vote(ctx context.Context, pollID, optionID string) error
	Unvote(ctx context.Context, pollID, optionID string) error
}

// Outcome describes what a successful Toggle did to the mirror
type Outcome int

const (
	OutcomeVoted Outcome = iota + 1
	OutcomeUnvoted
	// OutcomeDiscarded: the call succeeded but the mirror was re-seeded
	// while it was in flight, so the delta was dropped.
	OutcomeDiscarded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeVoted:
		return "voted"
	case OutcomeUnvoted:
		return "unvoted"
	case OutcomeDiscarded:
		return "discarded"
	}
	return "none"
}

// State of a single option button
type State int

const (
	StateIdle State = iota
	StatePending
)

// Ledger is the client's belief about one poll: per-option counts and the
// current user's selections. It is only ever replaced wholesale from a
// snapshot (Reseed) or moved by a confirmed Toggle.
type Ledger struct {
	mu       sync.Mutex
	poll     models.Poll
	votes    map[string]int
	selected map[string]bool
	version  uint64
	pending  string

	now    func() time.Time
	tracer trace.Tracer
}

func New(poll models.Poll) *Ledger {
	l := &Ledger{
		now:    time.Now,
		tracer: otel.Tracer("github.com/guilhermeosaka/voxpop-web/ledger"),
	}
	l.seed(poll)
	return l
}

// SetClock replaces time.Now for expiry checks
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

func (l *Ledger) seed(poll models.Poll) {
	l.poll = poll
	l.votes = make(map[string]int, len(poll.Options))
	l.selected = make(map[string]bool)
	for _, opt := range poll.Options {
		l.votes[opt.ID] = opt.Votes
		if opt.HasVoted {
			l.selected[opt.ID] = true
		}
	}
}

// Reseed discards the mirror and rebuilds it from a fresh snapshot. Any
// toggle still in flight will find the version changed and drop its delta.
func (l *Ledger) Reseed(poll models.Poll) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seed(poll)
	l.version++
}

// Poll returns the snapshot the mirror was last seeded from
func (l *Ledger) Poll() models.Poll {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.poll
}

// Toggle votes for optionID, or removes the vote if it is already selected.
// A nil voter means the caller is not logged in. The mirror only moves once
// the server has accepted the call; a failed call leaves it untouched.
func (l *Ledger) Toggle(ctx context.Context, voter Voter, optionID string) (Outcome, error) {
	if voter == nil {
		return 0, ErrUnauthenticated
	}

	l.mu.Lock()
	pollID := l.poll.ID
	if l.poll.IsExpired(l.now()) {
		l.mu.Unlock()
		return 0, ErrExpired
	}
	if _, ok := l.votes[optionID]; !ok {
		l.mu.Unlock()
		return 0, ErrUnknownOption
	}
	if l.pending != "" {
		l.mu.Unlock()
		return 0, ErrBusy
	}
	l.pending = optionID
	version := l.version
	unvote := l.selected[optionID]
	l.mu.Unlock()

	ctx, span := l.tracer.Start(ctx, "ledger.Toggle", trace.WithAttributes(
		attribute.String("voxpop.poll_id", pollID),
		attribute.String("voxpop.option_id", optionID),
		attribute.Bool("voxpop.unvote", unvote),
	))
	defer span.End()

	var err error
	if unvote {
		err = voter.Unvote(ctx, pollID, optionID)
	} else {
		err = voter.Vote(ctx, pollID, optionID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = ""

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	if l.version != version {
		slog.Info("vote settled after reseed, dropping local delta",
			"poll_id", pollID, "option_id", optionID)
		span.SetAttributes(attribute.String("voxpop.outcome", OutcomeDiscarded.String()))
		return OutcomeDiscarded, nil
	}

	outcome := OutcomeVoted
	if unvote {
		l.applyUnvote(optionID)
		outcome = OutcomeUnvoted
	} else {
		l.applyVote(optionID)
	}
	span.SetAttributes(attribute.String("voxpop.outcome", outcome.String()))
	return outcome, nil
}

func (l *Ledger) applyUnvote(optionID string) {
	if l.votes[optionID] > 0 {
		l.votes[optionID]--
	}
	delete(l.selected, optionID)
}

func (l *Ledger) applyVote(optionID string) {
	l.votes[optionID]++
	if l.poll.VoteMode == models.VoteModeSingle {
		// the server moved our single vote; mirror the move
		for prev := range l.selected {
			if prev != optionID && l.votes[prev] > 0 {
				l.votes[prev]--
			}
		}
		l.selected = map[string]bool{optionID: true}
		return
	}
	l.selected[optionID] = true
}

// Votes returns the mirrored count for optionID
func (l *Ledger) Votes(optionID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.votes[optionID]
}

// Selected reports whether the current user has voted for optionID
func (l *Ledger) Selected(optionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.selected[optionID]
}

// SelectedIDs returns the current user's selections, sorted
func (l *Ledger) SelectedIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.selected))
	for id := range l.selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TotalVotes sums the per-option counts. It is recomputed on every call
// and never stored.
func (l *Ledger) TotalVotes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalLocked()
}

func (l *Ledger) totalLocked() int {
	total := 0
	for _, n := range l.votes {
		total += n
	}
	return total
}

// Percentage is optionID's share of all votes, 0 when nobody has voted
func (l *Ledger) Percentage(optionID string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return percentage(l.votes[optionID], l.totalLocked())
}

func percentage(votes, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(votes) / float64(total) * 100
}

// State returns StatePending for the option whose toggle is in flight
func (l *Ledger) State(optionID string) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending != "" && l.pending == optionID {
		return StatePending
	}
	return StateIdle
}

// Pending returns the option with a toggle in flight, or ""
func (l *Ledger) Pending() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}

// OptionView is the render model of one option
type OptionView struct {
	ID         string
	Value      string
	Votes      int
	Percentage float64
	Selected   bool
	State      State
}

// PollView is a consistent read of the whole mirror
type PollView struct {
	Poll       models.Poll
	Expired    bool
	TotalVotes int
	Options    []OptionView
}

// View returns every option in snapshot order under one lock
func (l *Ledger) View() PollView {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := l.totalLocked()
	view := PollView{
		Poll:       l.poll,
		Expired:    l.poll.IsExpired(l.now()),
		TotalVotes: total,
		Options:    make([]OptionView, 0, len(l.poll.Options)),
	}
	for _, opt := range l.poll.Options {
		state := StateIdle
		if l.pending == opt.ID {
			state = StatePending
		}
		view.Options = append(view.Options, OptionView{
			ID:         opt.ID,
			Value:      opt.Value,
			Votes:      l.votes[opt.ID],
			Percentage: percentage(l.votes[opt.ID], total),
			Selected:   l.selected[opt.ID],
			State:      state,
		})
	}
	return view
}
