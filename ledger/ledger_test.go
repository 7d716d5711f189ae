// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

package ledger

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/guilhermeosaka/voxpop-web/apiclient"
	"github.com/guilhermeosaka/voxpop-web/models"
	"github.com/guilhermeosaka/voxpop-web/session"
	"github.com/guilhermeosaka/voxpop-web/testutil"
)

// stubVoter records calls and answers with err
type stubVoter struct {
	mu    sync.Mutex
	err   error
	calls []string
	// gate, when set, blocks every call until closed
	gate    chan struct{}
	started chan struct{}
}

func (s *stubVoter) record(call string) error {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	gate, started := s.gate, s.started
	s.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return s.err
}

func (s *stubVoter) Vote(ctx context.Context, pollID, optionID string) error {
	return s.record("vote " + optionID)
}

func (s *stubVoter) Unvote(ctx context.Context, pollID, optionID string) error {
	return s.record("unvote " + optionID)
}

func (s *stubVoter) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func testPoll(mode models.VoteMode, opts ...models.Option) models.Poll {
	return models.Poll{
		ID:       "poll-1",
		Question: "Lunch?",
		VoteMode: mode,
		Options:  opts,
	}
}

func assertVotes(t *testing.T, l *Ledger, expected map[string]int) {
	t.Helper()
	for id, n := range expected {
		if got := l.Votes(id); got != n {
			t.Errorf("Expected %d votes for %s, got %d", n, id, got)
		}
	}
}

func assertSelected(t *testing.T, l *Ledger, expected ...string) {
	t.Helper()
	got := l.SelectedIDs()
	if len(got) != len(expected) {
		t.Fatalf("Expected selected %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Expected selected %v, got %v", expected, got)
		}
	}
}

func TestToggle_SingleMode(t *testing.T) {
	seed := func() *Ledger {
		return New(testPoll(models.VoteModeSingle,
			models.Option{ID: "A", Value: "Pizza", Votes: 2},
			models.Option{ID: "B", Value: "Sushi", Votes: 3, HasVoted: true},
		))
	}

	t.Run("vote moves the single selection", func(t *testing.T) {
		l := seed()
		voter := &stubVoter{}

		outcome, err := l.Toggle(context.Background(), voter, "A")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if outcome != OutcomeVoted {
			t.Errorf("Expected OutcomeVoted, got %v", outcome)
		}
		assertVotes(t, l, map[string]int{"A": 3, "B": 2})
		assertSelected(t, l, "A")
		if calls := voter.Calls(); len(calls) != 1 || calls[0] != "vote A" {
			t.Errorf("Expected a single vote call, got %v", calls)
		}
	})

	t.Run("toggling the selected option unvotes it", func(t *testing.T) {
		l := seed()
		voter := &stubVoter{}

		outcome, err := l.Toggle(context.Background(), voter, "B")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if outcome != OutcomeUnvoted {
			t.Errorf("Expected OutcomeUnvoted, got %v", outcome)
		}
		assertVotes(t, l, map[string]int{"A": 2, "B": 2})
		assertSelected(t, l)
		if calls := voter.Calls(); len(calls) != 1 || calls[0] != "unvote B" {
			t.Errorf("Expected a single unvote call, got %v", calls)
		}
	})
}

func TestToggle_MultipleMode(t *testing.T) {
	l := New(testPoll(models.VoteModeMultiple,
		models.Option{ID: "A", Votes: 4},
		models.Option{ID: "B", Votes: 1},
		models.Option{ID: "C", Votes: 0},
	))
	voter := &stubVoter{}

	for _, id := range []string{"A", "B"} {
		if _, err := l.Toggle(context.Background(), voter, id); err != nil {
			t.Fatalf("Toggle %s failed: %v", id, err)
		}
	}

	assertVotes(t, l, map[string]int{"A": 5, "B": 2, "C": 0})
	assertSelected(t, l, "A", "B")

	// unvoting one leaves the other selected
	if _, err := l.Toggle(context.Background(), voter, "A"); err != nil {
		t.Fatalf("Toggle A failed: %v", err)
	}
	assertVotes(t, l, map[string]int{"A": 4, "B": 2})
	assertSelected(t, l, "B")
}

func TestToggle_RejectedLeavesMirrorUnchanged(t *testing.T) {
	tests := []struct {
		name   string
		mode   models.VoteMode
		option string
	}{
		{"single vote", models.VoteModeSingle, "A"},
		{"single unvote", models.VoteModeSingle, "B"},
		{"multiple vote", models.VoteModeMultiple, "A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(testPoll(tt.mode,
				models.Option{ID: "A", Votes: 2},
				models.Option{ID: "B", Votes: 3, HasVoted: true},
			))
			rejected := &apiclient.RequestError{Op: "vote", Status: 409}
			voter := &stubVoter{err: rejected}

			outcome, err := l.Toggle(context.Background(), voter, tt.option)
			if !errors.Is(err, rejected) {
				t.Fatalf("Expected the voter's error, got %v", err)
			}
			if outcome != 0 {
				t.Errorf("Expected no outcome, got %v", outcome)
			}
			assertVotes(t, l, map[string]int{"A": 2, "B": 3})
			assertSelected(t, l, "B")
			if l.Pending() != "" {
				t.Error("Expected pending to be cleared after failure")
			}
		})
	}
}

func TestToggle_Preconditions(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name     string
		expires  *time.Time
		voter    Voter
		option   string
		expected error
	}{
		{"logged out", nil, nil, "A", ErrUnauthenticated},
		{"expired", &past, &stubVoter{}, "A", ErrExpired},
		{"unknown option", &future, &stubVoter{}, "Z", ErrUnknownOption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poll := testPoll(models.VoteModeSingle, models.Option{ID: "A", Votes: 1})
			poll.ExpiresAt = tt.expires
			l := New(poll)

			_, err := l.Toggle(context.Background(), tt.voter, tt.option)
			if !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
			if stub, ok := tt.voter.(*stubVoter); ok && len(stub.Calls()) != 0 {
				t.Errorf("Expected no network call, got %v", stub.Calls())
			}
			assertVotes(t, l, map[string]int{"A": 1})
		})
	}
}

func TestToggle_ExpiryUsesClock(t *testing.T) {
	expires := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	poll := testPoll(models.VoteModeSingle, models.Option{ID: "A"})
	poll.ExpiresAt = &expires
	l := New(poll)

	l.SetClock(func() time.Time { return expires.Add(-time.Second) })
	if _, err := l.Toggle(context.Background(), &stubVoter{}, "A"); err != nil {
		t.Fatalf("Expected vote before expiry to succeed, got %v", err)
	}

	l.SetClock(func() time.Time { return expires.Add(time.Second) })
	if _, err := l.Toggle(context.Background(), &stubVoter{}, "A"); !errors.Is(err, ErrExpired) {
		t.Errorf("Expected ErrExpired after the expiry instant, got %v", err)
	}
	if !l.View().Expired {
		t.Error("Expected view to report the poll as expired")
	}
}

func TestToggle_UnvoteNeverNegative(t *testing.T) {
	// a stale snapshot can claim a selection with no counted votes
	l := New(testPoll(models.VoteModeMultiple, models.Option{ID: "A", Votes: 0, HasVoted: true}))

	if _, err := l.Toggle(context.Background(), &stubVoter{}, "A"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	assertVotes(t, l, map[string]int{"A": 0})
	assertSelected(t, l)
}

func TestToggle_BusyWhileInFlight(t *testing.T) {
	l := New(testPoll(models.VoteModeMultiple,
		models.Option{ID: "A", Votes: 1},
		models.Option{ID: "B", Votes: 1},
	))
	voter := &stubVoter{gate: make(chan struct{}), started: make(chan struct{}, 1)}

	done := make(chan error, 1)
	go func() {
		_, err := l.Toggle(context.Background(), voter, "A")
		done <- err
	}()
	<-voter.started

	if l.State("A") != StatePending {
		t.Error("Expected A to be pending")
	}
	if l.State("B") != StateIdle {
		t.Error("Expected B to be idle")
	}
	if _, err := l.Toggle(context.Background(), voter, "B"); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy, got %v", err)
	}
	if _, err := l.Toggle(context.Background(), voter, "A"); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy for the same option, got %v", err)
	}
	// reads stay available while the call is in flight
	if got := l.TotalVotes(); got != 2 {
		t.Errorf("Expected total 2 while pending, got %d", got)
	}

	close(voter.gate)
	if err := <-done; err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if l.Pending() != "" {
		t.Errorf("Expected nothing pending, got %q", l.Pending())
	}
	if calls := voter.Calls(); len(calls) != 1 {
		t.Errorf("Expected dropped toggles to make no calls, got %v", calls)
	}
	assertVotes(t, l, map[string]int{"A": 2, "B": 1})
}

func TestToggle_ReseedDiscardsStaleCompletion(t *testing.T) {
	l := New(testPoll(models.VoteModeSingle,
		models.Option{ID: "A", Votes: 2},
		models.Option{ID: "B", Votes: 3},
	))
	voter := &stubVoter{gate: make(chan struct{}), started: make(chan struct{}, 1)}

	done := make(chan Outcome, 1)
	go func() {
		outcome, err := l.Toggle(context.Background(), voter, "A")
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
		done <- outcome
	}()
	<-voter.started

	// authoritative snapshot arrives that already counts our vote
	l.Reseed(testPoll(models.VoteModeSingle,
		models.Option{ID: "A", Votes: 3, HasVoted: true},
		models.Option{ID: "B", Votes: 3},
	))
	if l.Pending() != "A" {
		t.Error("Expected reseed to keep the in-flight toggle pending")
	}
	close(voter.gate)

	if outcome := <-done; outcome != OutcomeDiscarded {
		t.Errorf("Expected OutcomeDiscarded, got %v", outcome)
	}
	// not double counted
	assertVotes(t, l, map[string]int{"A": 3, "B": 3})
	assertSelected(t, l, "A")
}

func TestReseedReplacesMirror(t *testing.T) {
	l := New(testPoll(models.VoteModeMultiple,
		models.Option{ID: "A", Votes: 5, HasVoted: true},
		models.Option{ID: "B", Votes: 1, HasVoted: true},
	))

	l.Reseed(testPoll(models.VoteModeMultiple,
		models.Option{ID: "B", Votes: 7},
		models.Option{ID: "C", Votes: 2, HasVoted: true},
	))

	assertVotes(t, l, map[string]int{"A": 0, "B": 7, "C": 2})
	assertSelected(t, l, "C")
	if _, err := l.Toggle(context.Background(), &stubVoter{}, "A"); !errors.Is(err, ErrUnknownOption) {
		t.Errorf("Expected removed option to be unknown, got %v", err)
	}
}

func TestSingleModeSelectionNeverExceedsOne(t *testing.T) {
	l := New(testPoll(models.VoteModeSingle,
		models.Option{ID: "A", Votes: 1},
		models.Option{ID: "B", Votes: 1},
		models.Option{ID: "C", Votes: 1},
	))
	voter := &stubVoter{}

	for _, id := range []string{"A", "B", "C", "C", "A", "B", "B", "A"} {
		if _, err := l.Toggle(context.Background(), voter, id); err != nil {
			t.Fatalf("Toggle %s failed: %v", id, err)
		}
		if n := len(l.SelectedIDs()); n > 1 {
			t.Fatalf("Expected at most one selection after toggling %s, got %v", id, l.SelectedIDs())
		}
		// one vote of ours at most on top of the three seeded
		if total := l.TotalVotes(); total < 2 || total > 4 {
			t.Fatalf("Unexpected total %d after toggling %s", total, id)
		}
	}
}

func TestPercentage(t *testing.T) {
	t.Run("zero total", func(t *testing.T) {
		l := New(testPoll(models.VoteModeSingle,
			models.Option{ID: "A"},
			models.Option{ID: "B"},
		))
		for _, id := range []string{"A", "B"} {
			if p := l.Percentage(id); p != 0 {
				t.Errorf("Expected 0%% for %s, got %v", id, p)
			}
		}
		if l.TotalVotes() != 0 {
			t.Errorf("Expected total 0, got %d", l.TotalVotes())
		}
	})

	t.Run("sums to 100", func(t *testing.T) {
		l := New(testPoll(models.VoteModeMultiple,
			models.Option{ID: "A", Votes: 1},
			models.Option{ID: "B", Votes: 1},
			models.Option{ID: "C", Votes: 1},
		))
		view := l.View()
		if view.TotalVotes != 3 {
			t.Fatalf("Expected total 3, got %d", view.TotalVotes)
		}
		sum := 0.0
		for _, opt := range view.Options {
			sum += opt.Percentage
		}
		if math.Abs(sum-100) > 0.001 {
			t.Errorf("Expected percentages to sum to 100, got %v", sum)
		}
	})

	t.Run("total follows toggles", func(t *testing.T) {
		l := New(testPoll(models.VoteModeMultiple,
			models.Option{ID: "A", Votes: 1},
			models.Option{ID: "B", Votes: 3},
		))
		if _, err := l.Toggle(context.Background(), &stubVoter{}, "A"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if l.TotalVotes() != 5 {
			t.Errorf("Expected total 5, got %d", l.TotalVotes())
		}
		if p := l.Percentage("A"); p != 40 {
			t.Errorf("Expected 40%%, got %v", p)
		}
	})
}

func TestViewPreservesOptionOrder(t *testing.T) {
	l := New(testPoll(models.VoteModeSingle,
		models.Option{ID: "z", Value: "last letter", Votes: 1},
		models.Option{ID: "a", Value: "first letter", Votes: 2, HasVoted: true},
	))

	view := l.View()
	if len(view.Options) != 2 {
		t.Fatalf("Expected 2 options, got %d", len(view.Options))
	}
	if view.Options[0].ID != "z" || view.Options[1].ID != "a" {
		t.Errorf("Expected snapshot order, got %s, %s", view.Options[0].ID, view.Options[1].ID)
	}
	if !view.Options[1].Selected || view.Options[0].Selected {
		t.Error("Expected only the second option to be selected")
	}
	if view.Poll.Question != "Lunch?" {
		t.Errorf("Expected question to be carried, got %q", view.Poll.Question)
	}
}

// TestToggle_AgainstAPI runs the ledger through the real gateway, including
// a token refresh on the first vote.
func TestToggle_AgainstAPI(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewFakeAPI(t)
	client := apiclient.New(api.Core.URL, api.Identity.URL, nil)
	manager := session.NewManager(session.NewMemoryStore(), client)
	if err := manager.Login(ctx, "+15550100", api.IssueSession(t, "+15550100")); err != nil {
		t.Fatalf("Failed to log in: %v", err)
	}
	gateway := apiclient.NewGateway(client, manager)

	poll := api.AddPoll("someone", "Lunch?", models.VoteModeSingle, nil, "Pizza", "Sushi")
	a, b := poll.Options[0].ID, poll.Options[1].ID
	api.SeedVotes(poll.ID, a, 2)
	api.SeedVotes(poll.ID, b, 2)
	api.CastVote("+15550100", poll.ID, b)

	l := New(api.Snapshot(poll.ID, "+15550100"))
	voter := gateway.Voter(manager)
	api.ExpireAccessTokens()

	if _, err := l.Toggle(ctx, voter, a); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	assertVotes(t, l, map[string]int{a: 3, b: 2})
	assertSelected(t, l, a)
	if api.Hits(testutil.RouteRefreshTokens) != 1 {
		t.Errorf("Expected 1 refresh, got %d", api.Hits(testutil.RouteRefreshTokens))
	}

	// mirror agrees with the server
	fresh := api.Snapshot(poll.ID, "+15550100")
	for _, opt := range fresh.Options {
		if l.Votes(opt.ID) != opt.Votes || l.Selected(opt.ID) != opt.HasVoted {
			t.Errorf("Mirror diverged for %s: local %d/%v, server %d/%v",
				opt.ID, l.Votes(opt.ID), l.Selected(opt.ID), opt.Votes, opt.HasVoted)
		}
	}

	api.SetVoteStatus(500)
	if _, err := l.Toggle(ctx, voter, a); apiclient.StatusOf(err) != 500 {
		t.Errorf("Expected status 500, got %v", err)
	}
	assertVotes(t, l, map[string]int{a: 3, b: 2})
}

func TestToggle_ReseedDuringHeldVote(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewFakeAPI(t)
	client := apiclient.New(api.Core.URL, api.Identity.URL, nil)
	manager := session.NewManager(session.NewMemoryStore(), client)
	if err := manager.Login(ctx, "+15550100", api.IssueSession(t, "+15550100")); err != nil {
		t.Fatalf("Failed to log in: %v", err)
	}
	voter := apiclient.NewGateway(client, manager).Voter(manager)

	poll := api.AddPoll("someone", "Lunch?", models.VoteModeMultiple, nil, "Pizza", "Sushi")
	a := poll.Options[0].ID
	l := New(api.Snapshot(poll.ID, "+15550100"))

	release := api.HoldVotes()
	done := make(chan Outcome, 1)
	go func() {
		outcome, err := l.Toggle(ctx, voter, a)
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
		done <- outcome
	}()

	// wait for the vote to reach the server
	deadline := time.Now().Add(5 * time.Second)
	for api.Hits(testutil.RouteVote) == 0 {
		if time.Now().After(deadline) {
			release()
			t.Fatal("Vote never reached the server")
		}
		time.Sleep(5 * time.Millisecond)
	}

	l.Reseed(api.Snapshot(poll.ID, "+15550100"))
	release()

	if outcome := <-done; outcome != OutcomeDiscarded {
		t.Errorf("Expected OutcomeDiscarded, got %v", outcome)
	}
	if l.Votes(a) != 0 {
		t.Errorf("Expected the reseeded count to stand, got %d", l.Votes(a))
	}
}
