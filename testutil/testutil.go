// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/guilhermeosaka/voxpop-web/middleware"
	"github.com/guilhermeosaka/voxpop-web/models"
)

// Endpoint patterns, also used as hit-counter keys
const (
	RouteListPolls      = "GET /polls"
	RouteCreatePoll     = "POST /polls"
	RouteVote           = "PUT /polls/{pollId}/votes/{optionId}"
	RouteDeleteVote     = "DELETE /polls/{pollId}/votes/{optionId}"
	RouteGenerateCode   = "POST /codes/otp"
	RouteGenerateTokens = "POST /tokens/otp"
	RouteRefreshTokens  = "PUT /tokens"
)

// TestCode is the OTP the fake identity API always sends
const TestCode = "123456"

var signingKey = []byte("voxpop-test-signing-key")

type fakePoll struct {
	poll    models.Poll
	creator string
	// optionID -> set of voter identities
	votes map[string]map[string]bool
}

// FakeAPI serves the core and identity REST APIs from memory.
// Fault injection setters make endpoints misbehave on demand.
type FakeAPI struct {
	Core     *httptest.Server
	Identity *httptest.Server

	mu          sync.Mutex
	seq         int
	polls       []*fakePoll
	access      map[string]string // access token -> phone
	refresh     map[string]string // refresh token -> phone
	codes       map[string]string // phone -> code
	hits        map[string]int
	lastAuth    map[string]string
	unavailable bool
	failRefresh bool
	voteStatus  int
	voteGate    chan struct{}
	now         func() time.Time
}

// NewFakeAPI starts both servers; they are closed when the test ends
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	api := &FakeAPI{
		access:   make(map[string]string),
		refresh:  make(map[string]string),
		codes:    make(map[string]string),
		hits:     make(map[string]int),
		lastAuth: make(map[string]string),
		now:      time.Now,
	}

	core := http.NewServeMux()
	core.HandleFunc(RouteListPolls, api.count(api.listPolls))
	core.HandleFunc(RouteCreatePoll, api.count(api.createPoll))
	core.HandleFunc(RouteVote, api.count(api.vote))
	core.HandleFunc(RouteDeleteVote, api.count(api.deleteVote))

	identity := http.NewServeMux()
	identity.HandleFunc(RouteGenerateCode, api.count(api.generateCode))
	identity.HandleFunc(RouteGenerateTokens, api.count(api.generateTokens))
	identity.HandleFunc(RouteRefreshTokens, api.count(api.refreshTokens))

	api.Core = httptest.NewServer(core)
	api.Identity = httptest.NewServer(identity)
	t.Cleanup(func() {
		api.Core.Close()
		api.Identity.Close()
	})
	return api
}

func (a *FakeAPI) count(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.hits[r.Pattern]++
		a.lastAuth[r.Pattern] = r.Header.Get("Authorization")
		a.mu.Unlock()
		next(w, r)
	}
}

// Hits returns how many requests reached route
func (a *FakeAPI) Hits(route string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hits[route]
}

// LastAuthorization returns the Authorization header of the last request to route
func (a *FakeAPI) LastAuthorization(route string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastAuth[route]
}

// SetUnavailable makes GET /polls answer 503
func (a *FakeAPI) SetUnavailable(v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unavailable = v
}

// SetFailRefresh makes PUT /tokens answer 401
func (a *FakeAPI) SetFailRefresh(v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failRefresh = v
}

// SetVoteStatus forces vote and unvote calls to answer status (0 restores)
func (a *FakeAPI) SetVoteStatus(status int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.voteStatus = status
}

// HoldVotes blocks vote and unvote handlers until the returned func is called
func (a *FakeAPI) HoldVotes() (release func()) {
	gate := make(chan struct{})
	a.mu.Lock()
	a.voteGate = gate
	a.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			a.voteGate = nil
			a.mu.Unlock()
			close(gate)
		})
	}
}

// ExpireAccessTokens invalidates every issued access token; refresh tokens stay valid
func (a *FakeAPI) ExpireAccessTokens() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.access = make(map[string]string)
}

// IssueSession creates a token pair for phone without the OTP dance
func (a *FakeAPI) IssueSession(t *testing.T, phone string) models.TokenPair {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	pair, err := a.issueLocked(phone)
	if err != nil {
		t.Fatalf("Failed to issue session: %v", err)
	}
	return pair
}

// CodeFor returns the OTP last sent to phone
func (a *FakeAPI) CodeFor(phone string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.codes[phone]
}

func (a *FakeAPI) issueLocked(phone string) (models.TokenPair, error) {
	a.seq++
	claims := jwt.RegisteredClaims{
		Subject:   phone,
		ID:        fmt.Sprintf("t%d", a.seq),
		IssuedAt:  jwt.NewNumericDate(a.now()),
		ExpiresAt: jwt.NewNumericDate(a.now().Add(15 * time.Minute)),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		return models.TokenPair{}, err
	}
	refresh := fmt.Sprintf("refresh-%d", a.seq)
	a.access[access] = phone
	a.refresh[refresh] = phone
	return models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// AddPoll stores a poll created by creator with options labelled values.
// Option IDs are "<pollID>-o1", "<pollID>-o2", ...
func (a *FakeAPI) AddPoll(creator, question string, mode models.VoteMode, expiresAt *time.Time, values ...string) models.Poll {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addPollLocked(creator, question, mode, expiresAt, values)
}

func (a *FakeAPI) addPollLocked(creator, question string, mode models.VoteMode, expiresAt *time.Time, values []string) models.Poll {
	a.seq++
	id := fmt.Sprintf("p%d", a.seq)
	fp := &fakePoll{
		poll: models.Poll{
			ID:        id,
			Question:  question,
			VoteMode:  mode,
			ExpiresAt: expiresAt,
			CreatedAt: a.now().UTC().Truncate(time.Second),
		},
		creator: creator,
		votes:   make(map[string]map[string]bool),
	}
	for i, v := range values {
		optID := fmt.Sprintf("%s-o%d", id, i+1)
		fp.poll.Options = append(fp.poll.Options, models.Option{ID: optID, Value: v})
		fp.votes[optID] = make(map[string]bool)
	}
	a.polls = append(a.polls, fp)
	return a.snapshotLocked(fp, creator)
}

// CastVote records a vote by voter without going through HTTP
func (a *FakeAPI) CastVote(voter, pollID, optionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if fp := a.findLocked(pollID); fp != nil {
		if set, ok := fp.votes[optionID]; ok {
			set[voter] = true
		}
	}
}

// SeedVotes adds n votes from anonymous voters to an option
func (a *FakeAPI) SeedVotes(pollID, optionID string, n int) {
	for i := 0; i < n; i++ {
		a.CastVote(fmt.Sprintf("seed-%s-%d", optionID, i), pollID, optionID)
	}
}

// Snapshot returns the poll as viewer would receive it
func (a *FakeAPI) Snapshot(pollID, viewer string) models.Poll {
	a.mu.Lock()
	defer a.mu.Unlock()
	fp := a.findLocked(pollID)
	if fp == nil {
		return models.Poll{}
	}
	return a.snapshotLocked(fp, viewer)
}

func (a *FakeAPI) findLocked(pollID string) *fakePoll {
	for _, fp := range a.polls {
		if fp.poll.ID == pollID {
			return fp
		}
	}
	return nil
}

func (a *FakeAPI) snapshotLocked(fp *fakePoll, viewer string) models.Poll {
	p := fp.poll
	p.HasCreated = viewer != "" && fp.creator == viewer
	p.Options = make([]models.Option, len(fp.poll.Options))
	for i, opt := range fp.poll.Options {
		opt.Votes = len(fp.votes[opt.ID])
		opt.HasVoted = viewer != "" && fp.votes[opt.ID][viewer]
		p.Options[i] = opt
	}
	return p
}

// identify resolves the bearer token. ok=false means a 401 was written.
// An absent header is anonymous when optional is true.
func (a *FakeAPI) identify(w http.ResponseWriter, r *http.Request, optional bool) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" && optional {
		return "", true
	}
	token, found := strings.CutPrefix(header, "Bearer ")
	a.mu.Lock()
	phone, valid := a.access[token]
	a.mu.Unlock()
	if !found || !valid {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "invalid or expired access token")
		return "", false
	}
	return phone, true
}

func (a *FakeAPI) listPolls(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	unavailable := a.unavailable
	a.mu.Unlock()
	if unavailable {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "maintenance")
		return
	}

	viewer, ok := a.identify(w, r, true)
	if !ok {
		return
	}

	q := r.URL.Query()
	a.mu.Lock()
	defer a.mu.Unlock()

	items := []models.Poll{}
	for _, fp := range a.polls {
		snap := a.snapshotLocked(fp, viewer)
		if q.Get("createdByMe") == "true" && !snap.HasCreated {
			continue
		}
		if q.Get("votedByMe") == "true" && !slices.ContainsFunc(snap.Options, func(o models.Option) bool { return o.HasVoted }) {
			continue
		}
		items = append(items, snap)
	}
	middleware.JSONResponse(w, http.StatusOK, models.PollsResponse{Items: items})
}

func (a *FakeAPI) createPoll(w http.ResponseWriter, r *http.Request) {
	creator, ok := a.identify(w, r, false)
	if !ok {
		return
	}

	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r.Body, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Question) == "" || len(req.Options) < 2 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "question and at least two options are required")
		return
	}
	if req.VoteMode != models.VoteModeSingle && req.VoteMode != models.VoteModeMultiple {
		middleware.ErrorResponse(w, http.StatusBadRequest, "invalid voteMode")
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		// RFC3339 requires an offset; offsetless strings are rejected
		t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "expiresAt must carry a UTC offset")
			return
		}
		expiresAt = &t
	}

	values := make([]string, len(req.Options))
	for i, o := range req.Options {
		values[i] = o.Value
	}

	a.mu.Lock()
	poll := a.addPollLocked(creator, req.Question, req.VoteMode, expiresAt, values)
	a.mu.Unlock()

	middleware.JSONResponse(w, http.StatusCreated, poll)
}

// voteTarget resolves the poll and option and applies fault injection.
// ok=false means a response was written.
func (a *FakeAPI) voteTarget(w http.ResponseWriter, r *http.Request) (string, *fakePoll, string, bool) {
	voter, ok := a.identify(w, r, false)
	if !ok {
		return "", nil, "", false
	}

	a.mu.Lock()
	gate := a.voteGate
	a.mu.Unlock()
	if gate != nil {
		<-gate
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.voteStatus != 0 {
		middleware.ErrorResponse(w, a.voteStatus, "vote rejected")
		return "", nil, "", false
	}
	fp := a.findLocked(r.PathValue("pollId"))
	optionID := r.PathValue("optionId")
	if fp == nil || fp.votes[optionID] == nil {
		middleware.ErrorResponse(w, http.StatusNotFound, "poll or option not found")
		return "", nil, "", false
	}
	if fp.poll.IsExpired(a.now()) {
		middleware.ErrorResponse(w, http.StatusConflict, "poll expired")
		return "", nil, "", false
	}
	return voter, fp, optionID, true
}

func (a *FakeAPI) vote(w http.ResponseWriter, r *http.Request) {
	voter, fp, optionID, ok := a.voteTarget(w, r)
	if !ok {
		return
	}
	a.mu.Lock()
	if fp.poll.VoteMode == models.VoteModeSingle {
		for _, set := range fp.votes {
			delete(set, voter)
		}
	}
	fp.votes[optionID][voter] = true
	a.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (a *FakeAPI) deleteVote(w http.ResponseWriter, r *http.Request) {
	voter, fp, optionID, ok := a.voteTarget(w, r)
	if !ok {
		return
	}
	a.mu.Lock()
	delete(fp.votes[optionID], voter)
	a.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (a *FakeAPI) generateCode(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateCodeRequest
	if err := middleware.ParseJSONBody(r.Body, &req); err != nil || req.Target == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "target is required")
		return
	}
	if req.Channel != models.ChannelSMS {
		middleware.ErrorResponse(w, http.StatusBadRequest, "unsupported channel")
		return
	}
	a.mu.Lock()
	a.codes[req.Target] = TestCode
	a.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (a *FakeAPI) generateTokens(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateTokensRequest
	if err := middleware.ParseJSONBody(r.Body, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if code, ok := a.codes[req.Target]; !ok || code != req.Code {
		middleware.ErrorResponse(w, http.StatusBadRequest, "invalid code")
		return
	}
	delete(a.codes, req.Target)
	pair, err := a.issueLocked(req.Target)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusInternalServerError, "failed to issue tokens")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, pair)
}

func (a *FakeAPI) refreshTokens(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if err := middleware.ParseJSONBody(r.Body, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	phone, ok := a.refresh[req.Token]
	if a.failRefresh || !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	// refresh tokens rotate
	delete(a.refresh, req.Token)
	pair, err := a.issueLocked(phone)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusInternalServerError, "failed to issue tokens")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, pair)
}
