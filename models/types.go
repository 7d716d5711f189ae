package models

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// VoteMode is the poll-level voting policy. Values match the wire enum.
type VoteMode int

const (
	VoteModeSingle   VoteMode = 1
	VoteModeMultiple VoteMode = 2
)

func (m VoteMode) String() string {
	switch m {
	case VoteModeSingle:
		return "single"
	case VoteModeMultiple:
		return "multiple"
	default:
		return "unknown"
	}
}

// ParseVoteMode accepts "single" or "multiple" (case-insensitive)
func ParseVoteMode(s string) (VoteMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single":
		return VoteModeSingle, nil
	case "multiple":
		return VoteModeMultiple, nil
	}
	return 0, fmt.Errorf("invalid vote mode %q (want single or multiple)", s)
}

// SortBy orders the poll listing. Values match the wire enum.
type SortBy int

const (
	SortCreatedAtDesc  SortBy = 1
	SortCreatedAtAsc   SortBy = 2
	SortTotalVotesDesc SortBy = 3
	SortTotalVotesAsc  SortBy = 4
	SortExpiresAtAsc   SortBy = 5
	SortExpiresAtDesc  SortBy = 6
)

var sortNames = map[string]SortBy{
	"newest":       SortCreatedAtDesc,
	"oldest":       SortCreatedAtAsc,
	"most-votes":   SortTotalVotesDesc,
	"least-votes":  SortTotalVotesAsc,
	"expires-soon": SortExpiresAtAsc,
	"expires-late": SortExpiresAtDesc,
}

// ParseSortBy maps a CLI sort name to its wire value
func ParseSortBy(s string) (SortBy, error) {
	if v, ok := sortNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("invalid sort %q", s)
}

// Channel is the OTP delivery channel
type Channel int

const (
	ChannelSMS Channel = 1
)

// Request types

type GenerateCodeRequest struct {
	Target  string  `json:"target"`
	Channel Channel `json:"channel"`
}

type GenerateTokensRequest struct {
	Target  string  `json:"target"`
	Channel Channel `json:"channel"`
	Code    string  `json:"code"`
}

type RefreshTokenRequest struct {
	Token string `json:"token"`
}

type OptionInput struct {
	Value string `json:"value"`
}

// ExpiresAt must be produced by FormatExpiresAt so it carries an offset
type CreatePollRequest struct {
	Question  string        `json:"question"`
	ExpiresAt *string       `json:"expiresAt"`
	VoteMode  VoteMode      `json:"voteMode"`
	Options   []OptionInput `json:"options"`
}

// ListPollsParams are the optional filters of GET /polls
type ListPollsParams struct {
	Page        int
	PageSize    int
	SortBy      SortBy
	CreatedByMe bool
	VotedByMe   bool
	Status      int
	VoteMode    VoteMode
}

// Query encodes the non-zero parameters
func (p ListPollsParams) Query() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(p.PageSize))
	}
	if p.SortBy != 0 {
		q.Set("sortBy", strconv.Itoa(int(p.SortBy)))
	}
	if p.CreatedByMe {
		q.Set("createdByMe", "true")
	}
	if p.VotedByMe {
		q.Set("votedByMe", "true")
	}
	if p.Status != 0 {
		q.Set("status", strconv.Itoa(p.Status))
	}
	if p.VoteMode != 0 {
		q.Set("voteMode", strconv.Itoa(int(p.VoteMode)))
	}
	return q
}

// expiresAtLayout always renders a numeric offset, +00:00 included
const expiresAtLayout = "2006-01-02T15:04:05-07:00"

// FormatExpiresAt renders t with an explicit UTC offset. The server reads
// offsetless timestamps ambiguously, so never send one without.
func FormatExpiresAt(t time.Time) string {
	return t.Format(expiresAtLayout)
}

// Response types

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type PollsResponse struct {
	Items []Poll `json:"items"`
}

// Domain types

type Option struct {
	ID       string `json:"id"`
	Value    string `json:"value"`
	Votes    int    `json:"votes"`
	HasVoted bool   `json:"hasVoted"`
}

type Poll struct {
	ID         string     `json:"id"`
	Question   string     `json:"question"`
	VoteMode   VoteMode   `json:"voteMode"`
	ExpiresAt  *time.Time `json:"expiresAt"`
	IsClosed   bool       `json:"isClosed"`
	CreatedAt  time.Time  `json:"createdAt"`
	HasCreated bool       `json:"hasCreated"`
	Options    []Option   `json:"options"`
}

// IsExpired reports whether the poll stopped accepting votes before now.
// A poll without an expiry never expires.
func (p Poll) IsExpired(now time.Time) bool {
	return p.ExpiresAt != nil && p.ExpiresAt.Before(now)
}

// Credentials is the persisted session. PhoneNumber is the identity marker.
type Credentials struct {
	PhoneNumber string
	Tokens      TokenPair
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
