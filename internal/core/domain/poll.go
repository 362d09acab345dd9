package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type PollStatus string

const (
	PollStatusScheduled PollStatus = "scheduled"
	PollStatusActive    PollStatus = "active"
	PollStatusClosed    PollStatus = "closed"
	PollStatusArchived  PollStatus = "archived"
)

type VotingType string

const (
	VotingTypeAnonymous     VotingType = "anonymous"
	VotingTypeAuthenticated VotingType = "authenticated"
)

type VoteRestriction string

const (
	VoteRestrictionNone  VoteRestriction = "none"
	VoteRestrictionIP    VoteRestriction = "ip"
	VoteRestrictionEmail VoteRestriction = "email"
)

type ShowResultsPolicy string

const (
	ShowResultsAlways      ShowResultsPolicy = "always"
	ShowResultsAfterVote   ShowResultsPolicy = "after_vote"
	ShowResultsAfterExpiry ShowResultsPolicy = "after_expiry"
)

type Poll struct {
	ID              uuid.UUID         `json:"id"`
	ShortID         string            `json:"short_id"`
	Question        string            `json:"question"`
	Options         []PollOption      `json:"options"`
	CreatorID       uuid.UUID         `json:"creator_id"`
	IsPublic        bool              `json:"is_public"`
	AllowedVoters   []string          `json:"allowed_voters,omitempty"`
	VotingType      VotingType        `json:"voting_type"`
	VoteRestriction VoteRestriction   `json:"vote_restriction"`
	ShowResults     ShowResultsPolicy `json:"show_results"`
	Status          PollStatus        `json:"status"`
	ExpiresAt       *time.Time        `json:"expires_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// PollOption is one selectable choice. Position is the option's stable index
// within the poll; VoteCount is the authoritative running tally for it and is
// only ever mutated through the store's atomic increment.
type PollOption struct {
	Position  int    `json:"position"`
	Text      string `json:"text"`
	VoteCount int64  `json:"vote_count"`
}

// Tally is the vector of per-option vote counts, ordered by option position.
type Tally []int64

func (p *Poll) Tally() Tally {
	t := make(Tally, len(p.Options))
	for i, opt := range p.Options {
		t[i] = opt.VoteCount
	}
	return t
}

// AcceptingVotes reports whether the poll can take a vote at the given
// instant. Scheduled, closed and archived polls reject with ErrPollClosed;
// an active poll past its deadline rejects with ErrPollExpired even if the
// sweep has not flipped its status yet.
func (p *Poll) AcceptingVotes(now time.Time) error {
	if p.Status != PollStatusActive {
		return ErrPollClosed
	}
	if p.ExpiresAt != nil && !p.ExpiresAt.After(now) {
		return ErrPollExpired
	}
	return nil
}

func (p *Poll) HasOption(position int) bool {
	return position >= 0 && position < len(p.Options)
}

// AllowsVoter checks a private poll's allow-list. Emails are compared
// case-insensitively; public polls allow everyone.
func (p *Poll) AllowsVoter(email string) bool {
	if p.IsPublic {
		return true
	}
	email = NormalizeEmail(email)
	if email == "" {
		return false
	}
	for _, allowed := range p.AllowedVoters {
		if NormalizeEmail(allowed) == email {
			return true
		}
	}
	return false
}

// Room returns the hub topic for this poll. The short id acts as an alias
// room so clients holding only the share URL can subscribe too.
func (p *Poll) Room() string {
	return p.ID.String()
}

func (p *Poll) AliasRoom() string {
	return p.ShortID
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
