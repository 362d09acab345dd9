package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/livepoll/api/internal/core/domain"
)

// PollRepository is the durable poll store. Beyond plain CRUD it exposes the
// two atomic primitives the lifecycle engine is built on: a targeted
// per-option counter increment and a conditional status transition. Neither
// may be emulated with a read-modify-write of the whole document.
type PollRepository interface {
	Save(ctx context.Context, poll *domain.Poll) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	GetByShortID(ctx context.Context, shortID string) (*domain.Poll, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Poll, error)

	// ListAll pages over every poll regardless of visibility. The public
	// listing endpoint uses List; batch jobs that must not skip private
	// polls use this.
	ListAll(ctx context.Context, limit, offset int) ([]*domain.Poll, error)

	// IncrementOptionVote atomically bumps one option counter, guarded by
	// the poll still being active at the moment of the write, and returns
	// the updated tally. A guard failure surfaces as domain.ErrPollClosed;
	// an unknown poll as domain.ErrPollNotFound.
	IncrementOptionVote(ctx context.Context, pollID uuid.UUID, optionIndex int) (domain.Tally, error)

	// SetStatusIf transitions status only when the current value matches
	// expected. It reports whether this caller won the transition; losing is
	// not an error.
	SetStatusIf(ctx context.Context, pollID uuid.UUID, expected, next domain.PollStatus) (bool, error)

	// ListExpiredActive returns active polls whose deadline is at or before
	// the given instant.
	ListExpiredActive(ctx context.Context, now time.Time) ([]*domain.Poll, error)
}

type CreatePollInput struct {
	Question        string
	Options         []string
	CreatorID       uuid.UUID
	IsPublic        bool
	AllowedVoters   []string
	VotingType      domain.VotingType
	VoteRestriction domain.VoteRestriction
	ShowResults     domain.ShowResultsPolicy
	Scheduled       bool
	ExpiresAt       *time.Time
}

type ListPollsInput struct {
	Page int
}

type PollService interface {
	Create(ctx context.Context, input CreatePollInput) (*domain.Poll, error)
	GetPoll(ctx context.Context, idOrShortID string) (*domain.Poll, error)
	ListPolls(ctx context.Context, input ListPollsInput) ([]*domain.Poll, error)
}
