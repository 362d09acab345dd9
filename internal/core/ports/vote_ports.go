package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/livepoll/api/internal/core/domain"
)

// VoteLedger is the uniqueness-enforcing record of who voted on what.
type VoteLedger interface {
	// InsertIfAbsent records the vote unless an entry for the same
	// (poll, identity) pair already exists. It reports whether the entry
	// was inserted; a false return means the identity already voted and
	// nothing was written.
	InsertIfAbsent(ctx context.Context, vote *domain.Vote) (bool, error)

	// ListDistinctIdentities returns every distinct voter identity recorded
	// for the poll.
	ListDistinctIdentities(ctx context.Context, pollID uuid.UUID) ([]domain.VoterIdentity, error)
}

type CastVoteInput struct {
	PollID      uuid.UUID
	OptionIndex int
	Identity    domain.RawIdentity
}

// VoteService accepts a vote exactly once per identity per poll. Repeated
// calls with the same identity are safe no-ops that fail with
// domain.ErrAlreadyVoted, which makes client retries idempotent.
type VoteService interface {
	CastVote(ctx context.Context, input CastVoteInput) (domain.Tally, error)
}
