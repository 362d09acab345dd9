package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/livepoll/api/internal/core/domain"
)

// PollResultRepository maintains the derived results read model. It is
// rebuilt from the vote ledger and never touches the authoritative option
// counters.
type PollResultRepository interface {
	SummarizeVotes(ctx context.Context, pollID uuid.UUID) error
	GetPollOptionStats(ctx context.Context, pollID uuid.UUID) (map[int]domain.PollOptionStats, error)
}

type SummaryService interface {
	SummarizeAllVotes(ctx context.Context) error
}
