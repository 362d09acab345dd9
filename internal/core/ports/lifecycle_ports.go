package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/livepoll/api/internal/core/domain"
)

// LifecycleService owns the active→closed transition. The recurring sweep
// and the creator's manual stop share the same conditional close path, so a
// poll is closed exactly once no matter how the paths race.
type LifecycleService interface {
	// Run drives recurring sweeps until the context is cancelled.
	Run(ctx context.Context) error

	// Sweep closes every active poll whose deadline is at or before now.
	// Per-poll failures are logged and skipped; they never abort the rest
	// of the sweep.
	Sweep(ctx context.Context, now time.Time)

	// StopPoll closes a poll on the creator's request, bypassing the timer.
	StopPoll(ctx context.Context, pollID, requesterID uuid.UUID) (*domain.Poll, error)
}
