package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/livepoll/api/internal/core/domain"
)

type NotificationRepository interface {
	// CreateIfAbsent writes the notification unless one with the same
	// (user, poll, event kind) already exists, and reports whether a row
	// was created.
	CreateIfAbsent(ctx context.Context, n *domain.Notification) (bool, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error)
}

// NotificationService fans a poll-close event out to its voters: one
// notification per distinct account-backed voter, at most once per closure,
// however many times the fan-out is invoked. It returns the ids of every
// recipient the closure reached, creator included.
type NotificationService interface {
	NotifyPollClosed(ctx context.Context, poll *domain.Poll) ([]uuid.UUID, error)
}
