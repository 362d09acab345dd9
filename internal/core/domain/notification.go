package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification event kinds. Together with (UserID, PollID) they key the
// at-most-once guarantee: fan-out may run twice for the same closure and
// still produce a single row per recipient.
const (
	NotificationKindResultsPublished = "results_published"
	NotificationKindPollClosed       = "poll_closed"
)

type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	PollID    uuid.UUID `json:"poll_id"`
	EventKind string    `json:"event_kind"`
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
