package domain

import (
	"time"

	"github.com/google/uuid"
)

// PollResult is one row of the derived results read model, rebuilt from the
// vote ledger by the summarization job. It backs the results endpoint only;
// the authoritative counters live on the poll options themselves.
type PollResult struct {
	PollID        uuid.UUID `json:"poll_id"`
	OptionIndex   int       `json:"option_index"`
	VoteCount     int64     `json:"vote_count"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

type PollOptionStats struct {
	VoteCount  int64   `json:"vote_count"`
	Percentage float64 `json:"percentage"`
}
