package domain

import (
	"time"

	"github.com/google/uuid"
)

// Vote is one ledger entry: who voted for what on which poll. Entries are
// created once by the casting path and never mutated or deleted while their
// poll exists. The (PollID, Identity) pair is unique and is the sole
// mechanism preventing double voting.
type Vote struct {
	ID          uuid.UUID     `json:"id"`
	PollID      uuid.UUID     `json:"poll_id"`
	OptionIndex int           `json:"option_index"`
	Identity    VoterIdentity `json:"identity"`
	VotedAt     time.Time     `json:"voted_at"`
}
