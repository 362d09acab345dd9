package domain

import (
	"time"

	"github.com/google/uuid"
)

// Realtime event names pushed through the broadcast hub. Delivery is
// at-most-once and unordered relative to store commit visibility: clients
// must treat these as hints and stay correct using direct reads.
const (
	EventVoteUpdate       = "vote_update"
	EventPollClosed       = "poll_closed"
	EventResultsPublished = "results_published"
	EventNewPublicPoll    = "new_public_poll"
)

type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"data"`
}

type VoteUpdatePayload struct {
	PollID string `json:"poll_id"`
	Tally  Tally  `json:"tally"`
}

type PollClosedPayload struct {
	PollID    string     `json:"poll_id"`
	ShortID   string     `json:"short_id"`
	Status    PollStatus `json:"status"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Question  string     `json:"question"`
}

type ResultsPublishedPayload struct {
	PollID          string      `json:"poll_id"`
	ShortID         string      `json:"short_id"`
	Question        string      `json:"question"`
	NotifiedUserIDs []uuid.UUID `json:"notified_user_ids"`
}

type NewPublicPollPayload struct {
	PollID   string `json:"poll_id"`
	ShortID  string `json:"short_id"`
	Question string `json:"question"`
}

func VoteUpdateEvent(pollID uuid.UUID, tally Tally) Event {
	return Event{Name: EventVoteUpdate, Payload: VoteUpdatePayload{PollID: pollID.String(), Tally: tally}}
}

func PollClosedEvent(p *Poll) Event {
	return Event{Name: EventPollClosed, Payload: PollClosedPayload{
		PollID:    p.ID.String(),
		ShortID:   p.ShortID,
		Status:    p.Status,
		ExpiresAt: p.ExpiresAt,
		Question:  p.Question,
	}}
}

func ResultsPublishedEvent(p *Poll, notified []uuid.UUID) Event {
	return Event{Name: EventResultsPublished, Payload: ResultsPublishedPayload{
		PollID:          p.ID.String(),
		ShortID:         p.ShortID,
		Question:        p.Question,
		NotifiedUserIDs: notified,
	}}
}

func NewPublicPollEvent(p *Poll) Event {
	return Event{Name: EventNewPublicPoll, Payload: NewPublicPollPayload{
		PollID:   p.ID.String(),
		ShortID:  p.ShortID,
		Question: p.Question,
	}}
}
