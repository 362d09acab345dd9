package domain

import "errors"

// Sentinel errors cover the whole casting and lifecycle taxonomy. Handlers
// map them to status codes; nothing below this layer is ever surfaced to a
// client verbatim.
var (
	ErrPollNotFound    = errors.New("poll not found")
	ErrInvalidPollID   = errors.New("invalid poll id")
	ErrInvalidOption   = errors.New("invalid option for this poll")
	ErrInvalidIdentity = errors.New("malformed or missing voter identity")
	ErrAlreadyVoted    = errors.New("identity has already voted on this poll")
	ErrPollClosed      = errors.New("poll is not accepting votes")
	ErrPollExpired     = errors.New("poll deadline has passed")
	ErrNotEligible     = errors.New("voter is not eligible for this poll")
	ErrNotCreator      = errors.New("only the poll creator may do this")
	// ErrStoreUnavailable marks transient store I/O failures (timeouts,
	// dropped connections). The engine never retries these itself; retry
	// policy belongs to the caller.
	ErrStoreUnavailable = errors.New("store temporarily unavailable")
)
