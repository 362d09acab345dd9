package services

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/livepoll/api/internal/core/domain"
	"github.com/livepoll/api/internal/core/ports"
)

const defaultStoreTimeout = 5 * time.Second

// voteService coordinates vote casting. The ordering is load-bearing:
// the ledger insert is the uniqueness gate, the guarded counter increment is
// the tally commit, and the broadcast happens only after both. Concurrent
// votes from different identities never contend on anything but the atomic
// increment itself.
type voteService struct {
	pollRepo     ports.PollRepository
	ledger       ports.VoteLedger
	broadcaster  ports.Broadcaster
	clock        clock.Clock
	storeTimeout time.Duration
	logger       *zap.Logger
}

func NewVoteService(
	pollRepo ports.PollRepository,
	ledger ports.VoteLedger,
	broadcaster ports.Broadcaster,
	clk clock.Clock,
	storeTimeout time.Duration,
	logger *zap.Logger,
) ports.VoteService {
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return &voteService{
		pollRepo:     pollRepo,
		ledger:       ledger,
		broadcaster:  broadcaster,
		clock:        clk,
		storeTimeout: storeTimeout,
		logger:       logger,
	}
}

func (s *voteService) CastVote(ctx context.Context, input ports.CastVoteInput) (domain.Tally, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	poll, err := s.pollRepo.GetByID(ctx, input.PollID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := poll.AcceptingVotes(now); err != nil {
		return nil, err
	}
	if !poll.HasOption(input.OptionIndex) {
		return nil, domain.ErrInvalidOption
	}

	identity, err := domain.ResolveIdentity(poll, input.Identity)
	if err != nil {
		return nil, err
	}
	if !poll.AllowsVoter(input.Identity.Email) {
		return nil, domain.ErrNotEligible
	}

	vote := &domain.Vote{
		ID:          uuid.New(),
		PollID:      poll.ID,
		OptionIndex: input.OptionIndex,
		Identity:    identity,
		VotedAt:     now,
	}

	inserted, err := s.ledger.InsertIfAbsent(ctx, vote)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, domain.ErrAlreadyVoted
	}

	tally, err := s.pollRepo.IncrementOptionVote(ctx, poll.ID, input.OptionIndex)
	if err != nil {
		if errors.Is(err, domain.ErrPollClosed) {
			// The poll was closed between the ledger insert and the
			// increment. The vote is not counted; the ledger entry stays,
			// which keeps a retry of the same identity a no-op.
			s.logger.Warn("vote lost close race",
				zap.String("poll_id", poll.ID.String()),
				zap.String("voter", identity.Key()))
			return nil, domain.ErrPollClosed
		}
		// Ledger recorded the voter but the tally did not move. There is
		// no automatic recovery; the summarization job rebuilds the read
		// model from the ledger, the live counter stays short.
		s.logger.Error("counter increment failed after ledger insert",
			zap.String("poll_id", poll.ID.String()),
			zap.String("voter", identity.Key()),
			zap.Int("option", input.OptionIndex),
			zap.Error(err))
		return nil, err
	}

	ev := domain.VoteUpdateEvent(poll.ID, tally)
	s.broadcaster.Publish(poll.Room(), ev)
	if poll.ShortID != "" {
		s.broadcaster.Publish(poll.AliasRoom(), ev)
	}

	s.logger.Debug("vote counted",
		zap.String("poll_id", poll.ID.String()),
		zap.Int("option", input.OptionIndex))
	return tally, nil
}
