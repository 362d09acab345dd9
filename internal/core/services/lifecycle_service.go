package services

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/livepoll/api/internal/core/domain"
	"github.com/livepoll/api/internal/core/ports"
)

const DefaultSweepInterval = time.Minute

// lifecycleService closes polls whose deadline has passed. Idempotency is
// anchored entirely in the conditional status write: overlapping sweeps, a
// crashed-and-retried sweep and a concurrent manual stop can all race on the
// same poll, but only one caller wins the active→closed transition, so
// double closing and double fan-out cannot occur for that poll.
type lifecycleService struct {
	pollRepo     ports.PollRepository
	notifier     ports.NotificationService
	broadcaster  ports.Broadcaster
	clock        clock.Clock
	interval     time.Duration
	storeTimeout time.Duration
	logger       *zap.Logger
}

func NewLifecycleService(
	pollRepo ports.PollRepository,
	notifier ports.NotificationService,
	broadcaster ports.Broadcaster,
	clk clock.Clock,
	interval time.Duration,
	storeTimeout time.Duration,
	logger *zap.Logger,
) ports.LifecycleService {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return &lifecycleService{
		pollRepo:     pollRepo,
		notifier:     notifier,
		broadcaster:  broadcaster,
		clock:        clk,
		interval:     interval,
		storeTimeout: storeTimeout,
		logger:       logger,
	}
}

// Run sweeps on a fixed interval until ctx is cancelled. Exactly one Run
// loop should drive sweeps in a deployment; correctness does not depend on
// that, only fan-out duplication risk does.
func (s *lifecycleService) Run(ctx context.Context) error {
	ticker := s.clock.Ticker(s.interval)
	defer ticker.Stop()

	s.logger.Info("expiry scheduler started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry scheduler stopped")
			return nil
		case <-ticker.C:
			s.Sweep(ctx, s.clock.Now())
		}
	}
}

// Sweep finds active polls past their deadline and closes each one at most
// once. Candidates are handled sequentially to bound fan-out duplication; a
// failure on one poll is logged and does not abort the rest.
func (s *lifecycleService) Sweep(ctx context.Context, now time.Time) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	expired, err := s.pollRepo.ListExpiredActive(sweepCtx, now)
	cancel()
	if err != nil {
		s.logger.Error("expired poll query failed", zap.Error(err))
		return
	}
	if len(expired) == 0 {
		return
	}

	s.logger.Info("closing expired polls", zap.Int("candidates", len(expired)))
	for _, poll := range expired {
		if _, err := s.closePoll(ctx, poll); err != nil {
			s.logger.Error("poll close failed",
				zap.String("poll_id", poll.ID.String()),
				zap.Error(err))
		}
	}
}

// StopPoll is the creator's manual close. It shares closePoll with the
// sweep, so a stop racing a sweep still closes the poll exactly once; the
// loser observes ErrPollClosed.
func (s *lifecycleService) StopPoll(ctx context.Context, pollID, requesterID uuid.UUID) (*domain.Poll, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	poll, err := s.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if poll.CreatorID != requesterID {
		return nil, domain.ErrNotCreator
	}
	if poll.Status != domain.PollStatusActive {
		return nil, domain.ErrPollClosed
	}
	won, err := s.closePoll(ctx, poll)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, domain.ErrPollClosed
	}
	return poll, nil
}

// closePoll attempts the conditional active→closed transition and, on
// winning, runs notifications and broadcasts. Losing the transition is not
// an error; it means the poll was already closed by a racing caller.
func (s *lifecycleService) closePoll(ctx context.Context, poll *domain.Poll) (bool, error) {
	transCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	won, err := s.pollRepo.SetStatusIf(transCtx, poll.ID, domain.PollStatusActive, domain.PollStatusClosed)
	cancel()
	if err != nil {
		return false, err
	}
	if !won {
		s.logger.Debug("poll already closed", zap.String("poll_id", poll.ID.String()))
		return false, nil
	}
	poll.Status = domain.PollStatusClosed

	// Events and notifications run only on the winning transition. A
	// failure past this point leaves the poll closed but unnotified; the
	// sweep will not revisit it. Rerunning the fan-out by hand is safe
	// because the notification insert dedupes.
	closedEv := domain.PollClosedEvent(poll)
	s.broadcaster.Publish(poll.Room(), closedEv)
	if poll.ShortID != "" {
		s.broadcaster.Publish(poll.AliasRoom(), closedEv)
	}

	notifyCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	notified, err := s.notifier.NotifyPollClosed(notifyCtx, poll)
	cancel()
	if err != nil {
		return true, err
	}

	s.broadcaster.PublishGlobal(domain.ResultsPublishedEvent(poll, notified))
	s.logger.Info("poll closed",
		zap.String("poll_id", poll.ID.String()),
		zap.String("short_id", poll.ShortID),
		zap.Int("notified", len(notified)))
	return true, nil
}
