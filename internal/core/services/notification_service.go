package services

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/livepoll/api/internal/core/domain"
	"github.com/livepoll/api/internal/core/ports"
)

type notificationService struct {
	ledger    ports.VoteLedger
	notifRepo ports.NotificationRepository
	clock     clock.Clock
	logger    *zap.Logger
}

func NewNotificationService(
	ledger ports.VoteLedger,
	notifRepo ports.NotificationRepository,
	clk clock.Clock,
	logger *zap.Logger,
) ports.NotificationService {
	return &notificationService{
		ledger:    ledger,
		notifRepo: notifRepo,
		clock:     clk,
		logger:    logger,
	}
}

// NotifyPollClosed creates one "results published" notification per distinct
// account-backed voter of the poll, skipping the creator, who instead gets a
// "your poll closed" notification when they did not vote themselves.
// Anonymous identities (IP, email, fingerprint) have no account to notify
// and are ignored. The insert is keyed on (user, poll, event kind), so
// running the fan-out twice for the same closure creates nothing new.
func (s *notificationService) NotifyPollClosed(ctx context.Context, poll *domain.Poll) ([]uuid.UUID, error) {
	identities, err := s.ledger.ListDistinctIdentities(ctx, poll.ID)
	if err != nil {
		return nil, err
	}

	link := s.resultsLink(poll)
	now := s.clock.Now()
	notified := []uuid.UUID{poll.CreatorID}
	creatorVoted := false

	for _, ident := range identities {
		if !ident.IsAccount() {
			continue
		}
		if ident.AccountID == poll.CreatorID {
			creatorVoted = true
			continue
		}
		created, err := s.notifRepo.CreateIfAbsent(ctx, &domain.Notification{
			ID:        uuid.New(),
			UserID:    ident.AccountID,
			PollID:    poll.ID,
			EventKind: domain.NotificationKindResultsPublished,
			Message:   fmt.Sprintf("Results for the poll %q you voted in are now published!", poll.Question),
			Link:      link,
			CreatedAt: now,
		})
		if err != nil {
			return nil, err
		}
		if !created {
			s.logger.Debug("voter already notified",
				zap.String("poll_id", poll.ID.String()),
				zap.String("user_id", ident.AccountID.String()))
		}
		notified = append(notified, ident.AccountID)
	}

	// The creator only gets a dedicated notification when they did not vote
	// themselves; a creator who voted already appears in the notified set.
	if !creatorVoted {
		if _, err := s.notifRepo.CreateIfAbsent(ctx, &domain.Notification{
			ID:        uuid.New(),
			UserID:    poll.CreatorID,
			PollID:    poll.ID,
			EventKind: domain.NotificationKindPollClosed,
			Message:   fmt.Sprintf("Results for your poll %q are published (it closed).", poll.Question),
			Link:      link,
			CreatedAt: now,
		}); err != nil {
			return nil, err
		}
	}

	return notified, nil
}

func (s *notificationService) resultsLink(poll *domain.Poll) string {
	if poll.ShortID != "" {
		return fmt.Sprintf("/poll/%s/results", poll.ShortID)
	}
	return fmt.Sprintf("/poll/%s/results", poll.ID)
}
