package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/livepoll/api/internal/core/domain"
	"github.com/livepoll/api/internal/core/ports"
)

const pollsPerPage = 20

type pollService struct {
	repo        ports.PollRepository
	broadcaster ports.Broadcaster
	clock       clock.Clock
	logger      *zap.Logger
}

func NewPollService(
	repo ports.PollRepository,
	broadcaster ports.Broadcaster,
	clk clock.Clock,
	logger *zap.Logger,
) ports.PollService {
	return &pollService{
		repo:        repo,
		broadcaster: broadcaster,
		clock:       clk,
		logger:      logger,
	}
}

func (s *pollService) Create(ctx context.Context, input ports.CreatePollInput) (*domain.Poll, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, errors.New("question is required")
	}
	if input.CreatorID == uuid.Nil {
		return nil, errors.New("creator is required")
	}

	now := s.clock.Now()
	if input.ExpiresAt != nil && !input.ExpiresAt.After(now) {
		return nil, errors.New("expiry must be in the future")
	}

	status := domain.PollStatusActive
	if input.Scheduled {
		status = domain.PollStatusScheduled
	}

	shortID, err := newShortID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate short id: %w", err)
	}

	poll := &domain.Poll{
		ID:              uuid.New(),
		ShortID:         shortID,
		Question:        strings.TrimSpace(input.Question),
		CreatorID:       input.CreatorID,
		IsPublic:        input.IsPublic,
		AllowedVoters:   normalizeAllowedVoters(input.AllowedVoters),
		VotingType:      input.VotingType,
		VoteRestriction: input.VoteRestriction,
		ShowResults:     input.ShowResults,
		Status:          status,
		ExpiresAt:       input.ExpiresAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if poll.VotingType == "" {
		poll.VotingType = domain.VotingTypeAuthenticated
	}
	if poll.VoteRestriction == "" {
		poll.VoteRestriction = domain.VoteRestrictionNone
	}
	if poll.ShowResults == "" {
		poll.ShowResults = domain.ShowResultsAlways
	}

	for i, optText := range input.Options {
		optText = strings.TrimSpace(optText)
		if optText == "" {
			continue
		}
		poll.Options = append(poll.Options, domain.PollOption{
			Position: i,
			Text:     optText,
		})
	}
	// Re-number after dropping blanks so positions stay dense.
	for i := range poll.Options {
		poll.Options[i].Position = i
	}
	if len(poll.Options) < 2 {
		return nil, errors.New("at least two options are required")
	}

	if err := s.repo.Save(ctx, poll); err != nil {
		return nil, err
	}

	if poll.IsPublic && poll.Status == domain.PollStatusActive {
		s.broadcaster.PublishGlobal(domain.NewPublicPollEvent(poll))
	}
	s.logger.Info("poll created",
		zap.String("poll_id", poll.ID.String()),
		zap.String("short_id", poll.ShortID),
		zap.String("status", string(poll.Status)))
	return poll, nil
}

// GetPoll resolves a poll by UUID or by its short URL alias.
func (s *pollService) GetPoll(ctx context.Context, idOrShortID string) (*domain.Poll, error) {
	if pollID, err := uuid.Parse(idOrShortID); err == nil {
		return s.repo.GetByID(ctx, pollID)
	}
	if idOrShortID == "" {
		return nil, domain.ErrInvalidPollID
	}
	return s.repo.GetByShortID(ctx, idOrShortID)
}

func (s *pollService) ListPolls(ctx context.Context, input ports.ListPollsInput) ([]*domain.Poll, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pollsPerPage
	return s.repo.List(ctx, pollsPerPage, offset)
}

func normalizeAllowedVoters(emails []string) []string {
	var out []string
	for _, e := range emails {
		if n := domain.NormalizeEmail(e); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// newShortID produces the poll's URL alias: 8 bytes of entropy rendered as
// url-safe base64, the same shape the share links use.
func newShortID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
