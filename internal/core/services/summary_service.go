package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/livepoll/api/internal/core/ports"
)

// summaryService rebuilds the derived poll_results read model from the vote
// ledger, one poll at a time. It backs the results endpoint; it never
// touches the authoritative option counters.
type summaryService struct {
	pollRepo       ports.PollRepository
	pollResultRepo ports.PollResultRepository
	logger         *zap.Logger
}

func NewSummaryService(
	pollRepo ports.PollRepository,
	pollResultRepo ports.PollResultRepository,
	logger *zap.Logger,
) ports.SummaryService {
	return &summaryService{
		pollRepo:       pollRepo,
		pollResultRepo: pollResultRepo,
		logger:         logger,
	}
}

func (s *summaryService) SummarizeAllVotes(ctx context.Context) error {
	// Paged walk over every poll, private ones included; summarization per
	// poll is independent.
	const pageSize = 100
	offset := 0
	for {
		polls, err := s.pollRepo.ListAll(ctx, pageSize, offset)
		if err != nil {
			return fmt.Errorf("failed to fetch polls: %w", err)
		}
		if len(polls) == 0 {
			return nil
		}

		var wg sync.WaitGroup
		errChan := make(chan error, len(polls))
		for _, poll := range polls {
			wg.Add(1)
			go func(pID uuid.UUID) {
				defer wg.Done()
				if err := s.pollResultRepo.SummarizeVotes(ctx, pID); err != nil {
					errChan <- fmt.Errorf("failed to summarize poll %s: %w", pID, err)
				}
			}(poll.ID)
		}
		wg.Wait()
		close(errChan)

		for err := range errChan {
			if err != nil {
				return err
			}
		}

		s.logger.Debug("summarized poll batch", zap.Int("count", len(polls)))
		offset += pageSize
	}
}
