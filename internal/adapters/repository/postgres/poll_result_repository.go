package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/livepoll/api/internal/core/domain"
	"github.com/livepoll/api/internal/core/ports"
)

type pollResultRepository struct {
	db *sql.DB
}

func NewPollResultRepository(db *sql.DB) ports.PollResultRepository {
	return &pollResultRepository{
		db: db,
	}
}

func (r *pollResultRepository) GetPollOptionStats(ctx context.Context, pollID uuid.UUID) (map[int]domain.PollOptionStats, error) {
	query := `
		SELECT option_index, vote_count
		FROM poll_results
		WHERE poll_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stats: %w", classify(err))
	}
	defer rows.Close()

	counts := make(map[int]int64)
	var total int64
	for rows.Next() {
		var optionIndex int
		var count int64
		if err := rows.Scan(&optionIndex, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", classify(err))
		}
		counts[optionIndex] = count
		total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stats: %w", classify(err))
	}

	result := make(map[int]domain.PollOptionStats, len(counts))
	for optionIndex, count := range counts {
		percentage := 0.0
		if total > 0 {
			percentage = (float64(count) / float64(total)) * 100
		}
		result[optionIndex] = domain.PollOptionStats{
			VoteCount:  count,
			Percentage: percentage,
		}
	}

	return result, nil
}

// SummarizeVotes rebuilds the derived summary for one poll from the vote
// ledger. The upsert makes the job safe to rerun at any time.
func (r *pollResultRepository) SummarizeVotes(ctx context.Context, pollID uuid.UUID) error {
	query := `
		INSERT INTO poll_results (poll_id, option_index, vote_count, last_updated_at)
		SELECT poll_id, option_index, COUNT(*), NOW()
		FROM votes
		WHERE poll_id = $1
		GROUP BY poll_id, option_index
		ON CONFLICT (poll_id, option_index) DO UPDATE
		SET vote_count = EXCLUDED.vote_count,
		    last_updated_at = NOW();
	`

	_, err := r.db.ExecContext(ctx, query, pollID)
	if err != nil {
		return fmt.Errorf("failed to summarize votes for poll %s: %w", pollID, classify(err))
	}

	return nil
}
