package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/livepoll/api/internal/core/domain"
	"github.com/livepoll/api/internal/core/ports"
)

type voteRepository struct {
	db *sql.DB
}

func NewVoteRepository(db *sql.DB) ports.VoteLedger {
	return &voteRepository{
		db: db,
	}
}

// InsertIfAbsent leans on the UNIQUE (poll_id, voter_key) constraint: the
// insert and the duplicate check are one atomic statement, so two
// concurrent votes from the same identity cannot both land no matter how
// they interleave.
func (r *voteRepository) InsertIfAbsent(ctx context.Context, vote *domain.Vote) (bool, error) {
	query := `
		INSERT INTO votes (id, poll_id, option_index, voter_key, voted_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (poll_id, voter_key) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		vote.ID, vote.PollID, vote.OptionIndex, vote.Identity.Key(), vote.VotedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to save vote: %w", classify(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read vote insert result: %w", classify(err))
	}
	return affected == 1, nil
}

func (r *voteRepository) ListDistinctIdentities(ctx context.Context, pollID uuid.UUID) ([]domain.VoterIdentity, error) {
	query := `SELECT DISTINCT voter_key FROM votes WHERE poll_id = $1`
	rows, err := r.db.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to list voter identities: %w", classify(err))
	}
	defer rows.Close()

	var identities []domain.VoterIdentity
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan voter key: %w", classify(err))
		}
		identity, err := domain.ParseIdentityKey(key)
		if err != nil {
			return nil, fmt.Errorf("corrupt ledger entry for poll %s: %w", pollID, err)
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating voter identities: %w", classify(err))
	}
	return identities, nil
}
