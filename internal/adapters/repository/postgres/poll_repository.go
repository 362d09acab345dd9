package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/livepoll/api/internal/core/domain"
	"github.com/livepoll/api/internal/core/ports"
)

type pollRepository struct {
	db *sql.DB
}

func NewPollRepository(db *sql.DB) ports.PollRepository {
	return &pollRepository{
		db: db,
	}
}

func (r *pollRepository) Save(ctx context.Context, poll *domain.Poll) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", classify(err))
	}
	defer tx.Rollback()

	queryPoll := `
		INSERT INTO polls (
			id, short_id, question, creator_id, is_public, allowed_voters,
			voting_type, vote_restriction, show_results, status, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.ExecContext(ctx, queryPoll,
		poll.ID, poll.ShortID, poll.Question, poll.CreatorID, poll.IsPublic,
		pq.Array(poll.AllowedVoters), poll.VotingType, poll.VoteRestriction,
		poll.ShowResults, poll.Status, poll.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert poll: %w", classify(err))
	}

	queryOption := `
		INSERT INTO poll_options (poll_id, position, text, vote_count)
		VALUES ($1, $2, $3, $4)
	`
	stmt, err := tx.PrepareContext(ctx, queryOption)
	if err != nil {
		return fmt.Errorf("failed to prepare option statement: %w", classify(err))
	}
	defer stmt.Close()

	for _, opt := range poll.Options {
		_, err = stmt.ExecContext(ctx, poll.ID, opt.Position, opt.Text, opt.VoteCount)
		if err != nil {
			return fmt.Errorf("failed to insert option: %w", classify(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", classify(err))
	}

	return nil
}

const pollColumns = `
	id, short_id, question, creator_id, is_public, allowed_voters,
	voting_type, vote_restriction, show_results, status, expires_at,
	created_at, updated_at
`

func (r *pollRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	query := `SELECT ` + pollColumns + ` FROM polls WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *pollRepository) GetByShortID(ctx context.Context, shortID string) (*domain.Poll, error) {
	query := `SELECT ` + pollColumns + ` FROM polls WHERE short_id = $1`
	return r.getOne(ctx, query, shortID)
}

func (r *pollRepository) getOne(ctx context.Context, query string, arg any) (*domain.Poll, error) {
	poll, err := scanPoll(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to get poll: %w", classify(err))
	}

	options, err := r.fetchOptions(ctx, poll.ID)
	if err != nil {
		return nil, err
	}
	poll.Options = options

	return poll, nil
}

func (r *pollRepository) List(ctx context.Context, limit, offset int) ([]*domain.Poll, error) {
	query := `
		SELECT ` + pollColumns + `
		FROM polls
		WHERE is_public = TRUE
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", classify(err))
	}
	defer rows.Close()

	return r.scanPolls(ctx, rows)
}

// ListAll pages over every poll, private ones included. The summarization
// job walks this so the derived read model covers polls the public listing
// hides.
func (r *pollRepository) ListAll(ctx context.Context, limit, offset int) ([]*domain.Poll, error) {
	query := `
		SELECT ` + pollColumns + `
		FROM polls
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", classify(err))
	}
	defer rows.Close()

	return r.scanPolls(ctx, rows)
}

// IncrementOptionVote bumps one option counter with a targeted UPDATE that
// re-checks the poll is still active inside the same statement. A vote that
// races a closing sweep therefore either counts fully or is rejected with
// ErrPollClosed; it is never half applied. The updated tally is read within
// the same transaction.
func (r *pollRepository) IncrementOptionVote(ctx context.Context, pollID uuid.UUID, optionIndex int) (domain.Tally, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", classify(err))
	}
	defer tx.Rollback()

	query := `
		UPDATE poll_options o
		SET vote_count = o.vote_count + 1
		FROM polls p
		WHERE o.poll_id = p.id
		  AND p.id = $1
		  AND o.position = $2
		  AND p.status = 'active'
	`
	res, err := tx.ExecContext(ctx, query, pollID, optionIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to increment vote count: %w", classify(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read increment result: %w", classify(err))
	}
	if affected == 0 {
		var status domain.PollStatus
		err := tx.QueryRowContext(ctx, `SELECT status FROM polls WHERE id = $1`, pollID).Scan(&status)
		if err == sql.ErrNoRows {
			return nil, domain.ErrPollNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to check poll status: %w", classify(err))
		}
		if status != domain.PollStatusActive {
			return nil, domain.ErrPollClosed
		}
		return nil, domain.ErrInvalidOption
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT vote_count FROM poll_options WHERE poll_id = $1 ORDER BY position`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to read tally: %w", classify(err))
	}
	defer rows.Close()

	var tally domain.Tally
	for rows.Next() {
		var count int64
		if err := rows.Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to scan tally: %w", classify(err))
		}
		tally = append(tally, count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tally: %w", classify(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit increment: %w", classify(err))
	}
	return tally, nil
}

// SetStatusIf is the conditional transition both the sweep and the manual
// stop go through. The WHERE clause on the expected status makes the first
// writer win; losers see zero affected rows.
func (r *pollRepository) SetStatusIf(ctx context.Context, pollID uuid.UUID, expected, next domain.PollStatus) (bool, error) {
	query := `
		UPDATE polls
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`
	res, err := r.db.ExecContext(ctx, query, pollID, expected, next)
	if err != nil {
		return false, fmt.Errorf("failed to transition poll status: %w", classify(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read transition result: %w", classify(err))
	}
	return affected == 1, nil
}

func (r *pollRepository) ListExpiredActive(ctx context.Context, now time.Time) ([]*domain.Poll, error) {
	query := `
		SELECT ` + pollColumns + `
		FROM polls
		WHERE status = 'active'
		  AND expires_at IS NOT NULL
		  AND expires_at <= $1
	`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired polls: %w", classify(err))
	}
	defer rows.Close()

	return r.scanPolls(ctx, rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPoll(row rowScanner) (*domain.Poll, error) {
	var poll domain.Poll
	var allowed pq.StringArray
	err := row.Scan(
		&poll.ID, &poll.ShortID, &poll.Question, &poll.CreatorID, &poll.IsPublic,
		&allowed, &poll.VotingType, &poll.VoteRestriction, &poll.ShowResults,
		&poll.Status, &poll.ExpiresAt, &poll.CreatedAt, &poll.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	poll.AllowedVoters = allowed
	return &poll, nil
}

func (r *pollRepository) scanPolls(ctx context.Context, rows *sql.Rows) ([]*domain.Poll, error) {
	var polls []*domain.Poll
	for rows.Next() {
		poll, err := scanPoll(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", classify(err))
		}
		polls = append(polls, poll)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating polls: %w", classify(err))
	}

	for _, poll := range polls {
		options, err := r.fetchOptions(ctx, poll.ID)
		if err != nil {
			return nil, err
		}
		poll.Options = options
	}
	return polls, nil
}

func (r *pollRepository) fetchOptions(ctx context.Context, pollID uuid.UUID) ([]domain.PollOption, error) {
	query := `
		SELECT position, text, vote_count
		FROM poll_options
		WHERE poll_id = $1
		ORDER BY position
	`
	rows, err := r.db.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get poll options: %w", classify(err))
	}
	defer rows.Close()

	var options []domain.PollOption
	for rows.Next() {
		var opt domain.PollOption
		if err := rows.Scan(&opt.Position, &opt.Text, &opt.VoteCount); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", classify(err))
		}
		options = append(options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating options: %w", classify(err))
	}
	return options, nil
}
