package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/livepoll/api/internal/adapters/repository/memory"
	"github.com/livepoll/api/internal/core/domain"
	"github.com/livepoll/api/internal/core/ports"
)

func activePoll(expiresAt *time.Time) *domain.Poll {
	return &domain.Poll{
		ID:       uuid.New(),
		ShortID:  "abc123ef",
		Question: "Tabs or spaces?",
		Options: []domain.PollOption{
			{Position: 0, Text: "Tabs"},
			{Position: 1, Text: "Spaces"},
		},
		CreatorID:       uuid.New(),
		IsPublic:        true,
		VotingType:      domain.VotingTypeAnonymous,
		VoteRestriction: domain.VoteRestrictionNone,
		ShowResults:     domain.ShowResultsAlways,
		Status:          domain.PollStatusActive,
		ExpiresAt:       expiresAt,
	}
}

func newVoteFixture(t *testing.T, poll *domain.Poll) (ports.VoteService, *memory.PollStore, *memory.VoteLedger, *clock.Mock) {
	t.Helper()
	store := memory.NewPollStore()
	ledger := memory.NewVoteLedger()
	mockClock := clock.NewMock()
	require.NoError(t, store.Save(context.Background(), poll))
	svc := NewVoteService(store, ledger, ports.NopBroadcaster{}, mockClock, time.Second, zap.NewNop())
	return svc, store, ledger, mockClock
}

func TestCastVoteCountsFirstVote(t *testing.T) {
	poll := activePoll(nil)
	svc, _, _, _ := newVoteFixture(t, poll)

	tally, err := svc.CastVote(context.Background(), ports.CastVoteInput{
		PollID:      poll.ID,
		OptionIndex: 1,
		Identity:    domain.RawIdentity{Fingerprint: "device-1"},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.Tally{0, 1}, tally)
}

func TestCastVoteSameIdentityTwice(t *testing.T) {
	poll := activePoll(nil)
	svc, store, _, _ := newVoteFixture(t, poll)

	input := ports.CastVoteInput{
		PollID:      poll.ID,
		OptionIndex: 0,
		Identity:    domain.RawIdentity{Fingerprint: "device-1"},
	}

	_, err := svc.CastVote(context.Background(), input)
	require.NoError(t, err)

	// Second attempt, even for a different option, is rejected and does not
	// move the tally.
	input.OptionIndex = 1
	_, err = svc.CastVote(context.Background(), input)
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted)

	got, err := store.GetByID(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Tally{1, 0}, got.Tally())
}

func TestCastVoteConcurrentDistinctIdentities(t *testing.T) {
	poll := activePoll(nil)
	svc, store, _, _ := newVoteFixture(t, poll)

	const voters = 100
	var wg sync.WaitGroup
	errs := make(chan error, voters)
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.CastVote(context.Background(), ports.CastVoteInput{
				PollID:      poll.ID,
				OptionIndex: n % 2,
				Identity:    domain.RawIdentity{Fingerprint: fmt.Sprintf("device-%d", n)},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	got, err := store.GetByID(context.Background(), poll.ID)
	require.NoError(t, err)
	tally := got.Tally()
	assert.Equal(t, int64(voters), tally[0]+tally[1])
}

func TestCastVoteConcurrentSameIdentity(t *testing.T) {
	poll := activePoll(nil)
	svc, store, _, _ := newVoteFixture(t, poll)

	const attempts = 50
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CastVote(context.Background(), ports.CastVoteInput{
				PollID:      poll.ID,
				OptionIndex: 0,
				Identity:    domain.RawIdentity{Fingerprint: "shared-device"},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var accepted, duplicates int
	for err := range errs {
		switch {
		case err == nil:
			accepted++
		case assert.ErrorIs(t, err, domain.ErrAlreadyVoted):
			duplicates++
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, attempts-1, duplicates)

	got, err := store.GetByID(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Tally{1, 0}, got.Tally())
}

func TestCastVoteInvalidOption(t *testing.T) {
	poll := activePoll(nil)
	svc, _, _, _ := newVoteFixture(t, poll)

	_, err := svc.CastVote(context.Background(), ports.CastVoteInput{
		PollID:      poll.ID,
		OptionIndex: 5,
		Identity:    domain.RawIdentity{Fingerprint: "device-1"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidOption)
}

func TestCastVotePollNotFound(t *testing.T) {
	poll := activePoll(nil)
	svc, _, _, _ := newVoteFixture(t, poll)

	_, err := svc.CastVote(context.Background(), ports.CastVoteInput{
		PollID:      uuid.New(),
		OptionIndex: 0,
		Identity:    domain.RawIdentity{Fingerprint: "device-1"},
	})
	assert.ErrorIs(t, err, domain.ErrPollNotFound)
}

func TestCastVoteClosedPoll(t *testing.T) {
	poll := activePoll(nil)
	poll.Status = domain.PollStatusClosed
	svc, _, _, _ := newVoteFixture(t, poll)

	_, err := svc.CastVote(context.Background(), ports.CastVoteInput{
		PollID:      poll.ID,
		OptionIndex: 0,
		Identity:    domain.RawIdentity{Fingerprint: "device-1"},
	})
	assert.ErrorIs(t, err, domain.ErrPollClosed)
}

func TestCastVoteExpiredButNotYetSwept(t *testing.T) {
	// Status is still active, but the deadline has passed. The vote path
	// must reject without waiting for the sweep to flip the status.
	expiry := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	poll := activePoll(&expiry)
	svc, _, _, mockClock := newVoteFixture(t, poll)
	mockClock.Set(expiry.Add(time.Second))

	_, err := svc.CastVote(context.Background(), ports.CastVoteInput{
		PollID:      poll.ID,
		OptionIndex: 0,
		Identity:    domain.RawIdentity{Fingerprint: "device-1"},
	})
	assert.ErrorIs(t, err, domain.ErrPollExpired)
}

func TestCastVoteVoteAtExactDeadline(t *testing.T) {
	expiry := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	poll := activePoll(&expiry)
	svc, _, _, mockClock := newVoteFixture(t, poll)
	mockClock.Set(expiry)

	_, err := svc.CastVote(context.Background(), ports.CastVoteInput{
		PollID:      poll.ID,
		OptionIndex: 0,
		Identity:    domain.RawIdentity{Fingerprint: "device-1"},
	})
	assert.ErrorIs(t, err, domain.ErrPollExpired)
}

func TestCastVoteAuthenticatedPollRequiresAccount(t *testing.T) {
	poll := activePoll(nil)
	poll.VotingType = domain.VotingTypeAuthenticated
	svc, _, _, _ := newVoteFixture(t, poll)

	_, err := svc.CastVote(context.Background(), ports.CastVoteInput{
		PollID:      poll.ID,
		OptionIndex: 0,
		Identity:    domain.RawIdentity{Fingerprint: "device-1"},
	})
	assert.ErrorIs(t, err, domain.ErrNotEligible)
}

func TestCastVotePrivatePollAllowList(t *testing.T) {
	poll := activePoll(nil)
	poll.IsPublic = false
	poll.VoteRestriction = domain.VoteRestrictionEmail
	poll.AllowedVoters = []string{"Alice@Example.com"}
	svc, _, _, _ := newVoteFixture(t, poll)

	_, err := svc.CastVote(context.Background(), ports.CastVoteInput{
		PollID:      poll.ID,
		OptionIndex: 0,
		Identity:    domain.RawIdentity{Email: "mallory@example.com"},
	})
	assert.ErrorIs(t, err, domain.ErrNotEligible)

	// Allow-list comparison is case-insensitive.
	tally, err := svc.CastVote(context.Background(), ports.CastVoteInput{
		PollID:      poll.ID,
		OptionIndex: 0,
		Identity:    domain.RawIdentity{Email: "alice@example.COM"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Tally{1, 0}, tally)
}

func TestCastVoteMissingIdentityMaterial(t *testing.T) {
	poll := activePoll(nil)
	poll.VoteRestriction = domain.VoteRestrictionIP
	svc, _, _, _ := newVoteFixture(t, poll)

	_, err := svc.CastVote(context.Background(), ports.CastVoteInput{
		PollID:      poll.ID,
		OptionIndex: 0,
		Identity:    domain.RawIdentity{},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidIdentity)
}

// staleReadRepo serves a fixed snapshot from reads while delegating writes,
// simulating a poll that closes between the vote's status check and its
// counter increment.
type staleReadRepo struct {
	ports.PollRepository
	snapshot *domain.Poll
}

func (r *staleReadRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Poll, error) {
	if id == r.snapshot.ID {
		return r.snapshot, nil
	}
	return nil, domain.ErrPollNotFound
}

func TestCastVoteLedgerEntrySurvivesLostCloseRace(t *testing.T) {
	poll := activePoll(nil)
	store := memory.NewPollStore()
	ledger := memory.NewVoteLedger()
	require.NoError(t, store.Save(context.Background(), poll))

	// The store closes the poll, but the vote path still sees the active
	// snapshot. The ledger insert goes through; the guarded increment loses.
	won, err := store.SetStatusIf(context.Background(), poll.ID, domain.PollStatusActive, domain.PollStatusClosed)
	require.NoError(t, err)
	require.True(t, won)

	svc := NewVoteService(
		&staleReadRepo{PollRepository: store, snapshot: poll},
		ledger, ports.NopBroadcaster{}, clock.NewMock(), time.Second, zap.NewNop(),
	)

	_, err = svc.CastVote(context.Background(), ports.CastVoteInput{
		PollID:      poll.ID,
		OptionIndex: 0,
		Identity:    domain.RawIdentity{Fingerprint: "device-1"},
	})
	assert.ErrorIs(t, err, domain.ErrPollClosed)

	// The counter did not move, but the identity stays recorded: retrying
	// the same voter later is a duplicate, not a second counted vote.
	got, err := store.GetByID(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Tally{0, 0}, got.Tally())

	identities, err := ledger.ListDistinctIdentities(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Len(t, identities, 1)
}
