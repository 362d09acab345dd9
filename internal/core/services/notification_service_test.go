package services

import (
	"context"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/livepoll/api/internal/adapters/repository/memory"
	"github.com/livepoll/api/internal/core/domain"
	"github.com/livepoll/api/internal/core/ports"
)

type notifyFixture struct {
	svc        ports.NotificationService
	ledger     *memory.VoteLedger
	notifStore *memory.NotificationStore
	clock      *clock.Mock
}

func newNotifyFixture(t *testing.T) *notifyFixture {
	t.Helper()
	ledger := memory.NewVoteLedger()
	notifStore := memory.NewNotificationStore()
	mockClock := clock.NewMock()
	svc := NewNotificationService(ledger, notifStore, mockClock, zap.NewNop())
	return &notifyFixture{svc: svc, ledger: ledger, notifStore: notifStore, clock: mockClock}
}

func (f *notifyFixture) recordVote(t *testing.T, pollID uuid.UUID, ident domain.VoterIdentity) {
	t.Helper()
	inserted, err := f.ledger.InsertIfAbsent(context.Background(), &domain.Vote{
		ID:       uuid.New(),
		PollID:   pollID,
		Identity: ident,
		VotedAt:  f.clock.Now(),
	})
	require.NoError(t, err)
	require.True(t, inserted)
}

func TestNotifyPollClosedNotifiesAccountVoters(t *testing.T) {
	f := newNotifyFixture(t)
	poll := activePoll(nil)
	voterA, voterB := uuid.New(), uuid.New()

	f.recordVote(t, poll.ID, domain.AccountIdentity(voterA))
	f.recordVote(t, poll.ID, domain.AccountIdentity(voterB))
	// Anonymous identities have no inbox and are skipped.
	f.recordVote(t, poll.ID, domain.AnonymousIP("10.0.0.1"))
	f.recordVote(t, poll.ID, domain.AnonymousFingerprint("device-1"))

	notified, err := f.svc.NotifyPollClosed(context.Background(), poll)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{poll.CreatorID, voterA, voterB}, notified)

	all := f.notifStore.All()
	require.Len(t, all, 3)

	byUser := map[uuid.UUID]*domain.Notification{}
	for _, n := range all {
		byUser[n.UserID] = n
	}
	assert.Equal(t, domain.NotificationKindResultsPublished, byUser[voterA].EventKind)
	assert.Equal(t, domain.NotificationKindResultsPublished, byUser[voterB].EventKind)
	assert.Equal(t, domain.NotificationKindPollClosed, byUser[poll.CreatorID].EventKind)
	assert.Equal(t, "/poll/"+poll.ShortID+"/results", byUser[voterA].Link)
}

func TestNotifyPollClosedCreatorWhoVoted(t *testing.T) {
	f := newNotifyFixture(t)
	poll := activePoll(nil)
	f.recordVote(t, poll.ID, domain.AccountIdentity(poll.CreatorID))

	notified, err := f.svc.NotifyPollClosed(context.Background(), poll)
	require.NoError(t, err)

	// The creator is in the notified set exactly once and gets no stored
	// notification: they voted, so the closure is not news to deliver twice.
	assert.Equal(t, []uuid.UUID{poll.CreatorID}, notified)
	assert.Empty(t, f.notifStore.All())
}

func TestNotifyPollClosedIsIdempotent(t *testing.T) {
	f := newNotifyFixture(t)
	poll := activePoll(nil)
	voter := uuid.New()
	f.recordVote(t, poll.ID, domain.AccountIdentity(voter))

	first, err := f.svc.NotifyPollClosed(context.Background(), poll)
	require.NoError(t, err)
	count := len(f.notifStore.All())

	second, err := f.svc.NotifyPollClosed(context.Background(), poll)
	require.NoError(t, err)

	assert.ElementsMatch(t, first, second)
	assert.Len(t, f.notifStore.All(), count)
}

func TestNotifyPollClosedNoVoters(t *testing.T) {
	f := newNotifyFixture(t)
	poll := activePoll(nil)

	notified, err := f.svc.NotifyPollClosed(context.Background(), poll)
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{poll.CreatorID}, notified)

	all := f.notifStore.All()
	require.Len(t, all, 1)
	assert.Equal(t, domain.NotificationKindPollClosed, all[0].EventKind)
}
