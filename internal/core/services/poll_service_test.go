package services

import (
	"context"
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

func newPollFixture(t *testing.T) (ports.PollService, *memory.PollStore, *clock.Mock) {
	t.Helper()
	store := memory.NewPollStore()
	mockClock := clock.NewMock()
	mockClock.Set(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	svc := NewPollService(store, ports.NopBroadcaster{}, mockClock, zap.NewNop())
	return svc, store, mockClock
}

func TestCreatePollAppliesDefaults(t *testing.T) {
	svc, _, _ := newPollFixture(t)

	poll, err := svc.Create(context.Background(), ports.CreatePollInput{
		Question:  "  Tabs or spaces?  ",
		Options:   []string{"Tabs", "Spaces"},
		CreatorID: uuid.New(),
		IsPublic:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Tabs or spaces?", poll.Question)
	assert.Equal(t, domain.VotingTypeAuthenticated, poll.VotingType)
	assert.Equal(t, domain.VoteRestrictionNone, poll.VoteRestriction)
	assert.Equal(t, domain.ShowResultsAlways, poll.ShowResults)
	assert.Equal(t, domain.PollStatusActive, poll.Status)
	assert.NotEmpty(t, poll.ShortID)
}

func TestCreatePollDropsBlankOptions(t *testing.T) {
	svc, _, _ := newPollFixture(t)

	poll, err := svc.Create(context.Background(), ports.CreatePollInput{
		Question:  "Pick one",
		Options:   []string{"A", "  ", "B", ""},
		CreatorID: uuid.New(),
	})
	require.NoError(t, err)

	require.Len(t, poll.Options, 2)
	assert.Equal(t, 0, poll.Options[0].Position)
	assert.Equal(t, 1, poll.Options[1].Position)
}

func TestCreatePollValidation(t *testing.T) {
	svc, _, mockClock := newPollFixture(t)
	creator := uuid.New()
	past := mockClock.Now().Add(-time.Hour)

	cases := []struct {
		name  string
		input ports.CreatePollInput
	}{
		{"blank question", ports.CreatePollInput{Question: " ", Options: []string{"A", "B"}, CreatorID: creator}},
		{"no creator", ports.CreatePollInput{Question: "Q", Options: []string{"A", "B"}}},
		{"one option", ports.CreatePollInput{Question: "Q", Options: []string{"A", " "}, CreatorID: creator}},
		{"past expiry", ports.CreatePollInput{Question: "Q", Options: []string{"A", "B"}, CreatorID: creator, ExpiresAt: &past}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.input)
			assert.Error(t, err)
		})
	}
}

func TestCreateScheduledPoll(t *testing.T) {
	svc, _, _ := newPollFixture(t)

	poll, err := svc.Create(context.Background(), ports.CreatePollInput{
		Question:  "Later",
		Options:   []string{"A", "B"},
		CreatorID: uuid.New(),
		Scheduled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PollStatusScheduled, poll.Status)
}

func TestGetPollByShortID(t *testing.T) {
	svc, _, _ := newPollFixture(t)

	created, err := svc.Create(context.Background(), ports.CreatePollInput{
		Question:  "Find me",
		Options:   []string{"A", "B"},
		CreatorID: uuid.New(),
	})
	require.NoError(t, err)

	byID, err := svc.GetPoll(context.Background(), created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.ID, byID.ID)

	byShort, err := svc.GetPoll(context.Background(), created.ShortID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byShort.ID)

	_, err = svc.GetPoll(context.Background(), "no-such-alias")
	assert.ErrorIs(t, err, domain.ErrPollNotFound)

	_, err = svc.GetPoll(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidPollID)
}
