// Package memory holds in-memory implementations of the store ports. They
// honor the same atomicity contracts as the postgres adapters (insert-if-
// absent, guarded increment, conditional transition) and back the unit
// tests as well as wiring that has no database at hand.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/livepoll/api/internal/core/domain"
	"github.com/livepoll/api/internal/core/ports"
)

type PollStore struct {
	mu    sync.Mutex
	polls map[uuid.UUID]*domain.Poll
}

func NewPollStore() *PollStore {
	return &PollStore{polls: make(map[uuid.UUID]*domain.Poll)}
}

func (s *PollStore) Save(_ context.Context, poll *domain.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls[poll.ID] = clonePoll(poll)
	return nil
}

func (s *PollStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	poll, ok := s.polls[id]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	return clonePoll(poll), nil
}

func (s *PollStore) GetByShortID(_ context.Context, shortID string) (*domain.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, poll := range s.polls {
		if poll.ShortID == shortID {
			return clonePoll(poll), nil
		}
	}
	return nil, domain.ErrPollNotFound
}

func (s *PollStore) List(_ context.Context, limit, offset int) ([]*domain.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(limit, offset, false), nil
}

func (s *PollStore) ListAll(_ context.Context, limit, offset int) ([]*domain.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(limit, offset, true), nil
}

func (s *PollStore) listLocked(limit, offset int, includePrivate bool) []*domain.Poll {
	var polls []*domain.Poll
	for _, poll := range s.polls {
		if includePrivate || poll.IsPublic {
			polls = append(polls, clonePoll(poll))
		}
	}
	sort.Slice(polls, func(i, j int) bool {
		return polls[i].CreatedAt.After(polls[j].CreatedAt)
	})
	if offset >= len(polls) {
		return nil
	}
	polls = polls[offset:]
	if limit > 0 && len(polls) > limit {
		polls = polls[:limit]
	}
	return polls
}

func (s *PollStore) IncrementOptionVote(_ context.Context, pollID uuid.UUID, optionIndex int) (domain.Tally, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	poll, ok := s.polls[pollID]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	// Same guard as the SQL statement: the increment only lands while the
	// poll is still active.
	if poll.Status != domain.PollStatusActive {
		return nil, domain.ErrPollClosed
	}
	if !poll.HasOption(optionIndex) {
		return nil, domain.ErrInvalidOption
	}
	poll.Options[optionIndex].VoteCount++
	return poll.Tally(), nil
}

func (s *PollStore) SetStatusIf(_ context.Context, pollID uuid.UUID, expected, next domain.PollStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	poll, ok := s.polls[pollID]
	if !ok {
		return false, domain.ErrPollNotFound
	}
	if poll.Status != expected {
		return false, nil
	}
	poll.Status = next
	return true, nil
}

func (s *PollStore) ListExpiredActive(_ context.Context, now time.Time) ([]*domain.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []*domain.Poll
	for _, poll := range s.polls {
		if poll.Status == domain.PollStatusActive &&
			poll.ExpiresAt != nil && !poll.ExpiresAt.After(now) {
			expired = append(expired, clonePoll(poll))
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].CreatedAt.Before(expired[j].CreatedAt)
	})
	return expired, nil
}

func clonePoll(p *domain.Poll) *domain.Poll {
	cp := *p
	cp.Options = append([]domain.PollOption(nil), p.Options...)
	cp.AllowedVoters = append([]string(nil), p.AllowedVoters...)
	return &cp
}

type VoteLedger struct {
	mu    sync.Mutex
	votes map[uuid.UUID]map[string]*domain.Vote
}

func NewVoteLedger() *VoteLedger {
	return &VoteLedger{votes: make(map[uuid.UUID]map[string]*domain.Vote)}
}

func (l *VoteLedger) InsertIfAbsent(_ context.Context, vote *domain.Vote) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	byKey, ok := l.votes[vote.PollID]
	if !ok {
		byKey = make(map[string]*domain.Vote)
		l.votes[vote.PollID] = byKey
	}
	key := vote.Identity.Key()
	if _, exists := byKey[key]; exists {
		return false, nil
	}
	cp := *vote
	byKey[key] = &cp
	return true, nil
}

func (l *VoteLedger) ListDistinctIdentities(_ context.Context, pollID uuid.UUID) ([]domain.VoterIdentity, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	byKey := l.votes[pollID]
	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	identities := make([]domain.VoterIdentity, 0, len(keys))
	for _, key := range keys {
		identity, err := domain.ParseIdentityKey(key)
		if err != nil {
			return nil, err
		}
		identities = append(identities, identity)
	}
	return identities, nil
}

type NotificationStore struct {
	mu            sync.Mutex
	notifications []*domain.Notification
	dedupe        map[notificationKey]struct{}
}

type notificationKey struct {
	userID    uuid.UUID
	pollID    uuid.UUID
	eventKind string
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{dedupe: make(map[notificationKey]struct{})}
}

func (s *NotificationStore) CreateIfAbsent(_ context.Context, n *domain.Notification) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := notificationKey{userID: n.UserID, pollID: n.PollID, eventKind: n.EventKind}
	if _, exists := s.dedupe[key]; exists {
		return false, nil
	}
	cp := *n
	s.dedupe[key] = struct{}{}
	s.notifications = append(s.notifications, &cp)
	return true, nil
}

func (s *NotificationStore) ListForUser(_ context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

// All reports every stored notification; test helper.
func (s *NotificationStore) All() []*domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		cp := *n
		out = append(out, &cp)
	}
	return out
}

var (
	_ ports.PollRepository         = (*PollStore)(nil)
	_ ports.VoteLedger             = (*VoteLedger)(nil)
	_ ports.NotificationRepository = (*NotificationStore)(nil)
)
