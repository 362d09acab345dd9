package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityKeyRoundTrip(t *testing.T) {
	identities := []VoterIdentity{
		AccountIdentity(uuid.New()),
		AnonymousIP("203.0.113.7"),
		AnonymousEmail("Alice@Example.com"),
		AnonymousFingerprint("fp-abc123"),
	}
	for _, ident := range identities {
		t.Run(string(ident.Kind), func(t *testing.T) {
			parsed, err := ParseIdentityKey(ident.Key())
			require.NoError(t, err)
			assert.Equal(t, ident, parsed)
		})
	}
}

func TestParseIdentityKeyRejectsMalformed(t *testing.T) {
	for _, key := range []string{"", "account", "account:", "account:not-a-uuid", "banana:x"} {
		t.Run(key, func(t *testing.T) {
			_, err := ParseIdentityKey(key)
			assert.Error(t, err)
		})
	}
}

func TestAnonymousEmailIsNormalized(t *testing.T) {
	a := AnonymousEmail("  Alice@Example.COM ")
	b := AnonymousEmail("alice@example.com")
	assert.Equal(t, a.Key(), b.Key())
}

func TestResolveIdentityFollowsPollPolicy(t *testing.T) {
	account := uuid.New()
	raw := RawIdentity{
		AccountID:   account,
		Email:       "alice@example.com",
		ClientIP:    "203.0.113.7",
		Fingerprint: "fp-1",
	}

	authPoll := &Poll{VotingType: VotingTypeAuthenticated}
	ident, err := ResolveIdentity(authPoll, raw)
	require.NoError(t, err)
	assert.Equal(t, AccountIdentity(account), ident)

	_, err = ResolveIdentity(authPoll, RawIdentity{Fingerprint: "fp-1"})
	assert.ErrorIs(t, err, ErrNotEligible)

	ipPoll := &Poll{VotingType: VotingTypeAnonymous, VoteRestriction: VoteRestrictionIP}
	ident, err = ResolveIdentity(ipPoll, raw)
	require.NoError(t, err)
	assert.Equal(t, AnonymousIP("203.0.113.7"), ident)

	emailPoll := &Poll{VotingType: VotingTypeAnonymous, VoteRestriction: VoteRestrictionEmail}
	ident, err = ResolveIdentity(emailPoll, raw)
	require.NoError(t, err)
	assert.Equal(t, AnonymousEmail("alice@example.com"), ident)

	openPoll := &Poll{VotingType: VotingTypeAnonymous, VoteRestriction: VoteRestrictionNone}
	ident, err = ResolveIdentity(openPoll, raw)
	require.NoError(t, err)
	assert.Equal(t, AnonymousFingerprint("fp-1"), ident)

	_, err = ResolveIdentity(openPoll, RawIdentity{})
	assert.ErrorIs(t, err, ErrInvalidIdentity)
}
