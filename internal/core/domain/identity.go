package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type IdentityKind string

const (
	IdentityAccount     IdentityKind = "account"
	IdentityIP          IdentityKind = "ip"
	IdentityEmail       IdentityKind = "email"
	IdentityFingerprint IdentityKind = "fingerprint"
)

// VoterIdentity is the resolved identity that gates one-vote-per-poll.
// It is a tagged value: Account identities carry the voter's user id,
// anonymous identities carry a best-effort token (client IP, normalized
// email or client-supplied fingerprint). The tag decides eligibility
// checks and whether the voter counts toward closure notifications.
type VoterIdentity struct {
	Kind      IdentityKind `json:"kind"`
	AccountID uuid.UUID    `json:"account_id,omitempty"`
	Token     string       `json:"token,omitempty"`
}

func AccountIdentity(userID uuid.UUID) VoterIdentity {
	return VoterIdentity{Kind: IdentityAccount, AccountID: userID}
}

func AnonymousIP(ip string) VoterIdentity {
	return VoterIdentity{Kind: IdentityIP, Token: strings.TrimSpace(ip)}
}

func AnonymousEmail(email string) VoterIdentity {
	return VoterIdentity{Kind: IdentityEmail, Token: NormalizeEmail(email)}
}

func AnonymousFingerprint(token string) VoterIdentity {
	return VoterIdentity{Kind: IdentityFingerprint, Token: strings.TrimSpace(token)}
}

func (v VoterIdentity) IsAccount() bool {
	return v.Kind == IdentityAccount
}

func (v VoterIdentity) IsZero() bool {
	return v.Kind == ""
}

// Key is the stable ledger key for this identity. It is what the unique
// (poll, voter) constraint is built on, so the encoding must never change
// for existing kinds.
func (v VoterIdentity) Key() string {
	if v.Kind == IdentityAccount {
		return fmt.Sprintf("%s:%s", IdentityAccount, v.AccountID)
	}
	return fmt.Sprintf("%s:%s", v.Kind, v.Token)
}

// ParseIdentityKey reverses Key. Ledger rows store only the key, so listing
// distinct voters for a poll goes through here.
func ParseIdentityKey(key string) (VoterIdentity, error) {
	kind, value, found := strings.Cut(key, ":")
	if !found || value == "" {
		return VoterIdentity{}, fmt.Errorf("malformed identity key %q", key)
	}
	switch IdentityKind(kind) {
	case IdentityAccount:
		id, err := uuid.Parse(value)
		if err != nil {
			return VoterIdentity{}, fmt.Errorf("malformed account identity key %q: %w", key, err)
		}
		return AccountIdentity(id), nil
	case IdentityIP, IdentityEmail, IdentityFingerprint:
		return VoterIdentity{Kind: IdentityKind(kind), Token: value}, nil
	default:
		return VoterIdentity{}, fmt.Errorf("unknown identity kind %q", kind)
	}
}

// RawIdentity is the unresolved identity material a vote request arrives
// with. Which field ends up mattering depends on the poll's voting type and
// vote restriction.
type RawIdentity struct {
	AccountID   uuid.UUID
	Email       string
	ClientIP    string
	Fingerprint string
}

// ResolveIdentity maps request identity material to the VoterIdentity the
// ledger keys on, following the poll's policy: authenticated polls require an
// account; public polls fall back to IP, email or fingerprint depending on
// the configured restriction. Fingerprint identities are weak and best-effort.
func ResolveIdentity(p *Poll, raw RawIdentity) (VoterIdentity, error) {
	if p.VotingType == VotingTypeAuthenticated {
		if raw.AccountID == uuid.Nil {
			return VoterIdentity{}, ErrNotEligible
		}
		return AccountIdentity(raw.AccountID), nil
	}
	switch p.VoteRestriction {
	case VoteRestrictionIP:
		if strings.TrimSpace(raw.ClientIP) == "" {
			return VoterIdentity{}, ErrInvalidIdentity
		}
		return AnonymousIP(raw.ClientIP), nil
	case VoteRestrictionEmail:
		if NormalizeEmail(raw.Email) == "" {
			return VoterIdentity{}, ErrInvalidIdentity
		}
		return AnonymousEmail(raw.Email), nil
	default:
		if strings.TrimSpace(raw.Fingerprint) == "" {
			return VoterIdentity{}, ErrInvalidIdentity
		}
		return AnonymousFingerprint(raw.Fingerprint), nil
	}
}
