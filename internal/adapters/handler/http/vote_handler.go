package http

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/livepoll/api/internal/core/domain"
	"github.com/livepoll/api/internal/core/ports"
)

type VoteHandler struct {
	service ports.VoteService
}

func NewVoteHandler(service ports.VoteService) *VoteHandler {
	return &VoteHandler{
		service: service,
	}
}

type voteRequest struct {
	OptionIndex int `json:"option_index"`
	// IdentityHint is the client-supplied token anonymous polls key on:
	// an email when the poll restricts by email, otherwise a device
	// fingerprint. It is best-effort and carries no authenticity.
	IdentityHint string `json:"identity_hint,omitempty"`
}

type voteResponse struct {
	PollID string       `json:"poll_id"`
	Tally  domain.Tally `json:"tally"`
}

func (h *VoteHandler) VoteOnPoll(w http.ResponseWriter, r *http.Request) {
	pollIDStr := chi.URLParam(r, "id")
	pollID, err := uuid.Parse(pollIDStr)
	if err != nil {
		http.Error(w, "invalid poll id", http.StatusBadRequest)
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	identity := domain.RawIdentity{
		ClientIP:    clientIP(r),
		Fingerprint: req.IdentityHint,
	}
	// The hint doubles as the voter email on email-restricted polls; the
	// vote service picks the field the poll's policy actually uses.
	identity.Email = req.IdentityHint
	if userID, email, ok := userFromContext(r.Context()); ok {
		identity.AccountID = userID
		identity.Email = email
	}

	tally, err := h.service.CastVote(r.Context(), ports.CastVoteInput{
		PollID:      pollID,
		OptionIndex: req.OptionIndex,
		Identity:    identity,
	})
	if err != nil {
		writeVoteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(voteResponse{PollID: pollID.String(), Tally: tally}); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// clientIP resolves the voter's address for ip-restricted polls. Behind a
// reverse proxy RemoteAddr is the proxy, which would collapse every voter
// into one identity, so the forwarding headers take precedence:
// X-Forwarded-For (first hop), then X-Real-IP, then RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// writeVoteError maps the casting taxonomy onto status codes. Only the
// sentinel's safe message crosses the wire; store internals never do.
func writeVoteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrPollNotFound):
		http.Error(w, domain.ErrPollNotFound.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidOption), errors.Is(err, domain.ErrInvalidIdentity):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrAlreadyVoted):
		http.Error(w, domain.ErrAlreadyVoted.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrPollClosed), errors.Is(err, domain.ErrPollExpired):
		http.Error(w, err.Error(), http.StatusGone)
	case errors.Is(err, domain.ErrNotEligible):
		http.Error(w, domain.ErrNotEligible.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrStoreUnavailable):
		http.Error(w, domain.ErrStoreUnavailable.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
