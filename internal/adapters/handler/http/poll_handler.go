package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/livepoll/api/internal/core/domain"
	"github.com/livepoll/api/internal/core/ports"
)

type PollHandler struct {
	service   ports.PollService
	lifecycle ports.LifecycleService
	results   ports.PollResultRepository
}

func NewPollHandler(
	service ports.PollService,
	lifecycle ports.LifecycleService,
	results ports.PollResultRepository,
) *PollHandler {
	return &PollHandler{
		service:   service,
		lifecycle: lifecycle,
		results:   results,
	}
}

type createPollRequest struct {
	Question        string     `json:"question"`
	Options         []string   `json:"options"`
	IsPublic        *bool      `json:"is_public,omitempty"`
	AllowedVoters   []string   `json:"allowed_voters,omitempty"`
	VotingType      string     `json:"voting_type,omitempty"`
	VoteRestriction string     `json:"vote_restriction,omitempty"`
	ShowResults     string     `json:"show_results,omitempty"`
	Scheduled       bool       `json:"scheduled,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := userFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	input := ports.CreatePollInput{
		Question:        req.Question,
		Options:         req.Options,
		CreatorID:       userID,
		IsPublic:        isPublic,
		AllowedVoters:   req.AllowedVoters,
		VotingType:      domain.VotingType(req.VotingType),
		VoteRestriction: domain.VoteRestriction(req.VoteRestriction),
		ShowResults:     domain.ShowResultsPolicy(req.ShowResults),
		Scheduled:       req.Scheduled,
		ExpiresAt:       req.ExpiresAt,
	}

	poll, err := h.service.Create(r.Context(), input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(poll); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "missing poll id", http.StatusBadRequest)
		return
	}

	poll, err := h.service.GetPoll(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPollID) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if errors.Is(err, domain.ErrPollNotFound) {
			http.Error(w, domain.ErrPollNotFound.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(poll); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	polls, err := h.service.ListPolls(r.Context(), ports.ListPollsInput{Page: page})
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(polls); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// StopPoll is the creator's manual close. It goes through the same
// conditional transition as the expiry sweep, so stopping an already closed
// (or concurrently closing) poll is a conflict, not a double close.
func (h *PollHandler) StopPoll(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := userFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	pollID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid poll id", http.StatusBadRequest)
		return
	}

	poll, err := h.lifecycle.StopPoll(r.Context(), pollID, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPollNotFound):
			http.Error(w, domain.ErrPollNotFound.Error(), http.StatusNotFound)
		case errors.Is(err, domain.ErrNotCreator):
			http.Error(w, domain.ErrNotCreator.Error(), http.StatusForbidden)
		case errors.Is(err, domain.ErrPollClosed):
			http.Error(w, domain.ErrPollClosed.Error(), http.StatusConflict)
		case errors.Is(err, domain.ErrStoreUnavailable):
			http.Error(w, domain.ErrStoreUnavailable.Error(), http.StatusServiceUnavailable)
		default:
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(poll); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

type pollResultsResponse struct {
	PollID   string                         `json:"poll_id"`
	Question string                         `json:"question"`
	Status   domain.PollStatus              `json:"status"`
	Options  []pollResultOption             `json:"options"`
	Stats    map[int]domain.PollOptionStats `json:"stats,omitempty"`
}

type pollResultOption struct {
	Position  int    `json:"position"`
	Text      string `json:"text"`
	VoteCount int64  `json:"vote_count"`
}

func (h *PollHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	poll, err := h.service.GetPoll(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrPollNotFound) {
			http.Error(w, domain.ErrPollNotFound.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// after_expiry hides live numbers until the poll is no longer taking
	// votes; after_vote is enforced client-side since anonymous voters
	// cannot be identified on a read.
	if poll.ShowResults == domain.ShowResultsAfterExpiry &&
		poll.Status == domain.PollStatusActive {
		http.Error(w, "results are published after the poll closes", http.StatusForbidden)
		return
	}

	resp := pollResultsResponse{
		PollID:   poll.ID.String(),
		Question: poll.Question,
		Status:   poll.Status,
	}
	for _, opt := range poll.Options {
		resp.Options = append(resp.Options, pollResultOption{
			Position:  opt.Position,
			Text:      opt.Text,
			VoteCount: opt.VoteCount,
		})
	}
	if stats, err := h.results.GetPollOptionStats(r.Context(), poll.ID); err == nil && len(stats) > 0 {
		resp.Stats = stats
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
