package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewHandler(
	pollHandler *PollHandler,
	voteHandler *VoteHandler,
	notificationHandler *NotificationHandler,
	wsHandler *WSHandler,
	auth *AuthMiddleware,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ok"))
		})

		r.Route("/polls", func(r chi.Router) {
			r.With(auth.Require).Post("/", pollHandler.CreatePoll)
			r.Get("/", pollHandler.ListPolls)
			r.Get("/{id}", pollHandler.GetPoll)
			r.Get("/{id}/results", pollHandler.GetResults)
			r.With(auth.Optional).Post("/{id}/votes", voteHandler.VoteOnPoll)
			r.With(auth.Require).Post("/{id}/stop", pollHandler.StopPoll)
		})

		r.With(auth.Require).Get("/notifications", notificationHandler.ListNotifications)
	})

	r.Get("/ws", wsHandler.Serve)

	return r
}
