package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"quizboard-service/internal/app"
	"quizboard-service/internal/domain"
)

type errorPayload struct {
	Message string `json:"message"`
}

// ReplayHandler exposes recorded sessions and the live snapshot over HTTP.
type ReplayHandler struct {
	game    *app.Game
	replays *app.ReplayService
	log     logrus.FieldLogger
}

func NewReplayHandler(game *app.Game, replays *app.ReplayService, log logrus.FieldLogger) *ReplayHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ReplayHandler{game: game, replays: replays, log: log.WithField("component", "api")}
}

func (h *ReplayHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.game.Snapshot())
}

func (h *ReplayHandler) GetReplay(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	replay, err := h.replays.Get(r.Context(), slug)
	if err != nil {
		h.writeError(w, slug, err)
		return
	}
	writeJSON(w, http.StatusOK, replay)
}

func (h *ReplayHandler) DeleteReplay(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if err := h.replays.Delete(r.Context(), slug); err != nil {
		h.writeError(w, slug, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReplayHandler) writeError(w http.ResponseWriter, slug string, err error) {
	if errors.Is(err, domain.ErrSessionNotFound) {
		writeJSON(w, http.StatusNotFound, errorPayload{Message: "replay not found"})
		return
	}
	h.log.WithError(err).WithField("slug", slug).Error("replay request failed")
	writeJSON(w, http.StatusInternalServerError, errorPayload{Message: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
