package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/galcon/internal/auth"
	"github.com/freeeve/galcon/internal/bot"
	"github.com/freeeve/galcon/internal/service"
)

const (
	defaultListLimit      = 20
	defaultStandingsLimit = 10
)

// MatchHandler handles match endpoints.
type MatchHandler struct {
	matchSvc *service.MatchService
}

// NewMatchHandler creates a MatchHandler.
func NewMatchHandler(matchSvc *service.MatchService) *MatchHandler {
	return &MatchHandler{matchSvc: matchSvc}
}

// StartMatch handles POST /api/v1/matches. An empty body starts a match
// with the scenario's own profiles.
func (h *MatchHandler) StartMatch(w http.ResponseWriter, r *http.Request) {
	var req service.StartRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	match, err := h.matchSvc.Start(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	log.Info().Str("matchId", match.ID).Str("operator", auth.SubjectFromContext(r.Context())).Msg("Match requested")
	writeJSON(w, http.StatusAccepted, match)
}

// ListMatches handles GET /api/v1/matches?limit=n
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.matchSvc.List(r.Context(), queryInt(r, "limit", defaultListLimit))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if matches == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// GetMatch handles GET /api/v1/matches/{id}
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	match, err := h.matchSvc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, match)
}

// Timeline handles GET /api/v1/matches/{id}/timeline
func (h *MatchHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	events, err := h.matchSvc.Timeline(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if events == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// Snapshot handles GET /api/v1/matches/{id}/snapshot
func (h *MatchHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.matchSvc.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(snap)
}

// CancelMatch handles DELETE /api/v1/matches/{id}
func (h *MatchHandler) CancelMatch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.matchSvc.Cancel(id); err != nil {
		writeServiceError(w, err)
		return
	}
	log.Info().Str("matchId", id).Str("operator", auth.SubjectFromContext(r.Context())).Msg("Match cancel requested")
	w.WriteHeader(http.StatusNoContent)
}

// LiveMatches handles GET /api/v1/matches/live
func (h *MatchHandler) LiveMatches(w http.ResponseWriter, r *http.Request) {
	ids, err := h.matchSvc.LiveMatches(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

// Standings handles GET /api/v1/standings?limit=n
func (h *MatchHandler) Standings(w http.ResponseWriter, r *http.Request) {
	standings, err := h.matchSvc.Standings(r.Context(), int64(queryInt(r, "limit", defaultStandingsLimit)))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if standings == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, standings)
}

// Scenario handles GET /api/v1/scenario
func (h *MatchHandler) Scenario(w http.ResponseWriter, r *http.Request) {
	sc := h.matchSvc.Scenario()
	hash, err := sc.Fingerprint()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	players := make([]map[string]any, 0, len(sc.Players))
	for _, p := range sc.Players {
		players = append(players, map[string]any{"id": int(p.ID), "name": p.Name, "profile": p.Profile})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":     sc.Name,
		"hash":     hash,
		"planets":  len(sc.Planets),
		"players":  players,
		"profiles": bot.Profiles(),
	})
}
