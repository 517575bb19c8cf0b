package handlers

import (
	"net/http"

	"sweatSquadAPI/services"
	"sweatSquadAPI/utils"
)

type ProgressionHandler struct {
	progression *services.ProgressionService
	streaks     *services.StreakService
	users       *services.UserService
}

func NewProgressionHandler(progression *services.ProgressionService, streaks *services.StreakService, users *services.UserService) *ProgressionHandler {
	return &ProgressionHandler{progression: progression, streaks: streaks, users: users}
}

// GetProgression handles GET /api/progression
func (h *ProgressionHandler) GetProgression(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r.Context(), w, h.users)
	if !ok {
		return
	}

	p, err := h.progression.GetProgression(r.Context(), userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch progression")
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

// GetLevelInfo handles GET /api/progression/level
func (h *ProgressionHandler) GetLevelInfo(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r.Context(), w, h.users)
	if !ok {
		return
	}

	info, err := h.progression.GetLevelInfo(r.Context(), userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch level info")
		return
	}

	respondWithJSON(w, http.StatusOK, info)
}

// GetLevelTable handles GET /api/progression/levels — the full XP curve, for
// clients that render "next reward at" screens.
func (h *ProgressionHandler) GetLevelTable(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, utils.LevelTable())
}

// GetStreak handles GET /api/streaks
func (h *ProgressionHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r.Context(), w, h.users)
	if !ok {
		return
	}

	st, err := h.streaks.GetStreak(r.Context(), userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch streak")
		return
	}

	respondWithJSON(w, http.StatusOK, st)
}
