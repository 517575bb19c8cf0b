package handlers

import (
	"net/http"
	"strconv"

	"sweatSquadAPI/services"
)

type LeaderboardHandler struct {
	leaderboards *services.LeaderboardService
	users        *services.UserService
}

func NewLeaderboardHandler(leaderboards *services.LeaderboardService, users *services.UserService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboards: leaderboards, users: users}
}

// GetLeaderboard handles GET /api/leaderboard?page=&limit=
func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	board, err := h.leaderboards.GetLeaderboard(r.Context(), page, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch leaderboard")
		return
	}

	respondWithJSON(w, http.StatusOK, board)
}

// GetMyPosition handles GET /api/leaderboard/me
func (h *LeaderboardHandler) GetMyPosition(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r.Context(), w, h.users)
	if !ok {
		return
	}

	entry, err := h.leaderboards.GetUserLeaderboardPosition(r.Context(), userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch leaderboard position")
		return
	}

	respondWithJSON(w, http.StatusOK, entry)
}
