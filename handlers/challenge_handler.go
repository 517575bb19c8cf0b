package handlers

import (
	"net/http"

	"sweatSquadAPI/services"
)

type ChallengeHandler struct {
	challenges *services.ChallengeService
	users      *services.UserService
}

func NewChallengeHandler(challenges *services.ChallengeService, users *services.UserService) *ChallengeHandler {
	return &ChallengeHandler{challenges: challenges, users: users}
}

// GetActiveChallenges handles GET /api/challenges
func (h *ChallengeHandler) GetActiveChallenges(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r.Context(), w, h.users)
	if !ok {
		return
	}

	challenges, err := h.challenges.GetUserActiveChallenges(r.Context(), userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch challenges")
		return
	}

	respondWithJSON(w, http.StatusOK, challenges)
}

// ActivateChallenges handles POST /api/challenges/activate — enrolls the
// caller into every live definition they are not in yet. Also runs on a
// schedule; this endpoint exists so a fresh login sees challenges right away.
func (h *ChallengeHandler) ActivateChallenges(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r.Context(), w, h.users)
	if !ok {
		return
	}

	activated, err := h.challenges.ActivateChallengesForUser(r.Context(), userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to activate challenges")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{"activated": activated})
}
