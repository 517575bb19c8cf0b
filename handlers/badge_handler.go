package handlers

import (
	"net/http"

	"sweatSquadAPI/services"
)

type BadgeHandler struct {
	badges *services.BadgeService
	users  *services.UserService
}

func NewBadgeHandler(badges *services.BadgeService, users *services.UserService) *BadgeHandler {
	return &BadgeHandler{badges: badges, users: users}
}

// GetBadges handles GET /api/badges — every active badge with the caller's
// earned status.
func (h *BadgeHandler) GetBadges(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r.Context(), w, h.users)
	if !ok {
		return
	}

	badges, err := h.badges.GetUserBadges(r.Context(), userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch badges")
		return
	}

	respondWithJSON(w, http.StatusOK, badges)
}

// GetBadgeProgress handles GET /api/badges/progress — how close the caller is
// to each unearned badge.
func (h *BadgeHandler) GetBadgeProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r.Context(), w, h.users)
	if !ok {
		return
	}

	progress, err := h.badges.GetBadgeProgress(r.Context(), userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch badge progress")
		return
	}

	respondWithJSON(w, http.StatusOK, progress)
}
