package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"sweatSquadAPI/middleware"
	"sweatSquadAPI/services"

	"github.com/google/uuid"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// requestUserID resolves the authenticated Clerk subject to our user id.
// Writes the error response itself; callers just return on !ok.
func requestUserID(ctx context.Context, w http.ResponseWriter, users *services.UserService) (uuid.UUID, bool) {
	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, false
	}

	userID, err := users.ResolveClerkID(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return uuid.Nil, false
	}
	return userID, true
}
