package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"sweatSquadAPI/internal/types/activity"
	"sweatSquadAPI/services"
)

type ActivityHandler struct {
	activities *services.ActivityService
	users      *services.UserService
}

func NewActivityHandler(activities *services.ActivityService, users *services.UserService) *ActivityHandler {
	return &ActivityHandler{activities: activities, users: users}
}

type completeActivityRequest struct {
	ActivityType    string     `json:"activity_type"`
	DurationMinutes int        `json:"duration_minutes"`
	DistanceKm      float64    `json:"distance_km"`
	IsHost          bool       `json:"is_host"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// CompleteActivity handles POST /api/activities/complete
func (h *ActivityHandler) CompleteActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r.Context(), w, h.users)
	if !ok {
		return
	}

	var req completeActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ActivityType == "" {
		respondWithError(w, http.StatusBadRequest, "activity_type is required")
		return
	}
	if req.DurationMinutes < 0 || req.DistanceKm < 0 {
		respondWithError(w, http.StatusBadRequest, "duration and distance must be non-negative")
		return
	}

	actx := activity.ActionContext{
		ActivityType:    req.ActivityType,
		DurationMinutes: req.DurationMinutes,
		DistanceKm:      req.DistanceKm,
		IsHost:          req.IsHost,
		CompletedAt:     req.CompletedAt,
	}

	if err := h.activities.RecordActivityCompleted(r.Context(), userID, actx); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to record activity")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

type createActivityRequest struct {
	ActivityType string     `json:"activity_type"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
}

// CreateActivity handles POST /api/activities/create
func (h *ActivityHandler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r.Context(), w, h.users)
	if !ok {
		return
	}

	var req createActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ActivityType == "" {
		respondWithError(w, http.StatusBadRequest, "activity_type is required")
		return
	}

	actx := activity.ActionContext{
		ActivityType: req.ActivityType,
		ScheduledAt:  req.ScheduledAt,
	}

	if err := h.activities.RecordActivityCreated(r.Context(), userID, actx); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to record activity creation")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

// RecordConnection handles POST /api/connections
func (h *ActivityHandler) RecordConnection(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r.Context(), w, h.users)
	if !ok {
		return
	}

	if err := h.activities.RecordNewConnection(r.Context(), userID); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to record connection")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}
