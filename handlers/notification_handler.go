package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"sweatSquadAPI/services"
)

type NotificationHandler struct {
	notifications *services.NotificationService
	users         *services.UserService
}

func NewNotificationHandler(notifications *services.NotificationService, users *services.UserService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, users: users}
}

// GetNotifications handles GET /api/notifications?page=&page_size=
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r.Context(), w, h.users)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	notifs, err := h.notifications.GetNotifications(r.Context(), userID, page, pageSize)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch notifications")
		return
	}

	respondWithJSON(w, http.StatusOK, notifs)
}

type registerDeviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// RegisterDevice handles POST /api/devices
func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r.Context(), w, h.users)
	if !ok {
		return
	}

	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Token == "" {
		respondWithError(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := h.notifications.RegisterDevice(r.Context(), userID, req.Token, req.Platform); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to register device")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "registered"})
}
