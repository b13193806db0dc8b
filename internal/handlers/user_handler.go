package handlers

import (
	"net/http"

	"selfmanager/internal/service"
)

// UserHandler serves the signed-in user's account
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Me returns the signed-in user
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	respondJSON(w, http.StatusOK, newUserView(user))
}

// UpdateMe applies a partial profile update
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var patch service.ProfilePatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	updated, err := h.userService.UpdateProfile(user.ID, patch)
	if err != nil {
		respondWithServiceError(w, "Error updating profile", err)
		return
	}
	respondJSON(w, http.StatusOK, newUserView(updated))
}

// UpdateFCMToken registers the device that receives push notifications
func (h *UserHandler) UpdateFCMToken(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req struct {
		FCMToken string `json:"fcm_token"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.userService.UpdateFCMToken(user.ID, req.FCMToken); err != nil {
		respondWithServiceError(w, "Error updating FCM token", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "FCM token updated successfully"})
}

// DeleteAccount schedules the account for deletion
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	if err := h.userService.DeleteAccount(user.ID); err != nil {
		respondWithServiceError(w, "Error deleting account", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Account deleted successfully. You can recover it by logging in within 30 days."})
}
