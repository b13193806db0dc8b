package handlers

import (
	"net/http"

	"selfmanager/internal/service"
)

// AuthHandler handles registration, login and token requests
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// SendOTP emails a one-time password for registration or password reset
func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		IsForgot bool   `json:"is_forgot"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.authService.SendOTP(r.Context(), req.Email, req.IsForgot); err != nil {
		respondWithServiceError(w, "Error sending OTP", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "OTP sent successfully"})
}

// VerifyOTP confirms a one-time password
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.authService.VerifyOTP(req.Email, req.OTP); err != nil {
		respondWithServiceError(w, "Error verifying OTP", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "OTP verified successfully"})
}

// Register creates an account
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	user, pair, err := h.authService.Register(req)
	if err != nil {
		respondWithServiceError(w, "Error registering user", err)
		return
	}
	respondJSON(w, http.StatusCreated, RegisterView{User: newUserView(user), Access: pair.Access, Refresh: pair.Refresh})
}

// Login exchanges a username and password for a token pair
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, recovered, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		respondWithServiceError(w, "Error logging in", err)
		return
	}
	respondJSON(w, http.StatusOK, newTokenView(pair, recovered))
}

// Refresh issues a new access token
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	access, err := h.authService.Refresh(req.Refresh)
	if err != nil {
		respondWithServiceError(w, "Error refreshing token", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"access": access})
}

// GoogleLogin signs in with a Google access token
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessToken string `json:"access_token"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	user, pair, recovered, err := h.authService.GoogleLogin(r.Context(), req.AccessToken)
	if err != nil {
		respondWithServiceError(w, "Error with Google login", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"access":    pair.Access,
		"refresh":   pair.Refresh,
		"recovered": recovered,
		"user":      newUserView(user),
	})
}

// ResetPassword sets a new password after OTP verification
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req service.ResetPasswordInput
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.authService.ResetPassword(req); err != nil {
		respondWithServiceError(w, "Error resetting password", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Password reset successfully"})
}
