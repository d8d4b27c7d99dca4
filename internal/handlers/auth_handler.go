package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"qrtrace-backend/internal/models"
	"qrtrace-backend/internal/services"
	"qrtrace-backend/pkg/utils"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body")
		return
	}

	user, err := h.authService.Signup(r.Context(), &req)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	utils.JSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body")
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			utils.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
			return
		}
		utils.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "login failed")
		return
	}

	utils.JSON(w, http.StatusOK, resp)
}
