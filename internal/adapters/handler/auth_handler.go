package handler

import (
	"log/slog"
	"net/http"

	"github.com/raktsetu/blood-request-service/internal/adapters/middleware"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	logger      *slog.Logger
}

func NewAuthHandler(auth ports.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: auth, logger: logger}
}

type LoginRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req, false); err != nil {
		WriteError(w, err)
		return
	}

	res, err := h.authService.Login(r.Context(), req.PhoneNumber, req.Password)
	if err != nil {
		logFailure(r, h.logger, "login failed", err)
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Logout revokes the bearer token the request was made with.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.authService.Logout(ctx, middleware.TokenID(ctx), middleware.TokenExpiry(ctx)); err != nil {
		logFailure(r, h.logger, "logout failed", err, "user_id", middleware.UserID(ctx))
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out"})
}
