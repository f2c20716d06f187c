// This file implements authentication endpoints.
//
// Routes:
//   - POST /api/auth/register -> HandleRegister
//   - POST /api/auth/login    -> HandleLogin
//   - POST /api/auth/logout   -> HandleLogout
//   - GET  /api/auth/me       -> HandleMe
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/praktika-app/praktika/internal/auth"
	"github.com/praktika-app/praktika/internal/domain"
	"github.com/praktika-app/praktika/internal/middleware"
	"github.com/praktika-app/praktika/internal/service"
	"github.com/praktika-app/praktika/internal/session"
)

// AuthHandler handles registration, login, and logout.
type AuthHandler struct {
	users    *service.UserService
	limiter  *middleware.AuthRateLimiter
	logger   *slog.Logger
	isSecure bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users *service.UserService, limiter *middleware.AuthRateLimiter, logger *slog.Logger, isSecure bool) *AuthHandler {
	return &AuthHandler{
		users:    users,
		limiter:  limiter,
		logger:   logger,
		isSecure: isSecure,
	}
}

// userResponse is the public shape of a user account.
type userResponse struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	ProActive    bool       `json:"proActive"`
	ProExpiresAt *time.Time `json:"proExpiresAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:           u.ID.String(),
		Email:        u.Email,
		Name:         u.Name,
		ProActive:    u.IsProActive(),
		ProExpiresAt: u.ProExpiresAt,
		CreatedAt:    u.CreatedAt,
	}
}

// HandleRegister creates an account and logs the user straight in.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user, err := h.users.Register(r.Context(), domain.RegisterParams{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		// Account exists but the immediate login failed; the client can
		// log in manually.
		h.logger.Error("post-registration login failed", "user_id", user.ID, "error", err)
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"user": toUserResponse(user),
		})
		return
	}

	middleware.SetSessionCookie(w, result.Token, h.isSecure)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user": toUserResponse(result.User),
	})
}

// HandleLogin verifies credentials and issues a session cookie.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if h.limiter != nil {
			h.limiter.RecordFailedLogin(clientIPForLimit(r))
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if h.limiter != nil {
		h.limiter.ResetLogin(clientIPForLimit(r))
	}

	middleware.SetSessionCookie(w, result.Token, h.isSecure)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": toUserResponse(result.User),
	})
}

// HandleLogout deletes the session and clears the cookie. Idempotent.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		if err := h.users.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("logout failed", "error", err)
		}
	}

	middleware.ClearSessionCookie(w, h.isSecure)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// HandleMe returns the authenticated user's account.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": toUserResponse(user),
	})
}

// clientIPForLimit mirrors the middleware's client IP extraction for the
// login failure bookkeeping.
func clientIPForLimit(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	return r.RemoteAddr
}
