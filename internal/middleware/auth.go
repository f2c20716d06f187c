// Package middleware contains HTTP middleware for the Praktika API.
//
// Middleware functions follow the standard Go pattern of wrapping
// http.Handler and are composed with the Stack helper.
package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/praktika-app/praktika/internal/auth"
	"github.com/praktika-app/praktika/internal/service"
	"github.com/praktika-app/praktika/internal/session"
)

// AuthMiddleware loads and enforces the authenticated user.
type AuthMiddleware struct {
	users    *service.UserService
	isAdmin  func(email string) bool
	logger   *slog.Logger
	isSecure bool // Secure flag on cookies, true in production
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(users *service.UserService, isAdmin func(string) bool, logger *slog.Logger, isSecure bool) *AuthMiddleware {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	return &AuthMiddleware{
		users:    users,
		isAdmin:  isAdmin,
		logger:   logger,
		isSecure: isSecure,
	}
}

// WithUser attempts to load the user from the session cookie and stores it
// in the request context. The request continues regardless of
// authentication status; an invalid or expired session clears the cookie.
func (m *AuthMiddleware) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(session.CookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.users.GetBySessionToken(r.Context(), cookie.Value)
		if err != nil {
			ClearSessionCookie(w, m.isSecure)
			next.ServeHTTP(w, r)
			return
		}

		r = r.WithContext(auth.SetUser(r.Context(), user))
		next.ServeHTTP(w, r)
	})
}

// RequireUser rejects unauthenticated requests with a 401 JSON body.
// Must run after WithUser in the chain.
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUser(r.Context()) == nil {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests whose user is not on the admin list.
// Must run after RequireUser.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUser(r.Context())
		if user == nil {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}
		if !m.isAdmin(user.Email) {
			m.logger.Warn("admin access denied", "user_id", user.ID, "path", r.URL.Path)
			writeJSONError(w, http.StatusForbidden, "forbidden", "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetSessionCookie sets the session cookie on the response.
//
// HttpOnly blocks JavaScript access, SameSite=Lax blocks cross-site POSTs,
// and Secure restricts the cookie to HTTPS in production.
func SetSessionCookie(w http.ResponseWriter, token string, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     session.CookiePath,
		MaxAge:   session.CookieMaxAge,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie removes the session cookie from the client.
func ClearSessionCookie(w http.ResponseWriter, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     session.CookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Stack composes middleware; the first argument is the outermost.
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// writeJSONError writes a minimal JSON error body. The handler package has
// a richer version; middleware keeps its own to avoid an import cycle.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
