package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/praktika-app/praktika/internal/auth"
	"github.com/praktika-app/praktika/internal/domain"
	"github.com/praktika-app/praktika/internal/session"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestWithUser(email string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	user := &domain.User{ID: uuid.New(), Email: email}
	return req.WithContext(auth.SetUser(req.Context(), user))
}

func TestRequireUserRejectsAnonymous(t *testing.T) {
	m := NewAuthMiddleware(nil, nil, testLogger(), false)
	rec := httptest.NewRecorder()

	m.RequireUser(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireUserPassesAuthenticated(t *testing.T) {
	m := NewAuthMiddleware(nil, nil, testLogger(), false)
	rec := httptest.NewRecorder()

	m.RequireUser(okHandler()).ServeHTTP(rec, requestWithUser("budi@example.com"))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	isAdmin := func(email string) bool { return email == "admin@example.com" }
	m := NewAuthMiddleware(nil, isAdmin, testLogger(), false)

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"anonymous", httptest.NewRequest(http.MethodGet, "/api/admin/activate", nil), http.StatusUnauthorized},
		{"regular user", requestWithUser("budi@example.com"), http.StatusForbidden},
		{"admin", requestWithUser("admin@example.com"), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			m.RequireAdmin(okHandler()).ServeHTTP(rec, tt.req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequireAdminDefaultsToDeny(t *testing.T) {
	// A nil admin check means nobody is an admin.
	m := NewAuthMiddleware(nil, nil, testLogger(), false)
	rec := httptest.NewRecorder()

	m.RequireAdmin(okHandler()).ServeHTTP(rec, requestWithUser("anyone@example.com"))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestSessionCookieFlags(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "token-value", true)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookie count = %d, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != session.CookieName || c.Value != "token-value" {
		t.Errorf("cookie = %s=%s", c.Name, c.Value)
	}
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode {
		t.Error("cookie must be HttpOnly, Secure in production, SameSite=Lax")
	}
	if c.MaxAge != session.CookieMaxAge {
		t.Errorf("max age = %d, want %d", c.MaxAge, session.CookieMaxAge)
	}

	cleared := httptest.NewRecorder()
	ClearSessionCookie(cleared, true)
	cc := cleared.Result().Cookies()[0]
	if cc.Value != "" || cc.MaxAge != -1 {
		t.Error("clearing should empty the value and expire the cookie")
	}
}

func TestStackOrdersOutsideIn(t *testing.T) {
	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Stack(tag("outer"), tag("inner"))(okHandler())
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("execution order = %v, want [outer inner]", order)
	}
}

func TestSessionConstants(t *testing.T) {
	if session.CookieMaxAge != int((7 * 24 * time.Hour).Seconds()) {
		t.Errorf("cookie max age = %d, want 7 days in seconds", session.CookieMaxAge)
	}
}
