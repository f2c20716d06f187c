package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/praktika-app/praktika/internal/domain"
	"github.com/praktika-app/praktika/internal/repository"
)

// fakeUserStore is an in-memory UserStore.
type fakeUserStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]repository.User
	sessions map[string]repository.Session
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:    make(map[uuid.UUID]repository.User),
		sessions: make(map[string]repository.Session),
	}
}

func (f *fakeUserStore) CreateUser(_ context.Context, arg repository.CreateUserParams) (repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := repository.User{
		ID:           uuid.New(),
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		Name:         arg.Name,
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return repository.User{}, sql.ErrNoRows
}

func (f *fakeUserStore) CreateSession(_ context.Context, arg repository.CreateSessionParams) (repository.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := repository.Session{
		ID:        uuid.New(),
		UserID:    arg.UserID,
		TokenHash: arg.TokenHash,
		ExpiresAt: arg.ExpiresAt,
	}
	f.sessions[arg.TokenHash] = s
	return s, nil
}

func (f *fakeUserStore) GetSessionByTokenHash(_ context.Context, tokenHash string) (repository.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[tokenHash]
	if !ok || time.Now().After(s.ExpiresAt) {
		return repository.Session{}, sql.ErrNoRows
	}
	return s, nil
}

func (f *fakeUserStore) DeleteSession(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, tokenHash)
	return nil
}

func (f *fakeUserStore) DeleteExpiredSessions(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for hash, s := range f.sessions {
		if time.Now().After(s.ExpiresAt) {
			delete(f.sessions, hash)
			n++
		}
	}
	return n, nil
}

func validRegisterParams() domain.RegisterParams {
	return domain.RegisterParams{
		Email:    "budi@example.com",
		Password: "correct-horse-battery",
		Name:     "Budi",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, testLogger())

	user, err := svc.Register(context.Background(), validRegisterParams())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "budi@example.com" {
		t.Errorf("email = %q", user.Email)
	}
	if user.PasswordHash != "" {
		t.Error("password hash must not leave the service")
	}

	result, err := svc.Login(context.Background(), "Budi@Example.com", "correct-horse-battery")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if len(result.Token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(result.Token))
	}

	// The raw token resolves back to the user.
	resolved, err := svc.GetBySessionToken(context.Background(), result.Token)
	if err != nil {
		t.Fatalf("resolve session: %v", err)
	}
	if resolved.ID != user.ID {
		t.Errorf("resolved user = %v, want %v", resolved.ID, user.ID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, testLogger())

	if _, err := svc.Register(context.Background(), validRegisterParams()); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(context.Background(), validRegisterParams())
	if domain.ErrorCode(err) != domain.ECONFLICT {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, testLogger())

	tests := []struct {
		name   string
		mutate func(*domain.RegisterParams)
	}{
		{"empty email", func(p *domain.RegisterParams) { p.Email = "" }},
		{"malformed email", func(p *domain.RegisterParams) { p.Email = "not-an-email" }},
		{"short password", func(p *domain.RegisterParams) { p.Password = "short" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validRegisterParams()
			tt.mutate(&params)
			_, err := svc.Register(context.Background(), params)
			if domain.ErrorCode(err) != domain.EINVALID {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestLoginWrongPassword(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, testLogger())

	if _, err := svc.Register(context.Background(), validRegisterParams()); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Login(context.Background(), "budi@example.com", "wrong")
	if domain.ErrorCode(err) != domain.EUNAUTHORIZED {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	// Unknown email produces the identical error code and message.
	_, unknownErr := svc.Login(context.Background(), "nobody@example.com", "wrong")
	if domain.ErrorMessage(err) != domain.ErrorMessage(unknownErr) {
		t.Error("login errors must not reveal whether the email exists")
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, testLogger())

	if _, err := svc.Register(context.Background(), validRegisterParams()); err != nil {
		t.Fatalf("register: %v", err)
	}
	result, err := svc.Login(context.Background(), "budi@example.com", "correct-horse-battery")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(context.Background(), result.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.GetBySessionToken(context.Background(), result.Token); domain.ErrorCode(err) != domain.EUNAUTHORIZED {
		t.Errorf("expected stale token to be rejected, got %v", err)
	}

	// Logging out again is a no-op, not an error.
	if err := svc.Logout(context.Background(), result.Token); err != nil {
		t.Errorf("repeated logout: %v", err)
	}
}

func TestGetBySessionTokenRejectsGarbage(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, testLogger())

	for _, token := range []string{"", "short", "not-a-real-token-but-sixty-four-characters-long-aaaaaaaaaaaaaaa!"} {
		if _, err := svc.GetBySessionToken(context.Background(), token); domain.ErrorCode(err) != domain.EUNAUTHORIZED {
			t.Errorf("token %q: expected unauthorized, got %v", token, err)
		}
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, testLogger())

	userID := uuid.New()
	store.users[userID] = repository.User{ID: userID, Email: "budi@example.com"}
	store.sessions["stale"] = repository.Session{UserID: userID, TokenHash: "stale", ExpiresAt: time.Now().Add(-time.Hour)}
	store.sessions["live"] = repository.Session{UserID: userID, TokenHash: "live", ExpiresAt: time.Now().Add(time.Hour)}

	if err := svc.DeleteExpiredSessions(context.Background()); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, ok := store.sessions["stale"]; ok {
		t.Error("expired session survived cleanup")
	}
	if _, ok := store.sessions["live"]; !ok {
		t.Error("live session was deleted")
	}
}
