package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/praktika-app/praktika/internal/ai"
	"github.com/praktika-app/praktika/internal/ai/mock"
	"github.com/praktika-app/praktika/internal/domain"
	"github.com/praktika-app/praktika/internal/repository"
	"github.com/praktika-app/praktika/internal/storage"
)

// fakeReportStore is an in-memory ReportStore.
type fakeReportStore struct {
	mu      sync.Mutex
	reports map[uuid.UUID]repository.Report
}

func newFakeReportStore() *fakeReportStore {
	return &fakeReportStore{reports: make(map[uuid.UUID]repository.Report)}
}

func (f *fakeReportStore) CreateReport(_ context.Context, arg repository.CreateReportParams) (repository.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := repository.Report{
		ID:         arg.ID,
		UserID:     arg.UserID,
		Title:      arg.Title,
		Course:     arg.Course,
		Summary:    arg.Summary,
		StorageKey: arg.StorageKey,
		Model:      arg.Model,
		CreatedAt:  sql.NullTime{Time: time.Now(), Valid: true},
	}
	f.reports[arg.ID] = r
	return r, nil
}

func (f *fakeReportStore) GetReportByID(_ context.Context, id uuid.UUID) (repository.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return repository.Report{}, sql.ErrNoRows
	}
	return r, nil
}

func (f *fakeReportStore) ListReportsByUser(_ context.Context, arg repository.ListReportsByUserParams) ([]repository.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Report
	for _, r := range f.reports {
		if r.UserID == arg.UserID && len(out) < int(arg.Limit) {
			out = append(out, r)
		}
	}
	return out, nil
}

// memStorage is an in-memory storage.Storage.
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (m *memStorage) Put(_ context.Context, key string, data io.Reader, _ storage.PutOptions) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	return nil
}

func (m *memStorage) Get(_ context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, storage.ObjectInfo{}, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), storage.ObjectInfo{Key: key, Size: int64(len(b))}, nil
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStorage) URL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "mem://" + key, nil
}

func (m *memStorage) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type reportFixture struct {
	svc      *ReportService
	store    *fakeReportStore
	files    *memStorage
	provider *mock.Provider
	quota    *fakeQuotaStore
	userID   uuid.UUID
	now      time.Time
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	quotaStore := newFakeQuotaStore()
	userID := quotaStore.addUser(nil)

	store := newFakeReportStore()
	files := newMemStorage()
	provider := mock.New(testLogger())

	svc := NewReportService(store, newQuotaServiceAt(quotaStore, now), provider, files, testLogger())
	return &reportFixture{
		svc:      svc,
		store:    store,
		files:    files,
		provider: provider,
		quota:    quotaStore,
		userID:   userID,
		now:      now,
	}
}

func validInput() domain.ReportInput {
	return domain.ReportInput{
		Title:        "Titrasi Asam Basa",
		Course:       "Kimia Dasar II",
		Objective:    "Menentukan konsentrasi larutan HCl",
		Methods:      "Titrasi dengan NaOH 0,1 M",
		Observations: "Perubahan warna pada volume 24,6 mL",
	}
}

func TestGenerateReport(t *testing.T) {
	fx := newReportFixture(t)

	generated, err := fx.svc.Generate(context.Background(), fx.userID, validInput(), nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if generated.Report.Title != "Titrasi Asam Basa" {
		t.Errorf("title = %q", generated.Report.Title)
	}
	if !strings.Contains(generated.Markdown, "## Tujuan") {
		t.Errorf("markdown missing section headings:\n%s", generated.Markdown)
	}

	// The document body lives in object storage under the report's key.
	key := storage.ReportKey(fx.userID, generated.Report.ID)
	body, _, err := fx.files.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("stored document missing: %v", err)
	}
	body.Close()

	// One successful generation consumes exactly one unit of quota.
	used, err := fx.quota.GetDailyUsage(context.Background(), fx.userID, domain.UsageDay(fx.now))
	if err != nil || used != 1 {
		t.Errorf("usage after generation = %d (err %v), want 1", used, err)
	}
}

func TestGenerateDeniedByQuota(t *testing.T) {
	fx := newReportFixture(t)
	fx.quota.setUsage(fx.userID, domain.UsageDay(fx.now), 3)

	_, err := fx.svc.Generate(context.Background(), fx.userID, validInput(), nil)
	if domain.ErrorCode(err) != domain.ERATELIMIT {
		t.Fatalf("expected rate limit error, got %v", err)
	}

	// A denied request must never reach the provider or storage.
	if fx.provider.GenerateReportCalls != 0 {
		t.Errorf("provider called %d times for a denied request", fx.provider.GenerateReportCalls)
	}
	if fx.files.count() != 0 {
		t.Error("denied request wrote to storage")
	}
}

func TestGenerateFailureDoesNotConsumeQuota(t *testing.T) {
	fx := newReportFixture(t)
	fx.provider.GenerateReportError = fmt.Errorf("model overloaded: %w", ai.EAIUnavailable)

	_, err := fx.svc.Generate(context.Background(), fx.userID, validInput(), nil)
	if domain.ErrorCode(err) != domain.EINTERNAL {
		t.Fatalf("expected internal error, got %v", err)
	}

	used, getErr := fx.quota.GetDailyUsage(context.Background(), fx.userID, domain.UsageDay(fx.now))
	if getErr == nil && used != 0 {
		t.Errorf("failed generation consumed quota: used = %d", used)
	}
	if len(fx.store.reports) != 0 {
		t.Error("failed generation left a report row")
	}
}

func TestGenerateValidatesInput(t *testing.T) {
	fx := newReportFixture(t)

	input := validInput()
	input.Title = "   "
	_, err := fx.svc.Generate(context.Background(), fx.userID, input, nil)
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Fatalf("expected validation error, got %v", err)
	}
	if fx.provider.GenerateReportCalls != 0 {
		t.Error("invalid input reached the provider")
	}
}

func TestGenerateHonorsOverrideLimit(t *testing.T) {
	fx := newReportFixture(t)
	fx.quota.setUsage(fx.userID, domain.UsageDay(fx.now), 10)

	raised := 20
	if _, err := fx.svc.Generate(context.Background(), fx.userID, validInput(), &raised); err != nil {
		t.Fatalf("override should lift the default limit: %v", err)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	fx := newReportFixture(t)

	generated, err := fx.svc.Generate(context.Background(), fx.userID, validInput(), nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := fx.svc.Get(context.Background(), fx.userID, generated.Report.ID); err != nil {
		t.Errorf("owner should see the report: %v", err)
	}

	// Another user gets a not-found, never a forbidden that confirms the
	// report exists.
	other := uuid.New()
	_, err = fx.svc.Get(context.Background(), other, generated.Report.ID)
	if domain.ErrorCode(err) != domain.ENOTFOUND {
		t.Errorf("expected not found for another user, got %v", err)
	}
}

func TestDownloadReturnsStoredDocument(t *testing.T) {
	fx := newReportFixture(t)

	generated, err := fx.svc.Generate(context.Background(), fx.userID, validInput(), nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	body, err := fx.svc.Download(context.Background(), fx.userID, generated.Report.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if body != generated.Markdown {
		t.Error("downloaded body differs from the generated document")
	}
}

func TestMapAIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"invalid input", fmt.Errorf("x: %w", ai.EAIInvalidInput), domain.EINVALID},
		{"rate limited upstream", fmt.Errorf("x: %w", ai.EAIRateLimit), domain.EINTERNAL},
		{"unavailable", fmt.Errorf("x: %w", ai.EAIUnavailable), domain.EINTERNAL},
		{"timeout", fmt.Errorf("x: %w", ai.EAITimeout), domain.EINTERNAL},
		{"unknown", errors.New("boom"), domain.EINTERNAL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.ErrorCode(mapAIError("report.generate", tt.err))
			if got != tt.want {
				t.Errorf("code = %q, want %q", got, tt.want)
			}
		})
	}
}
