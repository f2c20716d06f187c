package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/praktika-app/praktika/internal/domain"
	"github.com/praktika-app/praktika/internal/repository"
	"github.com/praktika-app/praktika/internal/voucher"
)

// fakeBillingStore is an in-memory store satisfying both EntitlementStore
// and PaymentStore. ExecGrant stages writes and commits them only when fn
// succeeds, mirroring the transactional all-or-nothing contract.
type fakeBillingStore struct {
	mu           sync.Mutex
	users        map[uuid.UUID]repository.User
	transactions map[string]repository.Transaction

	failUpdateEntitlement bool
	failCreateTransaction bool
}

func newFakeBillingStore() *fakeBillingStore {
	return &fakeBillingStore{
		users:        make(map[uuid.UUID]repository.User),
		transactions: make(map[string]repository.Transaction),
	}
}

func (f *fakeBillingStore) addUser(email string, proExpiresAt *time.Time) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	u := repository.User{ID: id, Email: email}
	if proExpiresAt != nil {
		u.ProExpiresAt = sql.NullTime{Time: *proExpiresAt, Valid: true}
	}
	f.users[id] = u
	return id
}

func (f *fakeBillingStore) userExpiry(id uuid.UUID) sql.NullTime {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id].ProExpiresAt
}

func (f *fakeBillingStore) transactionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transactions)
}

func (f *fakeBillingStore) GetUserByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeBillingStore) GetUserByEmail(_ context.Context, email string) (repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return repository.User{}, sql.ErrNoRows
}

func (f *fakeBillingStore) GetTransactionByOrderID(_ context.Context, orderID string) (repository.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tr, ok := f.transactions[orderID]
	if !ok {
		return repository.Transaction{}, sql.ErrNoRows
	}
	return tr, nil
}

func (f *fakeBillingStore) CreateTransaction(_ context.Context, arg repository.CreateTransactionParams) (repository.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createTransactionLocked(arg)
}

func (f *fakeBillingStore) createTransactionLocked(arg repository.CreateTransactionParams) (repository.Transaction, error) {
	if f.failCreateTransaction {
		return repository.Transaction{}, errors.New("injected transaction insert failure")
	}
	if _, exists := f.transactions[arg.OrderID]; exists {
		return repository.Transaction{}, errors.New("duplicate order id")
	}
	tr := repository.Transaction{
		ID:        uuid.New(),
		OrderID:   arg.OrderID,
		UserID:    arg.UserID,
		AmountIdr: arg.AmountIdr,
		Plan:      arg.Plan,
		Status:    arg.Status,
		Source:    arg.Source,
	}
	f.transactions[arg.OrderID] = tr
	return tr, nil
}

func (f *fakeBillingStore) MarkTransactionStatus(_ context.Context, arg repository.MarkTransactionStatusParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.markTransactionStatusLocked(arg)
}

func (f *fakeBillingStore) markTransactionStatusLocked(arg repository.MarkTransactionStatusParams) (int64, error) {
	tr, ok := f.transactions[arg.OrderID]
	if !ok || tr.Status != string(domain.TransactionStatusPending) {
		return 0, nil
	}
	tr.Status = arg.Status
	tr.RawPayload = arg.RawPayload
	f.transactions[arg.OrderID] = tr
	return 1, nil
}

// fakeGrantOps applies writes to a staged copy of the store's state.
type fakeGrantOps struct {
	store        *fakeBillingStore
	users        map[uuid.UUID]repository.User
	transactions map[string]repository.Transaction
}

func (o *fakeGrantOps) UpdateUserEntitlement(_ context.Context, arg repository.UpdateUserEntitlementParams) error {
	if o.store.failUpdateEntitlement {
		return errors.New("injected entitlement update failure")
	}
	u, ok := o.users[arg.ID]
	if !ok {
		return sql.ErrNoRows
	}
	u.ProExpiresAt = sql.NullTime{Time: arg.ProExpiresAt, Valid: true}
	o.users[arg.ID] = u
	return nil
}

func (o *fakeGrantOps) CreateTransaction(_ context.Context, arg repository.CreateTransactionParams) (repository.Transaction, error) {
	if o.store.failCreateTransaction {
		return repository.Transaction{}, errors.New("injected transaction insert failure")
	}
	if _, exists := o.transactions[arg.OrderID]; exists {
		return repository.Transaction{}, errors.New("duplicate order id")
	}
	tr := repository.Transaction{
		ID:        uuid.New(),
		OrderID:   arg.OrderID,
		UserID:    arg.UserID,
		AmountIdr: arg.AmountIdr,
		Plan:      arg.Plan,
		Status:    arg.Status,
		Source:    arg.Source,
	}
	o.transactions[arg.OrderID] = tr
	return tr, nil
}

func (o *fakeGrantOps) MarkTransactionStatus(_ context.Context, arg repository.MarkTransactionStatusParams) (int64, error) {
	tr, ok := o.transactions[arg.OrderID]
	if !ok || tr.Status != string(domain.TransactionStatusPending) {
		return 0, nil
	}
	tr.Status = arg.Status
	tr.RawPayload = arg.RawPayload
	o.transactions[arg.OrderID] = tr
	return 1, nil
}

func (f *fakeBillingStore) ExecGrant(_ context.Context, fn func(repository.GrantOps) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	staged := &fakeGrantOps{
		store:        f,
		users:        make(map[uuid.UUID]repository.User, len(f.users)),
		transactions: make(map[string]repository.Transaction, len(f.transactions)),
	}
	for k, v := range f.users {
		staged.users[k] = v
	}
	for k, v := range f.transactions {
		staged.transactions[k] = v
	}

	if err := fn(staged); err != nil {
		return err // rollback: staged state is discarded
	}
	f.users = staged.users
	f.transactions = staged.transactions
	return nil
}

var testPricing = PlanPricing{MonthlyIDR: 15000, YearlyIDR: 120000}

func newEntitlementServiceAt(store *fakeBillingStore, codes []string, now time.Time) *EntitlementService {
	svc := NewEntitlementService(store, voucher.New(codes), testPricing, testLogger())
	svc.now = func() time.Time { return now }
	return svc
}

func TestExtendGrantsEntitlementWithAudit(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeBillingStore()
	userID := store.addUser("budi@example.com", nil)
	svc := newEntitlementServiceAt(store, nil, now)

	expiry, err := svc.Extend(context.Background(), userID, domain.PlanMonthly, "REF-1", domain.TransactionSourceManual)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if want := now.AddDate(0, 0, 30); !expiry.Equal(want) {
		t.Errorf("expiry = %v, want %v", expiry, want)
	}

	got := store.userExpiry(userID)
	if !got.Valid || !got.Time.Equal(expiry) {
		t.Errorf("stored expiry = %+v, want %v", got, expiry)
	}

	tr, err := store.GetTransactionByOrderID(context.Background(), "REF-1")
	if err != nil {
		t.Fatal("expected an audit transaction for the grant")
	}
	if tr.Status != string(domain.TransactionStatusSuccess) {
		t.Errorf("audit status = %q, want success", tr.Status)
	}
	if tr.Source != string(domain.TransactionSourceManual) {
		t.Errorf("audit source = %q, want manual", tr.Source)
	}
	if tr.AmountIdr != testPricing.MonthlyIDR {
		t.Errorf("audit amount = %d, want %d", tr.AmountIdr, testPricing.MonthlyIDR)
	}
}

func TestExtendYearly(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeBillingStore()
	userID := store.addUser("budi@example.com", nil)
	svc := newEntitlementServiceAt(store, nil, now)

	expiry, err := svc.Extend(context.Background(), userID, domain.PlanYearly, "REF-Y", domain.TransactionSourceManual)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if want := now.AddDate(1, 0, 0); !expiry.Equal(want) {
		t.Errorf("expiry = %v, want %v", expiry, want)
	}
}

func TestExtendRejectsUnknownPlan(t *testing.T) {
	store := newFakeBillingStore()
	userID := store.addUser("budi@example.com", nil)
	svc := newEntitlementServiceAt(store, nil, time.Now())

	_, err := svc.Extend(context.Background(), userID, domain.Plan("weekly"), "REF-1", domain.TransactionSourceManual)
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Fatalf("expected invalid plan error, got %v", err)
	}
}

func TestExtendUnknownUser(t *testing.T) {
	store := newFakeBillingStore()
	svc := newEntitlementServiceAt(store, nil, time.Now())

	_, err := svc.Extend(context.Background(), uuid.New(), domain.PlanMonthly, "REF-1", domain.TransactionSourceManual)
	if domain.ErrorCode(err) != domain.ENOTFOUND {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestExtendIsAtomic(t *testing.T) {
	// When the audit insert fails, the entitlement update must roll back
	// with it: no grant without its record.
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeBillingStore()
	userID := store.addUser("budi@example.com", nil)
	store.failCreateTransaction = true
	svc := newEntitlementServiceAt(store, nil, now)

	_, err := svc.Extend(context.Background(), userID, domain.PlanMonthly, "REF-1", domain.TransactionSourceManual)
	if domain.ErrorCode(err) != domain.EINTERNAL {
		t.Fatalf("expected internal error, got %v", err)
	}

	if got := store.userExpiry(userID); got.Valid {
		t.Errorf("entitlement committed despite failed audit insert: %+v", got)
	}
	if n := store.transactionCount(); n != 0 {
		t.Errorf("transaction count = %d, want 0", n)
	}
}

func TestExtendDoesNotStack(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	existing := now.AddDate(0, 0, 20) // 20 days of paid time left
	store := newFakeBillingStore()
	userID := store.addUser("budi@example.com", &existing)
	svc := newEntitlementServiceAt(store, nil, now)

	expiry, err := svc.Extend(context.Background(), userID, domain.PlanMonthly, "REF-1", domain.TransactionSourceGateway)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if want := now.AddDate(0, 0, 30); !expiry.Equal(want) {
		t.Errorf("expiry = %v, want %v (counted from now, not stacked on the remainder)", expiry, want)
	}
}

func TestRedeemVoucher(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeBillingStore()
	userID := store.addUser("siti@example.com", nil)
	svc := newEntitlementServiceAt(store, []string{"GRATIS30"}, now)

	expiry, err := svc.Redeem(context.Background(), userID, "gratis30")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if want := now.AddDate(0, 0, 30); !expiry.Equal(want) {
		t.Errorf("expiry = %v, want %v", expiry, want)
	}

	// The audit trail records the redemption under a voucher reference.
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.transactions) != 1 {
		t.Fatalf("transaction count = %d, want 1", len(store.transactions))
	}
	for orderID, tr := range store.transactions {
		if !strings.HasPrefix(orderID, "VOUCHER-") {
			t.Errorf("reference id = %q, want VOUCHER- prefix", orderID)
		}
		if tr.Source != string(domain.TransactionSourceVoucher) {
			t.Errorf("source = %q, want voucher", tr.Source)
		}
	}
}

func TestRedeemWhileStillActive(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	active := now.Add(48 * time.Hour)
	store := newFakeBillingStore()
	userID := store.addUser("siti@example.com", &active)
	svc := newEntitlementServiceAt(store, []string{"GRATIS30"}, now)

	_, err := svc.Redeem(context.Background(), userID, "GRATIS30")
	if domain.ErrorCode(err) != domain.ECONFLICT {
		t.Fatalf("expected conflict while PRO is active, got %v", err)
	}
	if n := store.transactionCount(); n != 0 {
		t.Errorf("rejected redemption still wrote %d transactions", n)
	}
}

func TestRedeemAfterExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	expired := now.Add(-time.Hour)
	store := newFakeBillingStore()
	userID := store.addUser("siti@example.com", &expired)
	svc := newEntitlementServiceAt(store, []string{"GRATIS30"}, now)

	if _, err := svc.Redeem(context.Background(), userID, "GRATIS30"); err != nil {
		t.Fatalf("redeem after expiry should succeed: %v", err)
	}
}

func TestRedeemInvalidCode(t *testing.T) {
	store := newFakeBillingStore()
	userID := store.addUser("siti@example.com", nil)
	svc := newEntitlementServiceAt(store, []string{"GRATIS30"}, time.Now())

	_, err := svc.Redeem(context.Background(), userID, "WRONG")
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Fatalf("expected invalid code error, got %v", err)
	}
}

func TestRedeemDisabledWithoutConfiguredCodes(t *testing.T) {
	store := newFakeBillingStore()
	userID := store.addUser("siti@example.com", nil)
	svc := newEntitlementServiceAt(store, nil, time.Now())

	_, err := svc.Redeem(context.Background(), userID, "ANY")
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Fatalf("expected redemption to be unavailable, got %v", err)
	}
}

func TestManualActivate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeBillingStore()
	userID := store.addUser("dosen@example.com", nil)
	svc := newEntitlementServiceAt(store, nil, now)

	expiry, err := svc.ManualActivate(context.Background(), "  Dosen@Example.com ", domain.PlanYearly)
	if err != nil {
		t.Fatalf("manual activate: %v", err)
	}
	if want := now.AddDate(1, 0, 0); !expiry.Equal(want) {
		t.Errorf("expiry = %v, want %v", expiry, want)
	}
	if got := store.userExpiry(userID); !got.Valid || !got.Time.Equal(expiry) {
		t.Errorf("stored expiry = %+v, want %v", got, expiry)
	}
}

func TestManualActivateUnknownEmail(t *testing.T) {
	store := newFakeBillingStore()
	svc := newEntitlementServiceAt(store, nil, time.Now())

	_, err := svc.ManualActivate(context.Background(), "nobody@example.com", domain.PlanMonthly)
	if domain.ErrorCode(err) != domain.ENOTFOUND {
		t.Fatalf("expected not found, got %v", err)
	}
}
