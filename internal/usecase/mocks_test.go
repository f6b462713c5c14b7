//go:build !integration

package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-vpn-storefront/internal/domain"
	"telegram-vpn-storefront/internal/domain/model"
	"telegram-vpn-storefront/internal/domain/ports/adapter"
	"telegram-vpn-storefront/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

//
// ---------------- in-memory repositories ----------------
//

type memOrderRepo struct {
	mu     sync.Mutex
	byID   map[string]*model.Order
	nextID int64

	// markSucceededResult, when set, overrides the conditional write outcome
	// to exercise the lost-race path.
	markSucceededResult *bool
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{byID: map[string]*model.Order{}}
}

func (m *memOrderRepo) Create(_ context.Context, _ repository.Tx, o *model.Order) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byID[o.PaymentID]; ok {
		return existing.ID, nil
	}
	m.nextID++
	cp := *o
	cp.ID = m.nextID
	m.byID[o.PaymentID] = &cp
	return cp.ID, nil
}

func (m *memOrderRepo) FindByPaymentID(_ context.Context, _ repository.Tx, paymentID string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[paymentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrderRepo) IsSucceeded(_ context.Context, _ repository.Tx, paymentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[paymentID]
	return ok && o.Status == model.OrderStatusSucceeded, nil
}

func (m *memOrderRepo) MarkSucceededIfPending(_ context.Context, _ repository.Tx, paymentID, username, shortUUID string, completedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markSucceededResult != nil {
		return *m.markSucceededResult, nil
	}
	o, ok := m.byID[paymentID]
	if !ok || o.Status != model.OrderStatusPending {
		return false, nil
	}
	o.Status = model.OrderStatusSucceeded
	o.Username = &username
	o.ShortUUID = &shortUUID
	t := completedAt
	o.CompletedAt = &t
	return true, nil
}

func (m *memOrderRepo) UpdateStatus(_ context.Context, _ repository.Tx, paymentID string, status model.OrderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[paymentID]
	if !ok {
		return false, nil
	}
	o.Status = status
	return true, nil
}

func (m *memOrderRepo) ListByTelegramID(_ context.Context, _ repository.Tx, telegramID int64) ([]*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Order
	for _, o := range m.byID {
		if o.TelegramID == telegramID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memOrderRepo) get(paymentID string) *model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[paymentID]
}

type memTrialRepo struct {
	mu   sync.Mutex
	used map[int64]bool

	addResult *bool // overrides Add to exercise the duplicate race
}

func newMemTrialRepo() *memTrialRepo { return &memTrialRepo{used: map[int64]bool{}} }

func (m *memTrialRepo) Add(_ context.Context, _ repository.Tx, telegramID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addResult != nil {
		return *m.addResult, nil
	}
	if m.used[telegramID] {
		return false, nil
	}
	m.used[telegramID] = true
	return true, nil
}

func (m *memTrialRepo) HasUsed(_ context.Context, _ repository.Tx, telegramID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used[telegramID], nil
}

type memReferralRepo struct {
	mu         sync.Mutex
	byReferred map[int64]int64
}

func newMemReferralRepo() *memReferralRepo { return &memReferralRepo{byReferred: map[int64]int64{}} }

func (m *memReferralRepo) Add(_ context.Context, _ repository.Tx, referrerID, referredID int64, _ *int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byReferred[referredID]; ok {
		return false, nil
	}
	m.byReferred[referredID] = referrerID
	return true, nil
}

func (m *memReferralRepo) HasReferrer(_ context.Context, _ repository.Tx, referredID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byReferred[referredID]
	return ok, nil
}

type memBlockRepo struct {
	mu      sync.Mutex
	blocked map[int64]string
}

func newMemBlockRepo() *memBlockRepo { return &memBlockRepo{blocked: map[int64]string{}} }

func (m *memBlockRepo) Block(_ context.Context, _ repository.Tx, telegramID int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocked[telegramID] = reason
	return nil
}

func (m *memBlockRepo) Unblock(_ context.Context, _ repository.Tx, telegramID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blocked[telegramID]; !ok {
		return false, nil
	}
	delete(m.blocked, telegramID)
	return true, nil
}

func (m *memBlockRepo) IsBlocked(_ context.Context, _ repository.Tx, telegramID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blocked[telegramID]
	return ok, nil
}

//
// ---------------- plan catalog ----------------
//

type memPlanCatalog struct{ plans map[string]*model.Plan }

func newMemPlanCatalog(plans ...*model.Plan) *memPlanCatalog {
	c := &memPlanCatalog{plans: map[string]*model.Plan{}}
	for _, p := range plans {
		c.plans[p.ID] = p
	}
	return c
}

func (c *memPlanCatalog) ByID(id string) (*model.Plan, bool) {
	p, ok := c.plans[id]
	return p, ok
}

func (c *memPlanCatalog) All() []*model.Plan {
	out := make([]*model.Plan, 0, len(c.plans))
	for _, p := range c.plans {
		out = append(out, p)
	}
	return out
}

//
// ---------------- adapter mocks ----------------
//

type mockProvider struct {
	mu sync.Mutex

	CreateAccountFunc      func(ctx context.Context, username string, plan *model.Plan, telegramID int64) (*model.Account, error)
	ExtendByTelegramIDFunc func(ctx context.Context, telegramID int64, extraDays int) (bool, error)

	createCalls  int
	extendCalls  int
	deletedUUIDs []string
}

func (m *mockProvider) CreateAccount(ctx context.Context, username string, plan *model.Plan, telegramID int64) (*model.Account, error) {
	m.mu.Lock()
	m.createCalls++
	m.mu.Unlock()
	if m.CreateAccountFunc != nil {
		return m.CreateAccountFunc(ctx, username, plan, telegramID)
	}
	return &model.Account{UUID: "uuid-" + username, ShortUUID: "short-" + username, Username: username}, nil
}

func (m *mockProvider) FindAccountsByTelegramID(context.Context, int64) ([]*model.Account, error) {
	return nil, nil
}

func (m *mockProvider) ExtendAccount(context.Context, string, int) (*model.Account, error) {
	return nil, nil
}

func (m *mockProvider) ExtendByTelegramID(ctx context.Context, telegramID int64, extraDays int) (bool, error) {
	m.mu.Lock()
	m.extendCalls++
	m.mu.Unlock()
	if m.ExtendByTelegramIDFunc != nil {
		return m.ExtendByTelegramIDFunc(ctx, telegramID, extraDays)
	}
	return true, nil
}

func (m *mockProvider) DeleteAccount(_ context.Context, accountUUID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedUUIDs = append(m.deletedUUIDs, accountUUID)
	return nil
}

func (m *mockProvider) RevokeByTelegramID(context.Context, int64) (int, []string, error) {
	return 0, nil, nil
}

func (m *mockProvider) PurgeExpired(context.Context, int) (int, error) { return 0, nil }

func (m *mockProvider) creates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCalls
}

func (m *mockProvider) extends() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.extendCalls
}

func (m *mockProvider) deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deletedUUIDs...)
}

type mockGateway struct {
	CreatePaymentFunc func(ctx context.Context, amountKopeks int64, description, returnURL string, metadata map[string]string) (*adapter.CreatedPayment, error)

	mu    sync.Mutex
	calls int
}

func (m *mockGateway) CreatePayment(ctx context.Context, amountKopeks int64, description, returnURL string, metadata map[string]string) (*adapter.CreatedPayment, error) {
	m.mu.Lock()
	m.calls++
	n := m.calls
	m.mu.Unlock()
	if m.CreatePaymentFunc != nil {
		return m.CreatePaymentFunc(ctx, amountKopeks, description, returnURL, metadata)
	}
	return &adapter.CreatedPayment{
		ID:              fmt.Sprintf("pay-%d", n),
		Status:          "pending",
		AmountKopeks:    amountKopeks,
		ConfirmationURL: "https://checkout.example/pay",
		Metadata:        metadata,
	}, nil
}

func (m *mockGateway) GetPayment(context.Context, string) (*adapter.CreatedPayment, error) {
	return nil, domain.ErrNotFound
}

func (m *mockGateway) Name() string { return "mock" }

type mockNotifier struct {
	mu        sync.Mutex
	successes []string // subscription URLs
	failures  []string // plan names
	bonuses   []int64  // referrer ids
}

func (m *mockNotifier) NotifyPurchaseSuccess(_ context.Context, _ int64, _ *model.Plan, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.successes = append(m.successes, url)
	return nil
}

func (m *mockNotifier) NotifyPurchaseFailure(_ context.Context, _ int64, planName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, planName)
	return nil
}

func (m *mockNotifier) NotifyReferralBonus(_ context.Context, referrerID int64, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bonuses = append(m.bonuses, referrerID)
	return nil
}

func (m *mockNotifier) counts() (successes, failures, bonuses int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.successes), len(m.failures), len(m.bonuses)
}

// memLocker has real lock semantics: a held key cannot be re-acquired.
// Setting backendErr simulates an unreachable lock backend.
type memLocker struct {
	mu         sync.Mutex
	held       map[string]string
	backendErr error
}

func newMemLocker() *memLocker { return &memLocker{held: map[string]string{}} }

func (l *memLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.backendErr != nil {
		return "", l.backendErr
	}
	if _, ok := l.held[key]; ok {
		return "", domain.ErrLockNotAcquired
	}
	token := fmt.Sprintf("tok-%d", len(l.held)+1)
	l.held[key] = token
	return token, nil
}

func (l *memLocker) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

type mockLimiter struct {
	allow bool
}

func (m *mockLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return m.allow, nil
}
