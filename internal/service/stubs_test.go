package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/provix/provix-api/internal/domain"
	"github.com/provix/provix-api/internal/payment"
	"github.com/provix/provix-api/internal/store"
)

// In-memory store stubs shared by the service tests. They implement the
// narrow behaviors the services exercise; unused methods return zero
// values.

type stubTaskStore struct {
	mu        sync.Mutex
	tasks     map[uuid.UUID]*domain.Task
	created   []*domain.Task
	cancelOK  bool
	createErr error
}

func newStubTaskStore() *stubTaskStore {
	return &stubTaskStore{tasks: make(map[uuid.UUID]*domain.Task), cancelOK: true}
}

func (s *stubTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
	s.created = append(s.created, task)
	return nil
}

func (s *stubTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return task, nil
}

func (s *stubTaskStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Task
	for _, task := range s.tasks {
		if task.UserID == userID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (s *stubTaskStore) ClaimNextPending(ctx context.Context) (*domain.Task, error) {
	return nil, store.ErrNotFound
}

func (s *stubTaskStore) MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.cancelOK, nil
}

func (s *stubTaskStore) Finish(ctx context.Context, task *domain.Task) error { return nil }

func (s *stubTaskStore) ResetInterrupted(ctx context.Context) (int, error) { return 0, nil }

func (s *stubTaskStore) WithTx(tx *sql.Tx) store.TaskStore { return s }

type stubTaskLogStore struct {
	logs []*domain.TaskLog
}

func (s *stubTaskLogStore) Create(ctx context.Context, log *domain.TaskLog) error { return nil }

func (s *stubTaskLogStore) Update(ctx context.Context, log *domain.TaskLog) error { return nil }

func (s *stubTaskLogStore) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.TaskLog, error) {
	return s.logs, nil
}

func (s *stubTaskLogStore) CountByStatus(ctx context.Context, taskID uuid.UUID) (map[domain.TaskLogStatus]int, error) {
	counts := make(map[domain.TaskLogStatus]int)
	for _, l := range s.logs {
		counts[l.Status]++
	}
	return counts, nil
}

func (s *stubTaskLogStore) WithTx(tx *sql.Tx) store.TaskLogStore { return s }

type stubCreditStore struct {
	available int
}

func (s *stubCreditStore) GetBalance(ctx context.Context, userID uuid.UUID) (*domain.CreditBalance, error) {
	return &domain.CreditBalance{UserID: userID, Total: s.available, Available: s.available}, nil
}

func (s *stubCreditStore) Grant(ctx context.Context, userID uuid.UUID, credits int) error {
	s.available += credits
	return nil
}

func (s *stubCreditStore) Debit(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	if s.available < amount {
		return false, nil
	}
	s.available -= amount
	return true, nil
}

func (s *stubCreditStore) Refund(ctx context.Context, userID uuid.UUID, amount int) error {
	s.available += amount
	return nil
}

func (s *stubCreditStore) WithTx(tx *sql.Tx) store.CreditStore { return s }

type stubTransactionStore struct {
	mu      sync.Mutex
	txns    map[uuid.UUID]*domain.Transaction
	charges int
}

func newStubTransactionStore() *stubTransactionStore {
	return &stubTransactionStore{txns: make(map[uuid.UUID]*domain.Transaction)}
}

func (s *stubTransactionStore) Create(ctx context.Context, txn *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns[txn.ID] = txn
	return nil
}

func (s *stubTransactionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.txns[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return txn, nil
}

func (s *stubTransactionStore) GetByExternalID(ctx context.Context, externalID string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, txn := range s.txns {
		if txn.ExternalID == externalID {
			return txn, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *stubTransactionStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Transaction
	for _, txn := range s.txns {
		if txn.UserID == userID {
			out = append(out, txn)
		}
	}
	return out, nil
}

func (s *stubTransactionStore) SetCharge(ctx context.Context, id uuid.UUID, externalID, qrCode, copyPasteCode string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn := s.txns[id]
	txn.ExternalID = externalID
	txn.QRCode = qrCode
	txn.CopyPasteCode = copyPasteCode
	txn.ExpiresAt = &expiresAt
	s.charges++
	return nil
}

func (s *stubTransactionStore) Confirm(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn := s.txns[id]
	if txn.Status != domain.TransactionStatusPending {
		return false, nil
	}
	now := time.Now().UTC()
	txn.Status = domain.TransactionStatusConfirmed
	txn.PaidAt = &now
	return true, nil
}

func (s *stubTransactionStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns[id].Status = status
	return nil
}

func (s *stubTransactionStore) ExpireOverdue(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	expired := 0
	for _, txn := range s.txns {
		if txn.Status == domain.TransactionStatusPending && txn.ExpiresAt != nil && txn.ExpiresAt.Before(now) {
			txn.Status = domain.TransactionStatusExpired
			expired++
		}
	}
	return expired, nil
}

func (s *stubTransactionStore) WithTx(tx *sql.Tx) store.TransactionStore { return s }

type stubPlanStore struct {
	plans map[uuid.UUID]*domain.CreditPlan
}

func newStubPlanStore(plans ...*domain.CreditPlan) *stubPlanStore {
	s := &stubPlanStore{plans: make(map[uuid.UUID]*domain.CreditPlan)}
	for _, p := range plans {
		s.plans[p.ID] = p
	}
	return s
}

func (s *stubPlanStore) ListActive(ctx context.Context) ([]*domain.CreditPlan, error) {
	var out []*domain.CreditPlan
	for _, p := range s.plans {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubPlanStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.CreditPlan, error) {
	p, ok := s.plans[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (s *stubPlanStore) WithTx(tx *sql.Tx) store.PlanStore { return s }

type stubUserStore struct {
	users map[uuid.UUID]*domain.User
}

func newStubUserStore(users ...*domain.User) *stubUserStore {
	s := &stubUserStore{users: make(map[uuid.UUID]*domain.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *stubUserStore) Create(ctx context.Context, user *domain.User) error {
	s.users[user.ID] = user
	return nil
}

func (s *stubUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u, nil
}

func (s *stubUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *stubUserStore) TouchSignIn(ctx context.Context, id uuid.UUID) error { return nil }

func (s *stubUserStore) WithTx(tx *sql.Tx) store.UserStore { return s }

type stubGateway struct {
	charge    *payment.Charge
	chargeErr error
	status    string
	statusErr error
}

func (g *stubGateway) CreateCharge(ctx context.Context, params payment.CreateChargeParams) (*payment.Charge, error) {
	if g.chargeErr != nil {
		return nil, g.chargeErr
	}
	return g.charge, nil
}

func (g *stubGateway) GetStatus(ctx context.Context, paymentID string) (string, error) {
	if g.statusErr != nil {
		return "", g.statusErr
	}
	return g.status, nil
}

type stubNotifier struct {
	wakes int
}

func (n *stubNotifier) Wake() { n.wakes++ }
