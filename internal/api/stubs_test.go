package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/provix/provix-api/internal/api/shared"
	"github.com/provix/provix-api/internal/domain"
	"github.com/provix/provix-api/internal/service"
	"github.com/provix/provix-api/internal/service/auth"
	"github.com/provix/provix-api/internal/store"
)

// Handler test plumbing: stub services with canned returns, plus helpers
// for authenticated requests and chi route parameters.

type stubTaskService struct {
	task      *domain.Task
	tasks     []*domain.Task
	progress  *service.TaskProgress
	createErr error
	getErr    error
	cancelErr error
}

func (s *stubTaskService) CreateTask(ctx context.Context, userID uuid.UUID, inviteLink string, quantity int) (*domain.Task, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.task, nil
}

func (s *stubTaskService) GetTaskProgress(ctx context.Context, userID, taskID uuid.UUID) (*service.TaskProgress, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.progress, nil
}

func (s *stubTaskService) ListTasks(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error) {
	return s.tasks, nil
}

func (s *stubTaskService) CancelTask(ctx context.Context, userID, taskID uuid.UUID) error {
	return s.cancelErr
}

type stubPaymentService struct {
	plans      []*domain.CreditPlan
	txn        *domain.Transaction
	txns       []*domain.Transaction
	outcome    service.ConfirmOutcome
	createErr  error
	getErr     error
	confirmErr error
	confirmed  []string
}

func (s *stubPaymentService) ListPlans(ctx context.Context) ([]*domain.CreditPlan, error) {
	return s.plans, nil
}

func (s *stubPaymentService) CreateTransaction(ctx context.Context, userID, planID uuid.UUID) (*domain.Transaction, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.txn, nil
}

func (s *stubPaymentService) GetTransaction(ctx context.Context, userID, txnID uuid.UUID) (*domain.Transaction, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.txn, nil
}

func (s *stubPaymentService) ListTransactions(ctx context.Context, userID uuid.UUID) ([]*domain.Transaction, error) {
	return s.txns, nil
}

func (s *stubPaymentService) ConfirmPayment(ctx context.Context, paymentID string) (service.ConfirmOutcome, error) {
	s.confirmed = append(s.confirmed, paymentID)
	if s.confirmErr != nil {
		return 0, s.confirmErr
	}
	return s.outcome, nil
}

func (s *stubPaymentService) ExpireOverdueTransactions(ctx context.Context) (int, error) {
	return 0, nil
}

type stubCreditService struct {
	balance *domain.CreditBalance
	err     error
}

func (s *stubCreditService) GetBalance(ctx context.Context, userID uuid.UUID) (*domain.CreditBalance, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.balance, nil
}

func (s *stubCreditService) Grant(ctx context.Context, userID uuid.UUID, credits int) error {
	return s.err
}

func (s *stubCreditService) Debit(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	return s.err == nil, s.err
}

func (s *stubCreditService) Refund(ctx context.Context, userID uuid.UUID, amount int) error {
	return s.err
}

type stubUserStore struct {
	users     map[string]*domain.User
	createErr error
}

func newStubUserStore() *stubUserStore {
	return &stubUserStore{users: make(map[string]*domain.User)}
}

func (s *stubUserStore) Create(ctx context.Context, user *domain.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	user.HashedPassword = "hashed:" + user.Password
	user.Password = ""
	s.users[user.Email] = user
	return nil
}

func (s *stubUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *stubUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, ok := s.users[email]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u, nil
}

func (s *stubUserStore) TouchSignIn(ctx context.Context, id uuid.UUID) error { return nil }

func (s *stubUserStore) WithTx(tx *sql.Tx) store.UserStore { return s }

type stubJWTService struct {
	claims      *auth.Claims
	validateErr error
}

func (s *stubJWTService) GenerateToken(ctx context.Context, userID uuid.UUID) (string, error) {
	return "access-token-" + userID.String(), nil
}

func (s *stubJWTService) GenerateRefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	return "refresh-token-" + userID.String(), nil
}

func (s *stubJWTService) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	if s.validateErr != nil {
		return nil, s.validateErr
	}
	return s.claims, nil
}

func (s *stubJWTService) ValidateRefreshToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	if s.validateErr != nil {
		return nil, s.validateErr
	}
	return s.claims, nil
}

type stubPasswordVerifier struct {
	err error
}

func (v *stubPasswordVerifier) Compare(hashedPassword, password string) error {
	return v.err
}

// asUser stamps the request context the way the auth middleware does.
func asUser(r *http.Request, userID uuid.UUID) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), shared.UserIDContextKey, userID))
}

// withPathParam attaches a chi route parameter without a full router.
func withPathParam(r *http.Request, name, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(name, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, v))
}
