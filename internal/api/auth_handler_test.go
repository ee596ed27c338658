package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/provix/provix-api/internal/domain"
	"github.com/provix/provix-api/internal/service/auth"
	"github.com/provix/provix-api/internal/store"
)

func TestAuthHandlerRegister(t *testing.T) {
	t.Parallel()

	body := `{"email":"new@example.com","password":"correct-horse-battery"}`

	t.Run("registers user and issues tokens", func(t *testing.T) {
		t.Parallel()
		users := newStubUserStore()
		h := NewAuthHandler(users, &stubJWTService{}, &stubPasswordVerifier{})

		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.Register(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp AuthResponse
		decodeBody(t, rec, &resp)
		assert.NotEqual(t, uuid.Nil, resp.UserID)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)

		created, err := users.GetByEmail(req.Context(), "new@example.com")
		require.NoError(t, err)
		assert.Empty(t, created.Password)
		assert.NotEmpty(t, created.HashedPassword)
	})

	t.Run("duplicate email", func(t *testing.T) {
		t.Parallel()
		users := newStubUserStore()
		users.createErr = store.ErrEmailExists
		h := NewAuthHandler(users, &stubJWTService{}, &stubPasswordVerifier{})

		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.Register(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("rejects short password", func(t *testing.T) {
		t.Parallel()
		h := NewAuthHandler(newStubUserStore(), &stubJWTService{}, &stubPasswordVerifier{})

		req := httptest.NewRequest(http.MethodPost, "/auth/register",
			strings.NewReader(`{"email":"new@example.com","password":"short"}`))
		rec := httptest.NewRecorder()
		h.Register(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		t.Parallel()
		h := NewAuthHandler(newStubUserStore(), &stubJWTService{}, &stubPasswordVerifier{})

		req := httptest.NewRequest(http.MethodPost, "/auth/register",
			strings.NewReader(`{"email":"not-an-email","password":"correct-horse-battery"}`))
		rec := httptest.NewRecorder()
		h.Register(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthHandlerLogin(t *testing.T) {
	t.Parallel()

	seedUser := func(t *testing.T) (*stubUserStore, *domain.User) {
		t.Helper()
		users := newStubUserStore()
		user, err := domain.NewUser("buyer@example.com", "correct-horse-battery")
		require.NoError(t, err)
		require.NoError(t, users.Create(context.Background(), user))
		return users, user
	}

	body := `{"email":"buyer@example.com","password":"correct-horse-battery"}`

	t.Run("valid credentials", func(t *testing.T) {
		t.Parallel()
		users, user := seedUser(t)
		h := NewAuthHandler(users, &stubJWTService{}, &stubPasswordVerifier{})

		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.Login(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp AuthResponse
		decodeBody(t, rec, &resp)
		assert.Equal(t, user.ID, resp.UserID)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()
		users, _ := seedUser(t)
		h := NewAuthHandler(users, &stubJWTService{}, &stubPasswordVerifier{err: bcrypt.ErrMismatchedHashAndPassword})

		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.Login(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid credentials")
	})

	t.Run("unknown email", func(t *testing.T) {
		t.Parallel()
		h := NewAuthHandler(newStubUserStore(), &stubJWTService{}, &stubPasswordVerifier{})

		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.Login(rec, req)

		// Indistinguishable from a wrong password.
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid credentials")
	})
}

func TestAuthHandlerRefreshToken(t *testing.T) {
	t.Parallel()

	t.Run("exchanges refresh token for new pair", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		h := NewAuthHandler(newStubUserStore(), &stubJWTService{
			claims: &auth.Claims{UserID: userID, TokenType: "refresh"},
		}, &stubPasswordVerifier{})

		req := httptest.NewRequest(http.MethodPost, "/auth/refresh",
			strings.NewReader(`{"refresh_token":"some-refresh-token"}`))
		rec := httptest.NewRecorder()
		h.RefreshToken(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp RefreshTokenResponse
		decodeBody(t, rec, &resp)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
	})

	t.Run("expired refresh token", func(t *testing.T) {
		t.Parallel()
		h := NewAuthHandler(newStubUserStore(), &stubJWTService{
			validateErr: auth.ErrExpiredToken,
		}, &stubPasswordVerifier{})

		req := httptest.NewRequest(http.MethodPost, "/auth/refresh",
			strings.NewReader(`{"refresh_token":"stale-token"}`))
		rec := httptest.NewRecorder()
		h.RefreshToken(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("access token rejected", func(t *testing.T) {
		t.Parallel()
		h := NewAuthHandler(newStubUserStore(), &stubJWTService{
			validateErr: auth.ErrWrongTokenType,
		}, &stubPasswordVerifier{})

		req := httptest.NewRequest(http.MethodPost, "/auth/refresh",
			strings.NewReader(`{"refresh_token":"an-access-token"}`))
		rec := httptest.NewRecorder()
		h.RefreshToken(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
