package provisioning

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineClientAttempt(t *testing.T) {
	t.Parallel()

	req := Request{
		InviteLink:  "https://example.com/invite/abc",
		Email:       "acct_1_0_xyz@temp.local",
		Password:    "Aa1!xxxxxxxx",
		ProjectName: "project-1-1",
	}

	t.Run("successful provision", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/provision", r.URL.Path)

			var got engineRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			assert.Equal(t, req.Email, got.Email)
			assert.Equal(t, req.InviteLink, got.InviteLink)

			_ = json.NewEncoder(w).Encode(engineResponse{
				Success:    true,
				ProjectID:  "proj-42",
				ProjectURL: "https://app.example.com/proj-42",
			})
		}))
		defer srv.Close()

		client := NewEngineClient(srv.URL)
		result, err := client.Attempt(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "proj-42", result.ProjectID)
	})

	t.Run("rejected signup is permanent", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(engineResponse{Error: "invite link expired"})
		}))
		defer srv.Close()

		client := NewEngineClient(srv.URL)
		_, err := client.Attempt(context.Background(), req)
		require.Error(t, err)

		var provErr *Error
		require.True(t, errors.As(err, &provErr))
		assert.Equal(t, KindPermanent, provErr.Kind)
		assert.Contains(t, provErr.Msg, "invite link expired")
	})

	t.Run("no capacity is fatal", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		client := NewEngineClient(srv.URL)
		_, err := client.Attempt(context.Background(), req)
		require.Error(t, err)
		assert.True(t, IsFatal(err))
	})

	t.Run("server error is retryable", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := NewEngineClient(srv.URL)
		_, err := client.Attempt(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, KindRetryable, KindOf(err))
	})

	t.Run("unreachable engine is retryable", func(t *testing.T) {
		t.Parallel()
		client := NewEngineClient("http://127.0.0.1:1")
		_, err := client.Attempt(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, KindRetryable, KindOf(err))
	})
}

func TestErrorKinds(t *testing.T) {
	t.Parallel()

	t.Run("untagged errors default to retryable", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, KindRetryable, KindOf(errors.New("unexpected")))
		assert.False(t, IsFatal(errors.New("unexpected")))
	})

	t.Run("wrapped tagged errors keep their kind", func(t *testing.T) {
		t.Parallel()
		inner := NewError(KindFatal, "engine down", nil)
		wrapped := errors.Join(errors.New("slot 3"), inner)
		assert.True(t, IsFatal(wrapped))
	})

	t.Run("retryable reports only for retryable kind", func(t *testing.T) {
		t.Parallel()
		assert.True(t, NewError(KindRetryable, "net", nil).Retryable())
		assert.False(t, NewError(KindPermanent, "rejected", nil).Retryable())
		assert.False(t, NewError(KindFatal, "down", nil).Retryable())
	})
}
