package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signManifest(secret, dataID, requestID, ts string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	t.Parallel()

	const (
		secret    = "test-webhook-secret-key"
		dataID    = "12345678901"
		requestID = "req-abc-123"
		ts        = "1741000000"
	)

	t.Run("accepts valid signature", func(t *testing.T) {
		t.Parallel()
		v1 := signManifest(secret, dataID, requestID, ts)
		header := fmt.Sprintf("ts=%s,v1=%s", ts, v1)

		assert.NoError(t, VerifyWebhookSignature(secret, header, requestID, dataID))
	})

	t.Run("accepts header with spaces", func(t *testing.T) {
		t.Parallel()
		v1 := signManifest(secret, dataID, requestID, ts)
		header := fmt.Sprintf("ts=%s, v1=%s", ts, v1)

		assert.NoError(t, VerifyWebhookSignature(secret, header, requestID, dataID))
	})

	t.Run("rejects wrong secret", func(t *testing.T) {
		t.Parallel()
		v1 := signManifest("some-other-secret", dataID, requestID, ts)
		header := fmt.Sprintf("ts=%s,v1=%s", ts, v1)

		assert.ErrorIs(t, VerifyWebhookSignature(secret, header, requestID, dataID), ErrSignatureMismatch)
	})

	t.Run("rejects tampered data id", func(t *testing.T) {
		t.Parallel()
		v1 := signManifest(secret, dataID, requestID, ts)
		header := fmt.Sprintf("ts=%s,v1=%s", ts, v1)

		assert.ErrorIs(t, VerifyWebhookSignature(secret, header, requestID, "999"), ErrSignatureMismatch)
	})

	t.Run("rejects missing header", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, VerifyWebhookSignature(secret, "", requestID, dataID), ErrMissingSignature)
		assert.ErrorIs(t, VerifyWebhookSignature(secret, "ts=1,v1=abc", "", dataID), ErrMissingSignature)
	})

	t.Run("rejects malformed header", func(t *testing.T) {
		t.Parallel()
		for _, header := range []string{"garbage", "ts=123", "v1=abc", "ts=,v1="} {
			err := VerifyWebhookSignature(secret, header, requestID, dataID)
			require.Error(t, err, "header %q", header)
			assert.ErrorIs(t, err, ErrMalformedSignature, "header %q", header)
		}
	})
}
