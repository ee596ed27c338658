package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Signature verification errors.
var (
	ErrMissingSignature   = errors.New("missing signature header")
	ErrMalformedSignature = errors.New("malformed signature header")
	ErrSignatureMismatch  = errors.New("signature mismatch")
)

// VerifyWebhookSignature validates a Mercado Pago webhook signature.
//
// The x-signature header has the form "ts=<timestamp>,v1=<hex hmac>".
// The signed manifest is "id:<dataID>;request-id:<requestID>;ts:<ts>;"
// keyed with the account's webhook secret. Comparison is constant-time.
func VerifyWebhookSignature(secret, xSignature, xRequestID, dataID string) error {
	if xSignature == "" || xRequestID == "" {
		return ErrMissingSignature
	}

	ts, v1, err := parseSignatureHeader(xSignature)
	if err != nil {
		return err
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, xRequestID, ts)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(v1))) {
		return ErrSignatureMismatch
	}

	return nil
}

// parseSignatureHeader extracts the ts and v1 parts of the header.
func parseSignatureHeader(header string) (ts, v1 string, err error) {
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			v1 = strings.TrimSpace(value)
		}
	}

	if ts == "" || v1 == "" {
		return "", "", ErrMalformedSignature
	}

	return ts, v1, nil
}
