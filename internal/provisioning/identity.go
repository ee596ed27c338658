package provisioning

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Identity is a synthetic account credential pair generated per slot.
// The password exists only in memory for the duration of the attempt.
type Identity struct {
	Email    string
	Password string
}

// Password character classes. Generated passwords contain at least one
// character from each class and are GeneratedPasswordLength long.
const (
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	digitChars   = "0123456789"
	specialChars = "!@#$%^&*"

	// GeneratedPasswordLength is the length of synthetic account passwords.
	GeneratedPasswordLength = 12

	// identityDomain is the throwaway domain for synthetic emails.
	identityDomain = "temp.local"
)

// NewIdentities generates count synthetic identities sharing one batch
// timestamp, each with a random suffix and a fresh password.
func NewIdentities(count int) ([]Identity, error) {
	timestamp := time.Now().UnixMilli()
	identities := make([]Identity, 0, count)

	for i := 0; i < count; i++ {
		suffix, err := randomString(lowerChars+digitChars, 6)
		if err != nil {
			return nil, fmt.Errorf("failed to generate email suffix: %w", err)
		}

		password, err := NewPassword()
		if err != nil {
			return nil, fmt.Errorf("failed to generate password: %w", err)
		}

		identities = append(identities, Identity{
			Email:    fmt.Sprintf("acct_%d_%d_%s@%s", timestamp, i, suffix, identityDomain),
			Password: password,
		})
	}

	return identities, nil
}

// NewPassword generates a high-entropy password containing at least one
// uppercase letter, lowercase letter, digit, and special character.
func NewPassword() (string, error) {
	classes := []string{upperChars, lowerChars, digitChars, specialChars}
	allChars := upperChars + lowerChars + digitChars + specialChars

	chars := make([]byte, 0, GeneratedPasswordLength)
	for _, class := range classes {
		c, err := randomString(class, 1)
		if err != nil {
			return "", err
		}
		chars = append(chars, c[0])
	}

	fill, err := randomString(allChars, GeneratedPasswordLength-len(classes))
	if err != nil {
		return "", err
	}
	chars = append(chars, fill...)

	// Shuffle so the class-guaranteed characters are not positional.
	for i := len(chars) - 1; i > 0; i-- {
		j, err := randomInt(i + 1)
		if err != nil {
			return "", err
		}
		chars[i], chars[j] = chars[j], chars[i]
	}

	return string(chars), nil
}

// randomString draws n characters uniformly from the given alphabet.
func randomString(alphabet string, n int) (string, error) {
	out := make([]byte, n)
	for i := range out {
		idx, err := randomInt(len(alphabet))
		if err != nil {
			return "", err
		}
		out[i] = alphabet[idx]
	}
	return string(out), nil
}

// randomInt returns a uniform random int in [0, max).
func randomInt(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
