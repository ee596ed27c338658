package provisioning

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIdentities(t *testing.T) {
	t.Parallel()

	identities, err := NewIdentities(5)
	require.NoError(t, err)
	require.Len(t, identities, 5)

	seen := make(map[string]bool)
	for i, id := range identities {
		assert.True(t, strings.HasPrefix(id.Email, "acct_"), "email %q", id.Email)
		assert.True(t, strings.HasSuffix(id.Email, "@temp.local"), "email %q", id.Email)
		assert.False(t, seen[id.Email], "duplicate email %q at slot %d", id.Email, i)
		seen[id.Email] = true

		assert.Len(t, id.Password, GeneratedPasswordLength)
	}
}

func TestNewPassword(t *testing.T) {
	t.Parallel()

	// Generated passwords must always carry all four character classes.
	for i := 0; i < 50; i++ {
		password, err := NewPassword()
		require.NoError(t, err)
		require.Len(t, password, GeneratedPasswordLength)

		assert.True(t, strings.ContainsAny(password, upperChars), "missing uppercase in %q", password)
		assert.True(t, strings.ContainsAny(password, lowerChars), "missing lowercase in %q", password)
		assert.True(t, strings.ContainsAny(password, digitChars), "missing digit in %q", password)
		assert.True(t, strings.ContainsAny(password, specialChars), "missing special in %q", password)
	}
}
