package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.NoError(t, h.Compare(hash, "correct horse"))
	assert.Error(t, h.Compare(hash, "wrong horse"))

	_, err = h.Hash("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Validate("short"), ErrTooShort)
	assert.ErrorIs(t, Validate("ሰላምሰላም"), ErrTooShort, "counts runes, not bytes")
	assert.NoError(t, Validate("12345678"))
}
