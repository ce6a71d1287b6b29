package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("password")
	require.NoError(t, err)
	assert.NotEqual(t, "password", hash)
	assert.True(t, IsHash(hash))

	assert.True(t, h.Verify(hash, "password"))
	assert.False(t, h.Verify(hash, "Password"))
	assert.False(t, h.Verify("not-a-hash", "password"))
}

func TestHashIsSalted(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	first, err := h.Hash("password")
	require.NoError(t, err)
	second, err := h.Hash("password")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestHashRejectsShortPassword(t *testing.T) {
	_, err := NewHasher(bcrypt.MinCost).Hash("12345")
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestHashRefusesDoubleHashing(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash("password")
	require.NoError(t, err)

	_, err = h.Hash(hash)
	assert.ErrorIs(t, err, ErrAlreadyHashed)
}

func TestNewHasherFallsBackToDefaultCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(bcrypt.MaxCost+1).cost)
	assert.Equal(t, bcrypt.MinCost, NewHasher(bcrypt.MinCost).cost)
}
