package hash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_RoundTrip(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)
	digest, err := h.HashPassword("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, "secret1", digest)
	assert.True(t, strings.HasPrefix(digest, "$2"))
	assert.True(t, h.CheckPassword(digest, "secret1"))
	assert.False(t, h.CheckPassword(digest, "wrong"))
}

func TestHasher_SaltedDigests(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)
	a, err := h.HashPassword("secret1")
	require.NoError(t, err)
	b, err := h.HashPassword("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, h.CheckPassword(a, "secret1"))
	assert.True(t, h.CheckPassword(b, "secret1"))
}

func TestHasher_Edges(t *testing.T) {
	t.Parallel()

	h := NewHasher(0)
	assert.Equal(t, DefaultCost, h.Cost)

	_, err := h.HashPassword("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
	assert.False(t, h.CheckPassword("", "anything"))
	assert.False(t, h.CheckPassword("not-a-digest", "anything"))

	long := strings.Repeat("a", 128)
	digest, err := h.HashPassword(long)
	require.NoError(t, err)
	assert.True(t, h.CheckPassword(digest, long))
	assert.False(t, h.CheckPassword(digest, long[:127]+"b"))
	assert.False(t, h.CheckPassword(digest, long[:72]))

	multibyte := strings.Repeat("Я", 60)
	digest, err = h.HashPassword(multibyte)
	require.NoError(t, err)
	assert.True(t, h.CheckPassword(digest, multibyte))
}
