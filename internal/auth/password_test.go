package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"smartlotto.org/internal/apperr"
)

func TestHasherRoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	first, err := h.Hash("secret1")
	require.NoError(t, err)
	second, err := h.Hash("secret1")
	require.NoError(t, err)
	require.NotEqual(t, first, second, "salt must differ per call")

	for _, digest := range []string{first, second} {
		ok, err := h.Verify("secret1", digest)
		require.NoError(t, err)
		require.True(t, ok)
	}

	ok, err := h.Verify("secret2", first)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasherMalformedDigest(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	for _, digest := range []string{"", "not-a-hash", "$2a$10$short"} {
		ok, err := h.Verify("secret1", digest)
		require.False(t, ok)
		require.ErrorIs(t, err, apperr.ErrCrypto, "digest %q", digest)
	}
}

func TestHasherRejectsEmptyPassword(t *testing.T) {
	_, err := NewHasher(bcrypt.MinCost).Hash("")
	require.ErrorIs(t, err, apperr.ErrBadRequest)
}

func TestNewHasherClampsCost(t *testing.T) {
	require.Equal(t, bcrypt.DefaultCost, NewHasher(0).cost)
	require.Equal(t, bcrypt.MinCost, NewHasher(1).cost)
	require.Equal(t, bcrypt.MaxCost, NewHasher(99).cost)
}
