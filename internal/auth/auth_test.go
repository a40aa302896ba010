package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"smartlotto.org/internal/apperr"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestIssuer(t *testing.T, secret string, clock *testClock) *Issuer {
	t.Helper()
	iss, err := NewIssuer(secret, WithTokenClock(clock.Now))
	require.NoError(t, err)
	return iss
}

func TestIssueAndVerify(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	iss := newTestIssuer(t, "test-secret", clock)

	id := Identity{UserID: 42, Email: "alice@example.com"}
	tok, err := iss.Issue(id)
	require.NoError(t, err)
	require.Equal(t, clock.now, tok.IssuedAt)
	require.Equal(t, clock.now.Add(time.Hour), tok.ExpiresAt)

	got, err := iss.Verify(tok.Value)
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	iss := newTestIssuer(t, "test-secret", clock)
	tok, err := iss.Issue(Identity{UserID: 1, Email: "a@b.c"})
	require.NoError(t, err)

	clock.now = tok.ExpiresAt.Add(-time.Second)
	_, err = iss.Verify(tok.Value)
	require.NoError(t, err)

	clock.now = tok.ExpiresAt
	_, err = iss.Verify(tok.Value)
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	clock.now = tok.ExpiresAt.Add(time.Minute)
	_, err = iss.Verify(tok.Value)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	clock := &testClock{now: time.Now()}
	tok, err := newTestIssuer(t, "secret-a", clock).Issue(Identity{UserID: 1, Email: "a@b.c"})
	require.NoError(t, err)

	_, err = newTestIssuer(t, "secret-b", clock).Verify(tok.Value)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsMalformedTokens(t *testing.T) {
	iss := newTestIssuer(t, "test-secret", &testClock{now: time.Now()})
	for _, raw := range []string{"", "   ", "abc", "a.b.c", strings.Repeat("x", 64)} {
		_, err := iss.Verify(raw)
		require.ErrorIs(t, err, ErrInvalidToken, "token %q", raw)
	}
}

func TestVerifyRejectsUnexpectedAlgorithm(t *testing.T) {
	now := time.Now()
	claims := Claims{
		UserID: 1,
		Email:  "a@b.c",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    defaultIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = newTestIssuer(t, "test-secret", &testClock{now: now}).Verify(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRequiresExpiry(t *testing.T) {
	claims := Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{Issuer: defaultIssuer}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = newTestIssuer(t, "test-secret", &testClock{now: time.Now()}).Verify(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	_, err := NewIssuer("  ")
	require.Error(t, err)
}
