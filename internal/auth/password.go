package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"smartlotto.org/internal/apperr"
)

// Hasher produces and checks bcrypt digests. The salt lives inside the digest.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using cost, clamped to bcrypt's supported range.
// A zero cost selects bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	switch {
	case cost == 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Hash returns a salted digest of plain.
func (h *Hasher) Hash(plain string) (string, error) {
	const op = "auth.hash"
	if plain == "" {
		return "", apperr.BadRequest(op, "password is empty")
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", apperr.BadRequest(op, "password exceeds 72 bytes")
		}
		return "", apperr.Wrap(apperr.KindCrypto, op, err)
	}
	return string(digest), nil
}

// Verify reports whether plain matches digest. A wrong password is (false, nil);
// a digest that cannot be parsed is (false, CryptoFailure).
func (h *Hasher) Verify(plain, digest string) (bool, error) {
	const op = "auth.verify_password"
	if digest == "" {
		return false, apperr.New(apperr.KindCrypto, op, "password hash is empty")
	}
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, apperr.Wrap(apperr.KindCrypto, op, err)
	}
}
