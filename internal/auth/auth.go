package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"smartlotto.org/internal/apperr"
)

const (
	// TokenTTL is the fixed lifetime of an access token.
	TokenTTL      = time.Hour
	defaultIssuer = "smartlotto"
)

var errMissingSecret = errors.New("auth secret is not configured")

// ErrInvalidToken indicates the token failed validation.
var ErrInvalidToken = apperr.New(apperr.KindUnauthorized, "auth.verify_token", "invalid token")

// Identity is what a token vouches for.
type Identity struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"user_email"`
}

// Token is a signed access token and its validity window.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Claims represents the JWT payload.
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"user_email"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 access tokens with a secret fixed at construction.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithIssuer overrides the iss claim.
func WithIssuer(name string) IssuerOption {
	return func(i *Issuer) {
		if name = strings.TrimSpace(name); name != "" {
			i.issuer = name
		}
	}
}

// WithTokenClock overrides the time source (useful for tests).
func WithTokenClock(fn func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if fn != nil {
			i.now = fn
		}
	}
}

// NewIssuer builds an Issuer. The secret is copied; later changes to the
// configuration do not affect issued or verified tokens.
func NewIssuer(secret string, opts ...IssuerOption) (*Issuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errMissingSecret
	}
	i := &Issuer{
		secret: []byte(secret),
		issuer: defaultIssuer,
		ttl:    TokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue signs a token for id that expires TokenTTL after now.
func (i *Issuer) Issue(id Identity) (Token, error) {
	const op = "auth.issue_token"
	if id.UserID <= 0 {
		return Token{}, apperr.BadRequest(op, "user id is required")
	}
	// JWT timestamps have second precision.
	now := i.now().UTC().Truncate(time.Second)
	exp := now.Add(i.ttl)
	claims := Claims{
		UserID: id.UserID,
		Email:  id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   fmt.Sprint(id.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Token{}, apperr.Wrap(apperr.KindCrypto, op, fmt.Errorf("sign token: %w", err))
	}
	return Token{Value: signed, IssuedAt: now, ExpiresAt: exp}, nil
}

// Verify checks signature, issuer and expiry and returns the embedded identity.
// Every rejection is ErrInvalidToken.
func (i *Issuer) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrInvalidToken
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.now),
	)
	var claims Claims
	parsed, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.UserID <= 0 {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.UserID, Email: claims.Email}, nil
}
