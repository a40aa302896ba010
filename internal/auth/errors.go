package auth

import "smartlotto.org/internal/apperr"

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = apperr.New(apperr.KindUnauthorized, "auth.login", "invalid credentials")
	// ErrNoTenant is returned when the token's user is not bound to an enterprise.
	ErrNoTenant = apperr.New(apperr.KindUnauthorized, "auth.authenticate", "user has no enterprise")
)
