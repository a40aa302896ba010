package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"smartlotto.org/internal/apperr"
	"smartlotto.org/internal/audit"
	"smartlotto.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var errMissingPrincipal = apperr.Unauthorized("httpapi.principal", "authentication required")

// withAuth resolves the bearer token into a tenant-bound principal.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="smartlotto"`)
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		principal, err := a.auth.Authenticate(r.Context(), token)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindUnauthorized {
				w.Header().Set("WWW-Authenticate", `Bearer realm="smartlotto", error="invalid_token"`)
				writeError(w, r, http.StatusUnauthorized, publicMessage(err))
			} else {
				writeAppError(w, r, err)
			}
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFrom(r *http.Request) (audit.Actor, error) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return audit.Actor{}, errMissingPrincipal
	}
	return p.Actor(), nil
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
