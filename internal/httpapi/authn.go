package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"centra.io/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/refresh",
	"/v1/auth/password-reset/request",
	"/v1/auth/password-reset/confirm",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

// withAuth authenticates bearer tokens and attaches the resolved principal
// to the request context. Malformed or refresh-kind tokens are rejected
// uniformly as unauthorized.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		principal, err := a.authenticate(r, token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticate builds the request principal from a validated access token:
// look up the user behind the subject claim and aggregate access rights
// for the token's center scope.
func (a *API) authenticate(r *http.Request, token string) (auth.Principal, error) {
	if !a.codec.Validate(token) || a.codec.IsRefresh(token) {
		return auth.Principal{}, auth.ErrInvalidToken
	}
	username := a.codec.Username(token)
	user, err := a.store.FindUserByUsername(r.Context(), username)
	if err != nil {
		return auth.Principal{}, auth.ErrInvalidToken
	}
	centerID := a.codec.CenterID(token)
	rights := []string{}
	if centerID != nil {
		rights, err = a.access.AccessRightsFor(r.Context(), user.ID, centerID)
		if err != nil {
			return auth.Principal{}, err
		}
	}
	return auth.NewPrincipal(user, centerID, rights), nil
}

// ensureAccessRight writes a 401/403 and returns false when the request's
// principal lacks the given right.
func (a *API) ensureAccessRight(w http.ResponseWriter, r *http.Request, right string) bool {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return false
	}
	if !principal.HasAccessRight(right) {
		writeError(w, r, http.StatusForbidden, "insufficient access rights")
		return false
	}
	return true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
