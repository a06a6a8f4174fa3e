package auth

import "context"

// Principal is the authenticated identity passed explicitly into session
// operations. It is built once per request from a validated access token;
// handlers never read ambient global state.
type Principal struct {
	User         User
	CenterID     *string
	AccessRights map[string]struct{}
}

// NewPrincipal constructs a principal with a preloaded access-right set.
func NewPrincipal(user User, centerID *string, rights []string) Principal {
	set := make(map[string]struct{}, len(rights))
	for _, r := range rights {
		set[r] = struct{}{}
	}
	return Principal{User: user, CenterID: centerID, AccessRights: set}
}

// HasAccessRight reports whether the principal holds the named right.
// Org admins implicitly hold every right.
func (p Principal) HasAccessRight(name string) bool {
	if p.User.OrgAdmin {
		return true
	}
	_, ok := p.AccessRights[name]
	return ok
}

type principalContextKey struct{}
type tokenContextKey struct{}

// ContextWithPrincipal attaches the authenticated principal to the context.
func ContextWithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, &principal)
}

// PrincipalFromContext extracts the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	v, ok := ctx.Value(principalContextKey{}).(*Principal)
	if !ok || v == nil {
		return Principal{}, false
	}
	return *v, true
}

// ContextWithToken stores the raw bearer token inside the context.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the bearer token if it was previously attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
