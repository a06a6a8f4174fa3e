package auth

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// TokenIssuer is the codec surface the session service depends on.
// *TokenCodec satisfies it; tests substitute counting stubs.
type TokenIssuer interface {
	IssuePair(username, orgID string, centerID *string) (TokenPair, error)
	Validate(token string) bool
	IsRefresh(token string) bool
	Username(token string) string
	OrgID(token string) string
	CenterID(token string) *string
}

// Session is the payload returned by every session-establishing operation.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresAt    time.Time   `json:"expires_at"`
	User         UserSummary `json:"user"`
}

// UserSummary is the user view embedded in session responses.
type UserSummary struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	FullName     string   `json:"full_name,omitempty"`
	Email        string   `json:"email,omitempty"`
	OrgID        string   `json:"org_id"`
	CenterID     *string  `json:"center_id"`
	OrgAdmin     bool     `json:"org_admin"`
	AccessRights []string `json:"access_rights"`
}

// Sessions orchestrates the token codec, center resolver and access-right
// aggregator into the session-establishing operations. Within each
// operation the order is fixed: resolve the center first, aggregate access
// rights for that center, then issue tokens embedding it. Later steps
// depend on earlier results and must not be reordered.
type Sessions struct {
	store   Store
	issuer  TokenIssuer
	centers *CenterResolver
	access  *AccessAggregator
}

// NewSessions constructs the session service.
func NewSessions(store Store, issuer TokenIssuer) *Sessions {
	return &Sessions{
		store:   store,
		issuer:  issuer,
		centers: NewCenterResolver(store),
		access:  NewAccessAggregator(store),
	}
}

// Login authenticates credentials and establishes a session. Any failure
// while locating the user or checking the password surfaces as
// ErrUnauthorized before the token issuer is touched.
func (s *Sessions) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, ErrUnauthorized
	}
	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		return Session{}, ErrUnauthorized
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return Session{}, ErrUnauthorized
	}

	centerID, err := s.centers.UniqueCenter(ctx, user.ID)
	if err != nil {
		return Session{}, err
	}
	rights, err := s.access.AccessRightsFor(ctx, user.ID, centerID)
	if err != nil {
		return Session{}, err
	}
	pair, err := s.issuer.IssuePair(user.Username, user.OrganizationID, centerID)
	if err != nil {
		return Session{}, err
	}
	return s.session(pair, user, centerID, rights), nil
}

// Refresh exchanges a refresh token for a fresh pair. The center embedded
// in the token wins; a request-supplied center is only a fallback when the
// token carries none.
func (s *Sessions) Refresh(ctx context.Context, refreshToken string, requestedCenterID *string) (Session, error) {
	if !s.issuer.Validate(refreshToken) || !s.issuer.IsRefresh(refreshToken) {
		return Session{}, ErrInvalidToken
	}
	username := s.issuer.Username(refreshToken)
	orgID := s.issuer.OrgID(refreshToken)
	centerID := s.issuer.CenterID(refreshToken)
	if centerID == nil {
		centerID = requestedCenterID
	}

	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		return Session{}, ErrUnauthorized
	}
	rights, err := s.access.AccessRightsFor(ctx, user.ID, centerID)
	if err != nil {
		return Session{}, err
	}
	pair, err := s.issuer.IssuePair(username, orgID, centerID)
	if err != nil {
		return Session{}, err
	}
	return s.session(pair, user, centerID, rights), nil
}

// SetCenter switches the session's active center. The requested center
// must be one the user actually holds roles in.
func (s *Sessions) SetCenter(ctx context.Context, principal Principal, centerID string) (Session, error) {
	centerID = strings.TrimSpace(centerID)
	if centerID == "" {
		return Session{}, fmt.Errorf("%w: center_id is required", ErrInvalidInput)
	}
	held, err := s.centers.CentersForUser(ctx, principal.User.ID)
	if err != nil {
		return Session{}, err
	}
	if !contains(held, centerID) {
		return Session{}, fmt.Errorf("%w: center %s is not one of the user's centers", ErrInvalidInput, centerID)
	}

	rights, err := s.access.AccessRightsFor(ctx, principal.User.ID, &centerID)
	if err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUser(ctx, principal.User.ID)
	if err != nil {
		return Session{}, err
	}
	pair, err := s.issuer.IssuePair(user.Username, user.OrganizationID, &centerID)
	if err != nil {
		return Session{}, err
	}
	return s.session(pair, user, &centerID, rights), nil
}

// CurrentUser returns the authenticated user's summary. Principals without
// a resolved center get an empty right set without an aggregator lookup.
func (s *Sessions) CurrentUser(ctx context.Context, principal Principal) (UserSummary, error) {
	user, err := s.store.FindUserByUsername(ctx, principal.User.Username)
	if err != nil {
		return UserSummary{}, ErrUnauthorized
	}
	rights := []string{}
	if principal.CenterID != nil {
		rights, err = s.access.AccessRightsFor(ctx, user.ID, principal.CenterID)
		if err != nil {
			return UserSummary{}, err
		}
	}
	return summary(user, principal.CenterID, rights), nil
}

// Logout is a stateless acknowledgement. Tokens are invalidated only by
// expiry; there is no server-side revocation list.
func (s *Sessions) Logout() string {
	return "logged out"
}

// RequestPasswordReset accepts the request and acknowledges it. Delivery
// of reset material is outside this service.
func (s *Sessions) RequestPasswordReset(ctx context.Context, username string) string {
	return "password reset requested"
}

// ConfirmPasswordReset acknowledges a reset confirmation.
func (s *Sessions) ConfirmPasswordReset(ctx context.Context, token, newPassword string) string {
	return "password reset confirmed"
}

func (s *Sessions) session(pair TokenPair, user User, centerID *string, rights []string) Session {
	return Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    pair.AccessExpiresAt,
		User:         summary(user, centerID, rights),
	}
}

func summary(user User, centerID *string, rights []string) UserSummary {
	if rights == nil {
		rights = []string{}
	}
	return UserSummary{
		ID:           user.ID,
		Username:     user.Username,
		FullName:     user.FullName,
		Email:        user.Email,
		OrgID:        user.OrganizationID,
		CenterID:     centerID,
		OrgAdmin:     user.OrgAdmin,
		AccessRights: rights,
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
