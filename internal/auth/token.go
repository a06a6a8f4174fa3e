package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultAccessTTL  = 24 * time.Hour
	defaultRefreshTTL = 7 * 24 * time.Hour

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims carries identity and tenant scope inside signed tokens.
type Claims struct {
	OrgID     string  `json:"org_id"`
	CenterID  *string `json:"center_id,omitempty"`
	TokenType string  `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair bundles a freshly issued access/refresh token pair.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// TokenCodec issues and parses signed, self-contained session tokens.
// Parsing failures degrade to zero values; they never propagate as errors
// to callers.
type TokenCodec struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	directory  UserDirectory
}

// UserDirectory is the minimal lookup the codec needs for username-only
// convenience issuance.
type UserDirectory interface {
	FindUserByUsername(ctx context.Context, username string) (User, error)
	AssignmentsForUser(ctx context.Context, userID string) ([]RoleAssignment, error)
}

// CodecOption configures TokenCodec behavior.
type CodecOption func(*TokenCodec) error

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) CodecOption {
	return func(c *TokenCodec) error {
		if ttl > 0 {
			c.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) CodecOption {
	return func(c *TokenCodec) error {
		if ttl > 0 {
			c.refreshTTL = ttl
		}
		return nil
	}
}

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) CodecOption {
	return func(c *TokenCodec) error {
		c.issuer = strings.TrimSpace(issuer)
		return nil
	}
}

// WithDirectory enables IssuePairForUsername.
func WithDirectory(dir UserDirectory) CodecOption {
	return func(c *TokenCodec) error {
		c.directory = dir
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) CodecOption {
	return func(c *TokenCodec) error {
		if fn != nil {
			c.now = fn
		}
		return nil
	}
}

// NewTokenCodec constructs a codec signing with HS256.
func NewTokenCodec(secret string, opts ...CodecOption) (*TokenCodec, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	c := &TokenCodec{
		secret:     []byte(secret),
		issuer:     "centra",
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// AccessTTL reports the configured access token lifetime.
func (c *TokenCodec) AccessTTL() time.Duration { return c.accessTTL }

// IssueAccessToken signs a short-lived access token for the given subject.
func (c *TokenCodec) IssueAccessToken(username, orgID string, centerID *string) (string, error) {
	return c.issue(username, orgID, centerID, tokenTypeAccess, c.accessTTL)
}

// IssueRefreshToken signs a long-lived token marked with the refresh kind.
func (c *TokenCodec) IssueRefreshToken(username, orgID string, centerID *string) (string, error) {
	return c.issue(username, orgID, centerID, tokenTypeRefresh, c.refreshTTL)
}

func (c *TokenCodec) issue(username, orgID string, centerID *string, kind string, ttl time.Duration) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	now := c.now().UTC()
	claims := Claims{
		OrgID:     orgID,
		CenterID:  centerID,
		TokenType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// IssuePairForUsername issues an access/refresh pair for a known username.
// When the user holds roles in exactly one distinct center that center is
// embedded; otherwise the pair carries a nil center id and a center must be
// chosen later through the session API. Unknown usernames fail fast.
func (c *TokenCodec) IssuePairForUsername(ctx context.Context, username string) (TokenPair, error) {
	if c.directory == nil {
		return TokenPair{}, errors.New("auth: codec has no user directory")
	}
	user, err := c.directory.FindUserByUsername(ctx, username)
	if err != nil {
		return TokenPair{}, fmt.Errorf("user %q not found: %w", username, err)
	}
	assignments, err := c.directory.AssignmentsForUser(ctx, user.ID)
	if err != nil {
		return TokenPair{}, err
	}
	centerID := uniqueCenter(assignments)
	return c.IssuePair(user.Username, user.OrganizationID, centerID)
}

// IssuePair issues both kinds of token for an already resolved scope.
func (c *TokenCodec) IssuePair(username, orgID string, centerID *string) (TokenPair, error) {
	access, err := c.IssueAccessToken(username, orgID, centerID)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := c.IssueRefreshToken(username, orgID, centerID)
	if err != nil {
		return TokenPair{}, err
	}
	exp := c.ExpiresAt(access)
	pair := TokenPair{AccessToken: access, RefreshToken: refresh}
	if exp != nil {
		pair.AccessExpiresAt = *exp
	}
	return pair, nil
}

func (c *TokenCodec) parse(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now), jwt.WithIssuer(c.issuer))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Validate reports whether the token carries a valid signature and has not
// expired. Malformed input is simply invalid, never an error.
func (c *TokenCodec) Validate(token string) bool {
	_, err := c.parse(token)
	return err == nil
}

// Username returns the subject claim, or "" for unparseable tokens.
func (c *TokenCodec) Username(token string) string {
	claims, err := c.parse(token)
	if err != nil {
		return ""
	}
	return claims.Subject
}

// OrgID returns the organization claim, or "" for unparseable tokens.
func (c *TokenCodec) OrgID(token string) string {
	claims, err := c.parse(token)
	if err != nil {
		return ""
	}
	return claims.OrgID
}

// CenterID returns the center claim; nil when absent or unparseable.
func (c *TokenCodec) CenterID(token string) *string {
	claims, err := c.parse(token)
	if err != nil {
		return nil
	}
	return claims.CenterID
}

// ExpiresAt returns the expiry, or nil for unparseable tokens.
func (c *TokenCodec) ExpiresAt(token string) *time.Time {
	claims, err := c.parse(token)
	if err != nil || claims.ExpiresAt == nil {
		return nil
	}
	t := claims.ExpiresAt.Time
	return &t
}

// IsRefresh reports whether the token carries the refresh kind claim.
func (c *TokenCodec) IsRefresh(token string) bool {
	claims, err := c.parse(token)
	if err != nil {
		return false
	}
	return claims.TokenType == tokenTypeRefresh
}
