// Package client is a typed Go client for the Centra HTTP API. It is used
// by the smoke binary and by integration-style tests; services embedding
// Centra can use it instead of hand-rolling request plumbing.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"centra.io/internal/auth"
)

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("centra: %s (status %d, request %s)", e.Message, e.StatusCode, e.RequestID)
	}
	return fmt.Sprintf("centra: %s (status %d)", e.Message, e.StatusCode)
}

// Client talks to a Centra API server. The zero value is not usable; use New.
type Client struct {
	baseURL string
	http    *http.Client

	accessToken  string
	refreshToken string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithToken seeds the client with an existing access token.
func WithToken(token string) Option {
	return func(c *Client) { c.accessToken = token }
}

// New creates a client for the given base URL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AccessToken returns the token established by Login/Refresh/SetCenter.
func (c *Client) AccessToken() string { return c.accessToken }

// Login authenticates and stores the issued token pair on the client.
func (c *Client) Login(ctx context.Context, username, password string) (auth.Session, error) {
	var session auth.Session
	err := c.do(ctx, http.MethodPost, "/v1/auth/login", map[string]any{
		"username": username,
		"password": password,
	}, &session)
	if err != nil {
		return auth.Session{}, err
	}
	c.adopt(session)
	return session, nil
}

// Refresh exchanges the stored refresh token for a fresh pair.
func (c *Client) Refresh(ctx context.Context, centerID *string) (auth.Session, error) {
	var session auth.Session
	err := c.do(ctx, http.MethodPost, "/v1/auth/refresh", map[string]any{
		"refresh_token": c.refreshToken,
		"center_id":     centerID,
	}, &session)
	if err != nil {
		return auth.Session{}, err
	}
	c.adopt(session)
	return session, nil
}

// SetCenter switches the session's active center.
func (c *Client) SetCenter(ctx context.Context, centerID string) (auth.Session, error) {
	var session auth.Session
	err := c.do(ctx, http.MethodPost, "/v1/auth/set-center", map[string]any{
		"center_id": centerID,
	}, &session)
	if err != nil {
		return auth.Session{}, err
	}
	c.adopt(session)
	return session, nil
}

// Me returns the authenticated user's summary.
func (c *Client) Me(ctx context.Context) (auth.UserSummary, error) {
	var me auth.UserSummary
	err := c.do(ctx, http.MethodGet, "/v1/auth/me", nil, &me)
	return me, err
}

func (c *Client) CreateOrganizationType(ctx context.Context, ot auth.OrganizationType) (auth.OrganizationType, error) {
	var out auth.OrganizationType
	err := c.do(ctx, http.MethodPost, "/v1/org-types", map[string]any{
		"name":          ot.Name,
		"access_rights": ot.AccessRights,
		"config":        ot.Config,
	}, &out)
	return out, err
}

func (c *Client) CreateOrganization(ctx context.Context, org auth.Organization) (auth.Organization, error) {
	var out auth.Organization
	err := c.do(ctx, http.MethodPost, "/v1/organizations", map[string]any{
		"name":      org.Name,
		"type_name": org.TypeName,
		"config":    org.Config,
	}, &out)
	return out, err
}

func (c *Client) GetOrganization(ctx context.Context, id string) (auth.Organization, error) {
	var out auth.Organization
	err := c.do(ctx, http.MethodGet, "/v1/organizations/"+id, nil, &out)
	return out, err
}

func (c *Client) ListOrganizations(ctx context.Context) ([]auth.Organization, error) {
	var out struct {
		Organizations []auth.Organization `json:"organizations"`
	}
	err := c.do(ctx, http.MethodGet, "/v1/organizations", nil, &out)
	return out.Organizations, err
}

func (c *Client) CreateCenter(ctx context.Context, orgID string, center auth.Center) (auth.Center, error) {
	var out auth.Center
	err := c.do(ctx, http.MethodPost, "/v1/organizations/"+orgID+"/centers", map[string]any{
		"name":    center.Name,
		"address": center.Address,
		"phone":   center.Phone,
	}, &out)
	return out, err
}

func (c *Client) CreateUser(ctx context.Context, orgID string, user auth.User, password string) (auth.User, error) {
	var out auth.User
	err := c.do(ctx, http.MethodPost, "/v1/organizations/"+orgID+"/users", map[string]any{
		"username":  user.Username,
		"email":     user.Email,
		"full_name": user.FullName,
		"password":  password,
		"org_admin": user.OrgAdmin,
	}, &out)
	return out, err
}

func (c *Client) CreateRole(ctx context.Context, orgID string, role auth.Role) (auth.Role, error) {
	var out auth.Role
	err := c.do(ctx, http.MethodPost, "/v1/organizations/"+orgID+"/roles", map[string]any{
		"name":          role.Name,
		"access_rights": role.AccessRights,
	}, &out)
	return out, err
}

func (c *Client) AssignRole(ctx context.Context, a auth.RoleAssignment) (auth.RoleAssignment, error) {
	var out auth.RoleAssignment
	err := c.do(ctx, http.MethodPost, "/v1/users/"+a.UserID+"/assignments", map[string]any{
		"organization_id": a.OrganizationID,
		"center_id":       a.CenterID,
		"role_name":       a.RoleName,
	}, &out)
	return out, err
}

func (c *Client) ListAccessRights(ctx context.Context) ([]auth.AccessRight, error) {
	var out struct {
		AccessRights []auth.AccessRight `json:"access_rights"`
	}
	err := c.do(ctx, http.MethodGet, "/v1/access-rights", nil, &out)
	return out.AccessRights, err
}

// Helpers -----------------------------------------------------------------

func (c *Client) adopt(session auth.Session) {
	c.accessToken = session.AccessToken
	if session.RefreshToken != "" {
		c.refreshToken = session.RefreshToken
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, dst any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if dst == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	var envelope struct {
		Error     string `json:"error"`
		RequestID string `json:"request_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error != "" {
		apiErr.Message = envelope.Error
		apiErr.RequestID = envelope.RequestID
	}
	return apiErr
}

// WithTimeout returns a context with a default timeout useful for CLI tools.
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(parent, d)
}
