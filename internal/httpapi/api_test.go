package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"centra.io/internal/auth"
	"centra.io/internal/store/memory"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

type fixture struct {
	api    *apiClient
	store  *memory.Store
	org    auth.Organization
	center auth.Center
}

func newTestAPI(t *testing.T, store *memory.Store) *apiClient {
	t.Helper()

	codec, err := auth.NewTokenCodec("test-secret")
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	api := New(ReadyProbe{}, "test", store, codec)
	api.rateBurst = 100
	api.ratePerSec = 100

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

// newFixture seeds one organization with a single center and a Manager
// role holding the full right set, plus the user "alice" assigned there.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	if _, err := store.CreateOrganizationType(ctx, auth.OrganizationType{Name: "Clinic"}); err != nil {
		t.Fatalf("seed org type: %v", err)
	}
	org, err := store.CreateOrganization(ctx, auth.Organization{Name: "North Clinic", TypeName: "Clinic"})
	if err != nil {
		t.Fatalf("seed organization: %v", err)
	}
	center, err := store.CreateCenter(ctx, auth.Center{OrganizationID: org.ID, Name: "Main"})
	if err != nil {
		t.Fatalf("seed center: %v", err)
	}
	if _, err := store.CreateRole(ctx, auth.Role{
		OrganizationID: org.ID,
		Name:           "Manager",
		AccessRights:   DeclaredAccessRights(),
	}); err != nil {
		t.Fatalf("seed role: %v", err)
	}
	f := &fixture{store: store, org: org, center: center}
	f.addUser(t, "alice", "s3cret", "Manager", center.ID)
	f.api = newTestAPI(t, store)
	return f
}

func (f *fixture) addUser(t *testing.T, username, password, role, centerID string) auth.User {
	t.Helper()
	ctx := context.Background()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	user, err := f.store.CreateUser(ctx, auth.User{
		OrganizationID: f.org.ID,
		Username:       username,
		PasswordHash:   hash,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if role != "" {
		if _, err := f.store.CreateRoleAssignment(ctx, auth.RoleAssignment{
			UserID:         user.ID,
			OrganizationID: f.org.ID,
			CenterID:       centerID,
			RoleName:       role,
		}); err != nil {
			t.Fatalf("seed assignment: %v", err)
		}
	}
	return user
}

func (f *fixture) login(t *testing.T, username, password string) auth.Session {
	t.Helper()
	resp := f.api.post("/v1/auth/login", map[string]any{
		"username": username,
		"password": password,
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status=%d", resp.StatusCode)
	}
	var session auth.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return session
}

func bearerHeader(session auth.Session) map[string]string {
	return map[string]string{"Authorization": "Bearer " + session.AccessToken}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	resp := f.api.get("/healthz", nil, nil)
	var body map[string]any
	decodeBody(t, resp, &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if body["status"] != "ok" || body["service"] != "centra-api" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestLoginEmbedsUniqueCenterAndRights(t *testing.T) {
	f := newFixture(t)
	session := f.login(t, "alice", "s3cret")

	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if session.TokenType != "Bearer" {
		t.Fatalf("token_type=%q", session.TokenType)
	}
	if session.User.CenterID == nil || *session.User.CenterID != f.center.ID {
		t.Fatalf("center=%v, want %s", session.User.CenterID, f.center.ID)
	}
	if len(session.User.AccessRights) == 0 {
		t.Fatal("expected aggregated access rights")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	for _, body := range []map[string]any{
		{"username": "alice", "password": "wrong"},
		{"username": "ghost", "password": "s3cret"},
		{"username": "", "password": ""},
	} {
		resp := f.api.post("/v1/auth/login", body, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("body %v: status=%d, want 401", body, resp.StatusCode)
		}
	}
}

func TestLoginMethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	resp := f.api.get("/v1/auth/login", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d, want 405", resp.StatusCode)
	}
	if resp.Header.Get("Allow") != http.MethodPost {
		t.Fatalf("Allow=%q", resp.Header.Get("Allow"))
	}
}

func TestLoginRejectsUnknownFields(t *testing.T) {
	f := newFixture(t)
	resp := f.api.post("/v1/auth/login", map[string]any{
		"username": "alice",
		"password": "s3cret",
		"extra":    true,
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", resp.StatusCode)
	}
}

func TestCurrentUser(t *testing.T) {
	f := newFixture(t)
	session := f.login(t, "alice", "s3cret")

	resp := f.api.get("/v1/auth/me", nil, bearerHeader(session))
	var me auth.UserSummary
	decodeBody(t, resp, &me)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if me.Username != "alice" {
		t.Fatalf("username=%q", me.Username)
	}
	if me.CenterID == nil || *me.CenterID != f.center.ID {
		t.Fatalf("center=%v", me.CenterID)
	}
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	f := newFixture(t)

	resp := f.api.get("/v1/organizations", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", resp.StatusCode)
	}

	resp = f.api.get("/v1/organizations", nil, map[string]string{"Authorization": "Bearer garbage"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401 for garbage token", resp.StatusCode)
	}
}

func TestRefreshTokenFlow(t *testing.T) {
	f := newFixture(t)
	session := f.login(t, "alice", "s3cret")

	resp := f.api.post("/v1/auth/refresh", map[string]any{
		"refresh_token": session.RefreshToken,
	}, nil)
	var refreshed auth.Session
	decodeBody(t, resp, &refreshed)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status=%d", resp.StatusCode)
	}
	if refreshed.User.CenterID == nil || *refreshed.User.CenterID != f.center.ID {
		t.Fatalf("center=%v, want carried over", refreshed.User.CenterID)
	}

	me := f.api.get("/v1/auth/me", nil, bearerHeader(refreshed))
	me.Body.Close()
	if me.StatusCode != http.StatusOK {
		t.Fatalf("me with refreshed token status=%d", me.StatusCode)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	f := newFixture(t)
	session := f.login(t, "alice", "s3cret")

	resp := f.api.post("/v1/auth/refresh", map[string]any{
		"refresh_token": session.AccessToken,
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", resp.StatusCode)
	}
}

func TestRefreshTokenRejectedAsBearer(t *testing.T) {
	f := newFixture(t)
	session := f.login(t, "alice", "s3cret")

	resp := f.api.get("/v1/auth/me", nil, map[string]string{
		"Authorization": "Bearer " + session.RefreshToken,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401 for refresh token as bearer", resp.StatusCode)
	}
}

func TestSetCenter(t *testing.T) {
	f := newFixture(t)
	second, err := f.store.CreateCenter(context.Background(), auth.Center{OrganizationID: f.org.ID, Name: "Annex"})
	if err != nil {
		t.Fatalf("seed second center: %v", err)
	}
	if _, err := f.store.CreateRoleAssignment(context.Background(), auth.RoleAssignment{
		UserID:         mustUserID(t, f, "alice"),
		OrganizationID: f.org.ID,
		CenterID:       second.ID,
		RoleName:       "Manager",
	}); err != nil {
		t.Fatalf("seed second assignment: %v", err)
	}

	// Two centers now, so login leaves the scope unresolved.
	session := f.login(t, "alice", "s3cret")
	if session.User.CenterID != nil {
		t.Fatalf("center=%v, want nil before selection", session.User.CenterID)
	}

	resp := f.api.post("/v1/auth/set-center", map[string]any{"center_id": "bogus"}, bearerHeader(session))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("foreign center status=%d, want 400", resp.StatusCode)
	}

	resp = f.api.post("/v1/auth/set-center", map[string]any{"center_id": second.ID}, bearerHeader(session))
	var scoped auth.Session
	decodeBody(t, resp, &scoped)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set-center status=%d", resp.StatusCode)
	}
	if scoped.User.CenterID == nil || *scoped.User.CenterID != second.ID {
		t.Fatalf("center=%v, want %s", scoped.User.CenterID, second.ID)
	}
	if len(scoped.User.AccessRights) == 0 {
		t.Fatal("expected rights in the selected center")
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	session := f.login(t, "alice", "s3cret")

	resp := f.api.post("/v1/auth/logout", nil, bearerHeader(session))
	var body map[string]any
	decodeBody(t, resp, &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if body["message"] != "logged out" {
		t.Fatalf("body=%v", body)
	}
}

func TestPasswordResetAcknowledges(t *testing.T) {
	f := newFixture(t)

	resp := f.api.post("/v1/auth/password-reset/request", map[string]any{"username": "ghost"}, nil)
	var body map[string]any
	decodeBody(t, resp, &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if body["message"] == "" {
		t.Fatal("expected acknowledgement message")
	}
}

func mustUserID(t *testing.T, f *fixture, username string) string {
	t.Helper()
	user, err := f.store.FindUserByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("FindUserByUsername: %v", err)
	}
	return user.ID
}
