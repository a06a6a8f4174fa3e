package auth

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func sessionFixture(t *testing.T, store Store) (*Sessions, *countingIssuer) {
	t.Helper()
	issuer := &countingIssuer{codec: newTestCodec(t)}
	return NewSessions(store, issuer), issuer
}

func singleCenterStore(t *testing.T, password string) *stubStore {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	user := User{ID: "u1", Username: "alice", OrganizationID: "org-1", PasswordHash: hash}
	return &stubStore{
		findUserByUsername: func(ctx context.Context, username string) (User, error) {
			if username != user.Username {
				return User{}, ErrNotFound
			}
			return user, nil
		},
		getUser: func(ctx context.Context, id string) (User, error) {
			if id != user.ID {
				return User{}, ErrNotFound
			}
			return user, nil
		},
		assignmentsForUser: func(ctx context.Context, userID string) ([]RoleAssignment, error) {
			return []RoleAssignment{{UserID: userID, CenterID: "c1", RoleName: "Manager"}}, nil
		},
		accessRightsForUserCenter: func(ctx context.Context, userID, centerID string) ([]string, error) {
			return []string{"user.manage", "center.manage"}, nil
		},
	}
}

func TestLoginAutoSelectsUniqueCenter(t *testing.T) {
	sessions, issuer := sessionFixture(t, singleCenterStore(t, "s3cret"))

	session, err := sessions.Login(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if issuer.issueCalls != 1 {
		t.Fatalf("issuer called %d times, want 1", issuer.issueCalls)
	}
	if session.TokenType != "Bearer" {
		t.Fatalf("token type=%q, want Bearer", session.TokenType)
	}
	if session.User.CenterID == nil || *session.User.CenterID != "c1" {
		t.Fatalf("center=%v, want c1", session.User.CenterID)
	}
	if !reflect.DeepEqual(session.User.AccessRights, []string{"center.manage", "user.manage"}) {
		t.Fatalf("rights=%v", session.User.AccessRights)
	}
	if got := issuer.CenterID(session.AccessToken); got == nil || *got != "c1" {
		t.Fatalf("token center=%v, want c1", got)
	}
}

func TestLoginFailuresShortCircuitBeforeIssuer(t *testing.T) {
	store := singleCenterStore(t, "s3cret")
	cases := []struct {
		name     string
		username string
		password string
	}{
		{"empty username", "", "s3cret"},
		{"empty password", "alice", ""},
		{"unknown user", "ghost", "s3cret"},
		{"wrong password", "alice", "wrong"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sessions, issuer := sessionFixture(t, store)
			_, err := sessions.Login(context.Background(), tc.username, tc.password)
			if !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("err=%v, want ErrUnauthorized", err)
			}
			if issuer.issueCalls != 0 {
				t.Fatalf("issuer called %d times, want 0", issuer.issueCalls)
			}
		})
	}
}

func TestLoginMultipleCentersLeavesCenterUnset(t *testing.T) {
	store := singleCenterStore(t, "s3cret")
	store.assignmentsForUser = func(ctx context.Context, userID string) ([]RoleAssignment, error) {
		return []RoleAssignment{
			{UserID: userID, CenterID: "c1", RoleName: "Manager"},
			{UserID: userID, CenterID: "c2", RoleName: "Manager"},
		}, nil
	}
	var aggCalls int
	store.accessRightsForUserCenter = func(ctx context.Context, userID, centerID string) ([]string, error) {
		aggCalls++
		return nil, nil
	}
	sessions, _ := sessionFixture(t, store)

	session, err := sessions.Login(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if session.User.CenterID != nil {
		t.Fatalf("center=%v, want nil", session.User.CenterID)
	}
	if len(session.User.AccessRights) != 0 {
		t.Fatalf("rights=%v, want empty", session.User.AccessRights)
	}
	if aggCalls != 0 {
		t.Fatalf("aggregator hit the store %d times for nil center", aggCalls)
	}
}

func TestRefreshTokenCenterWins(t *testing.T) {
	store := singleCenterStore(t, "s3cret")
	sessions, issuer := sessionFixture(t, store)

	tokenCenter := "c1"
	pair, err := issuer.codec.IssuePair("alice", "org-1", &tokenCenter)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	requested := "c2"
	session, err := sessions.Refresh(context.Background(), pair.RefreshToken, &requested)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if session.User.CenterID == nil || *session.User.CenterID != "c1" {
		t.Fatalf("center=%v, want c1 from token", session.User.CenterID)
	}
}

func TestRefreshFallsBackToRequestedCenter(t *testing.T) {
	store := singleCenterStore(t, "s3cret")
	sessions, issuer := sessionFixture(t, store)

	pair, err := issuer.codec.IssuePair("alice", "org-1", nil)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	requested := "c2"
	session, err := sessions.Refresh(context.Background(), pair.RefreshToken, &requested)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if session.User.CenterID == nil || *session.User.CenterID != "c2" {
		t.Fatalf("center=%v, want c2 from request", session.User.CenterID)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	store := singleCenterStore(t, "s3cret")
	sessions, issuer := sessionFixture(t, store)

	pair, err := issuer.codec.IssuePair("alice", "org-1", nil)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	if _, err := sessions.Refresh(context.Background(), pair.AccessToken, nil); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err=%v, want ErrInvalidToken", err)
	}
	if _, err := sessions.Refresh(context.Background(), "garbage", nil); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err=%v, want ErrInvalidToken", err)
	}
}

func TestSetCenterValidatesMembership(t *testing.T) {
	store := singleCenterStore(t, "s3cret")
	sessions, _ := sessionFixture(t, store)
	principal := NewPrincipal(User{ID: "u1", Username: "alice"}, nil, nil)

	if _, err := sessions.SetCenter(context.Background(), principal, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err=%v, want ErrInvalidInput for empty center", err)
	}
	if _, err := sessions.SetCenter(context.Background(), principal, "c9"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err=%v, want ErrInvalidInput for foreign center", err)
	}

	session, err := sessions.SetCenter(context.Background(), principal, "c1")
	if err != nil {
		t.Fatalf("SetCenter: %v", err)
	}
	if session.User.CenterID == nil || *session.User.CenterID != "c1" {
		t.Fatalf("center=%v, want c1", session.User.CenterID)
	}
	if !reflect.DeepEqual(session.User.AccessRights, []string{"center.manage", "user.manage"}) {
		t.Fatalf("rights=%v", session.User.AccessRights)
	}
}

func TestCurrentUserWithoutCenterSkipsAggregator(t *testing.T) {
	store := singleCenterStore(t, "s3cret")
	var aggCalls int
	store.accessRightsForUserCenter = func(ctx context.Context, userID, centerID string) ([]string, error) {
		aggCalls++
		return []string{"user.manage"}, nil
	}
	sessions, _ := sessionFixture(t, store)

	principal := NewPrincipal(User{ID: "u1", Username: "alice"}, nil, nil)
	summary, err := sessions.CurrentUser(context.Background(), principal)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if len(summary.AccessRights) != 0 || summary.AccessRights == nil {
		t.Fatalf("rights=%v, want empty slice", summary.AccessRights)
	}
	if aggCalls != 0 {
		t.Fatalf("aggregator called %d times, want 0", aggCalls)
	}

	center := "c1"
	principal = NewPrincipal(User{ID: "u1", Username: "alice"}, &center, nil)
	summary, err = sessions.CurrentUser(context.Background(), principal)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if aggCalls != 1 {
		t.Fatalf("aggregator called %d times, want 1", aggCalls)
	}
	if !reflect.DeepEqual(summary.AccessRights, []string{"user.manage"}) {
		t.Fatalf("rights=%v", summary.AccessRights)
	}
}

func TestCurrentUserUnknownPrincipal(t *testing.T) {
	sessions, _ := sessionFixture(t, &stubStore{})
	principal := NewPrincipal(User{ID: "u1", Username: "ghost"}, nil, nil)
	if _, err := sessions.CurrentUser(context.Background(), principal); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err=%v, want ErrUnauthorized", err)
	}
}
