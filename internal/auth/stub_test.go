package auth

import "context"

// stubStore implements Store through optional func fields. Methods without
// a configured func return not-found so tests only wire what they use.
type stubStore struct {
	findUserByUsername        func(ctx context.Context, username string) (User, error)
	getUser                   func(ctx context.Context, id string) (User, error)
	assignmentsForUser        func(ctx context.Context, userID string) ([]RoleAssignment, error)
	accessRightsForUserCenter func(ctx context.Context, userID, centerID string) ([]string, error)
}

func (s *stubStore) InTx(ctx context.Context, fn func(Store) error) error { return fn(s) }

func (s *stubStore) CreateOrganization(ctx context.Context, org Organization) (Organization, error) {
	return Organization{}, ErrNotFound
}
func (s *stubStore) GetOrganization(ctx context.Context, id string) (Organization, error) {
	return Organization{}, ErrNotFound
}
func (s *stubStore) ListOrganizations(ctx context.Context) ([]Organization, error) { return nil, nil }
func (s *stubStore) UpdateOrganization(ctx context.Context, id string, upd OrganizationUpdate) (Organization, error) {
	return Organization{}, ErrNotFound
}
func (s *stubStore) DeleteOrganization(ctx context.Context, id string) error { return ErrNotFound }
func (s *stubStore) CountOrganizations(ctx context.Context) (int, error)    { return 0, nil }

func (s *stubStore) CreateOrganizationType(ctx context.Context, ot OrganizationType) (OrganizationType, error) {
	return OrganizationType{}, ErrNotFound
}
func (s *stubStore) GetOrganizationType(ctx context.Context, name string) (OrganizationType, error) {
	return OrganizationType{}, ErrNotFound
}
func (s *stubStore) ListOrganizationTypes(ctx context.Context) ([]OrganizationType, error) {
	return nil, nil
}

func (s *stubStore) CreateCenter(ctx context.Context, center Center) (Center, error) {
	return Center{}, ErrNotFound
}
func (s *stubStore) GetCenter(ctx context.Context, id string) (Center, error) {
	return Center{}, ErrNotFound
}
func (s *stubStore) ListCenters(ctx context.Context, organizationID string) ([]Center, error) {
	return nil, nil
}
func (s *stubStore) UpdateCenter(ctx context.Context, id string, upd CenterUpdate) (Center, error) {
	return Center{}, ErrNotFound
}
func (s *stubStore) DeleteCenter(ctx context.Context, id string) error { return ErrNotFound }

func (s *stubStore) CreateUser(ctx context.Context, user User) (User, error) {
	return User{}, ErrNotFound
}
func (s *stubStore) GetUser(ctx context.Context, id string) (User, error) {
	if s.getUser != nil {
		return s.getUser(ctx, id)
	}
	return User{}, ErrNotFound
}
func (s *stubStore) FindUserByUsername(ctx context.Context, username string) (User, error) {
	if s.findUserByUsername != nil {
		return s.findUserByUsername(ctx, username)
	}
	return User{}, ErrNotFound
}
func (s *stubStore) ListUsers(ctx context.Context, organizationID string) ([]User, error) {
	return nil, nil
}
func (s *stubStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	return ErrNotFound
}
func (s *stubStore) DeleteUser(ctx context.Context, id string) error { return ErrNotFound }

func (s *stubStore) CreateRole(ctx context.Context, role Role) (Role, error) {
	return Role{}, ErrNotFound
}
func (s *stubStore) GetRole(ctx context.Context, key RoleKey) (Role, error) {
	return Role{}, ErrNotFound
}
func (s *stubStore) ListRoles(ctx context.Context, organizationID string) ([]Role, error) {
	return nil, nil
}
func (s *stubStore) SetRoleAccessRights(ctx context.Context, key RoleKey, rights []string) error {
	return ErrNotFound
}
func (s *stubStore) DeleteRole(ctx context.Context, key RoleKey) error { return ErrNotFound }

func (s *stubStore) CreateAccessRight(ctx context.Context, name string) error { return nil }
func (s *stubStore) ListAccessRights(ctx context.Context) ([]AccessRight, error) {
	return nil, nil
}

func (s *stubStore) CreateRoleAssignment(ctx context.Context, a RoleAssignment) (RoleAssignment, error) {
	return RoleAssignment{}, ErrNotFound
}
func (s *stubStore) RemoveRoleAssignment(ctx context.Context, a RoleAssignment) error {
	return ErrNotFound
}
func (s *stubStore) AssignmentsForUser(ctx context.Context, userID string) ([]RoleAssignment, error) {
	if s.assignmentsForUser != nil {
		return s.assignmentsForUser(ctx, userID)
	}
	return nil, nil
}

func (s *stubStore) AccessRightsForUserCenter(ctx context.Context, userID, centerID string) ([]string, error) {
	if s.accessRightsForUserCenter != nil {
		return s.accessRightsForUserCenter(ctx, userID, centerID)
	}
	return nil, nil
}

// countingIssuer wraps a real codec and records IssuePair invocations.
type countingIssuer struct {
	codec      *TokenCodec
	issueCalls int
}

func (c *countingIssuer) IssuePair(username, orgID string, centerID *string) (TokenPair, error) {
	c.issueCalls++
	return c.codec.IssuePair(username, orgID, centerID)
}
func (c *countingIssuer) Validate(token string) bool    { return c.codec.Validate(token) }
func (c *countingIssuer) IsRefresh(token string) bool   { return c.codec.IsRefresh(token) }
func (c *countingIssuer) Username(token string) string  { return c.codec.Username(token) }
func (c *countingIssuer) OrgID(token string) string     { return c.codec.OrgID(token) }
func (c *countingIssuer) CenterID(token string) *string { return c.codec.CenterID(token) }
