// Package memory provides an in-process implementation of auth.Store used
// by tests and local development. Mutations are guarded by a single mutex;
// InTx runs against the same state without rollback support.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"centra.io/internal/auth"
	"centra.io/internal/ids"
)

type Store struct {
	mu          sync.RWMutex
	orgs        map[string]auth.Organization
	orgTypes    map[string]auth.OrganizationType
	centers     map[string]auth.Center
	users       map[string]auth.User
	roles       map[auth.RoleKey]auth.Role
	rights      map[string]auth.AccessRight
	assignments map[assignmentKey]auth.RoleAssignment
	now         func() time.Time
}

type assignmentKey struct {
	UserID   string
	OrgID    string
	CenterID string
	RoleName string
}

var _ auth.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		orgs:        make(map[string]auth.Organization),
		orgTypes:    make(map[string]auth.OrganizationType),
		centers:     make(map[string]auth.Center),
		users:       make(map[string]auth.User),
		roles:       make(map[auth.RoleKey]auth.Role),
		rights:      make(map[string]auth.AccessRight),
		assignments: make(map[assignmentKey]auth.RoleAssignment),
		now:         time.Now,
	}
}

func (s *Store) InTx(ctx context.Context, fn func(auth.Store) error) error {
	return fn(s)
}

func (s *Store) CreateOrganization(ctx context.Context, org auth.Organization) (auth.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if org.ID == "" {
		org.ID = ids.New()
	}
	if _, ok := s.orgs[org.ID]; ok {
		return auth.Organization{}, auth.ErrConflict
	}
	for _, existing := range s.orgs {
		if existing.Name == org.Name {
			return auth.Organization{}, auth.ErrConflict
		}
	}
	org.CreatedAt = s.now().UTC()
	org.UpdatedAt = org.CreatedAt
	s.orgs[org.ID] = org
	return org, nil
}

func (s *Store) GetOrganization(ctx context.Context, id string) (auth.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[id]
	if !ok {
		return auth.Organization{}, auth.ErrNotFound
	}
	return org, nil
}

func (s *Store) ListOrganizations(ctx context.Context) ([]auth.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]auth.Organization, 0, len(s.orgs))
	for _, org := range s.orgs {
		out = append(out, org)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateOrganization(ctx context.Context, id string, upd auth.OrganizationUpdate) (auth.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[id]
	if !ok {
		return auth.Organization{}, auth.ErrNotFound
	}
	if upd.Name != nil {
		org.Name = *upd.Name
	}
	if upd.TypeName != nil {
		org.TypeName = *upd.TypeName
	}
	if upd.Config != nil {
		org.Config = upd.Config
	}
	org.UpdatedAt = s.now().UTC()
	s.orgs[id] = org
	return org, nil
}

func (s *Store) DeleteOrganization(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[id]; !ok {
		return auth.ErrNotFound
	}
	delete(s.orgs, id)
	return nil
}

func (s *Store) CountOrganizations(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orgs), nil
}

func (s *Store) CreateOrganizationType(ctx context.Context, ot auth.OrganizationType) (auth.OrganizationType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgTypes[ot.Name]; ok {
		return auth.OrganizationType{}, auth.ErrConflict
	}
	ot.CreatedAt = s.now().UTC()
	ot.UpdatedAt = ot.CreatedAt
	s.orgTypes[ot.Name] = ot
	return ot, nil
}

func (s *Store) GetOrganizationType(ctx context.Context, name string) (auth.OrganizationType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ot, ok := s.orgTypes[name]
	if !ok {
		return auth.OrganizationType{}, auth.ErrNotFound
	}
	return ot, nil
}

func (s *Store) ListOrganizationTypes(ctx context.Context) ([]auth.OrganizationType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]auth.OrganizationType, 0, len(s.orgTypes))
	for _, ot := range s.orgTypes {
		out = append(out, ot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateCenter(ctx context.Context, center auth.Center) (auth.Center, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if center.OrganizationID == "" {
		return auth.Center{}, fmt.Errorf("%w: center requires an organization id", auth.ErrInvalidInput)
	}
	if _, ok := s.orgs[center.OrganizationID]; !ok {
		return auth.Center{}, auth.ErrNotFound
	}
	if center.ID == "" {
		center.ID = ids.New()
	}
	center.CreatedAt = s.now().UTC()
	center.UpdatedAt = center.CreatedAt
	s.centers[center.ID] = center
	return center, nil
}

func (s *Store) GetCenter(ctx context.Context, id string) (auth.Center, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	center, ok := s.centers[id]
	if !ok {
		return auth.Center{}, auth.ErrNotFound
	}
	return center, nil
}

func (s *Store) ListCenters(ctx context.Context, organizationID string) ([]auth.Center, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []auth.Center
	for _, center := range s.centers {
		if center.OrganizationID == organizationID {
			out = append(out, center)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateCenter(ctx context.Context, id string, upd auth.CenterUpdate) (auth.Center, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	center, ok := s.centers[id]
	if !ok {
		return auth.Center{}, auth.ErrNotFound
	}
	if upd.Name != nil {
		center.Name = *upd.Name
	}
	if upd.Address != nil {
		center.Address = *upd.Address
	}
	if upd.Phone != nil {
		center.Phone = *upd.Phone
	}
	center.UpdatedAt = s.now().UTC()
	s.centers[id] = center
	return center, nil
}

func (s *Store) DeleteCenter(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.centers[id]; !ok {
		return auth.ErrNotFound
	}
	delete(s.centers, id)
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user auth.User) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == user.Username {
			return auth.User{}, auth.ErrConflict
		}
	}
	if user.ID == "" {
		user.ID = ids.New()
	}
	user.CreatedAt = s.now().UTC()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return auth.User{}, auth.ErrNotFound
	}
	return user, nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return auth.User{}, auth.ErrNotFound
}

func (s *Store) ListUsers(ctx context.Context, organizationID string) ([]auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []auth.User
	for _, user := range s.users {
		if user.OrganizationID == organizationID {
			out = append(out, user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return auth.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = s.now().UTC()
	s.users[userID] = user
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return auth.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Store) CreateRole(ctx context.Context, role auth.Role) (auth.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := role.Key()
	if _, ok := s.roles[key]; ok {
		return auth.Role{}, auth.ErrConflict
	}
	if _, ok := s.orgs[role.OrganizationID]; !ok {
		return auth.Role{}, auth.ErrNotFound
	}
	role.CreatedAt = s.now().UTC()
	role.UpdatedAt = role.CreatedAt
	s.roles[key] = role
	return role, nil
}

func (s *Store) GetRole(ctx context.Context, key auth.RoleKey) (auth.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	role, ok := s.roles[key]
	if !ok {
		return auth.Role{}, auth.ErrNotFound
	}
	return role, nil
}

func (s *Store) ListRoles(ctx context.Context, organizationID string) ([]auth.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []auth.Role
	for _, role := range s.roles {
		if role.OrganizationID == organizationID {
			out = append(out, role)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) SetRoleAccessRights(ctx context.Context, key auth.RoleKey, rights []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.roles[key]
	if !ok {
		return auth.ErrNotFound
	}
	role.AccessRights = append([]string(nil), rights...)
	role.UpdatedAt = s.now().UTC()
	s.roles[key] = role
	return nil
}

func (s *Store) DeleteRole(ctx context.Context, key auth.RoleKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[key]; !ok {
		return auth.ErrNotFound
	}
	delete(s.roles, key)
	return nil
}

func (s *Store) CreateAccessRight(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rights[name]; ok {
		return auth.ErrConflict
	}
	s.rights[name] = auth.AccessRight{Name: name, CreatedAt: s.now().UTC()}
	return nil
}

func (s *Store) ListAccessRights(ctx context.Context) ([]auth.AccessRight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]auth.AccessRight, 0, len(s.rights))
	for _, right := range s.rights {
		out = append(out, right)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateRoleAssignment(ctx context.Context, a auth.RoleAssignment) (auth.RoleAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[a.UserID]
	if !ok {
		return auth.RoleAssignment{}, auth.ErrNotFound
	}
	role, ok := s.roles[auth.RoleKey{OrganizationID: a.OrganizationID, Name: a.RoleName}]
	if !ok {
		return auth.RoleAssignment{}, auth.ErrNotFound
	}
	if user.OrganizationID != a.OrganizationID || role.OrganizationID != a.OrganizationID {
		return auth.RoleAssignment{}, fmt.Errorf("%w: assignment organization does not match user and role", auth.ErrInvalidInput)
	}
	key := assignmentKey{UserID: a.UserID, OrgID: a.OrganizationID, CenterID: a.CenterID, RoleName: a.RoleName}
	if _, ok := s.assignments[key]; ok {
		return auth.RoleAssignment{}, auth.ErrConflict
	}
	a.CreatedAt = s.now().UTC()
	s.assignments[key] = a
	return a, nil
}

func (s *Store) RemoveRoleAssignment(ctx context.Context, a auth.RoleAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := assignmentKey{UserID: a.UserID, OrgID: a.OrganizationID, CenterID: a.CenterID, RoleName: a.RoleName}
	if _, ok := s.assignments[key]; !ok {
		return auth.ErrNotFound
	}
	delete(s.assignments, key)
	return nil
}

func (s *Store) AssignmentsForUser(ctx context.Context, userID string) ([]auth.RoleAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []auth.RoleAssignment
	for _, a := range s.assignments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CenterID != out[j].CenterID {
			return out[i].CenterID < out[j].CenterID
		}
		return out[i].RoleName < out[j].RoleName
	})
	return out, nil
}

func (s *Store) AccessRightsForUserCenter(ctx context.Context, userID, centerID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, a := range s.assignments {
		if a.UserID != userID || a.CenterID != centerID {
			continue
		}
		role, ok := s.roles[auth.RoleKey{OrganizationID: a.OrganizationID, Name: a.RoleName}]
		if !ok {
			continue
		}
		for _, right := range role.AccessRights {
			if _, dup := seen[right]; dup {
				continue
			}
			seen[right] = struct{}{}
			out = append(out, right)
		}
	}
	sort.Strings(out)
	return out, nil
}
