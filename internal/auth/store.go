package auth

import "context"

// Store describes persistence operations required by the auth subsystem
// and the admin CRUD surface. Implementations map constraint violations to
// ErrConflict/ErrNotFound sentinels.
type Store interface {
	// InTx runs fn against a store view bound to a single transaction.
	// Returning an error rolls everything back.
	InTx(ctx context.Context, fn func(Store) error) error

	CreateOrganization(ctx context.Context, org Organization) (Organization, error)
	GetOrganization(ctx context.Context, id string) (Organization, error)
	ListOrganizations(ctx context.Context) ([]Organization, error)
	UpdateOrganization(ctx context.Context, id string, upd OrganizationUpdate) (Organization, error)
	DeleteOrganization(ctx context.Context, id string) error
	CountOrganizations(ctx context.Context) (int, error)

	CreateOrganizationType(ctx context.Context, ot OrganizationType) (OrganizationType, error)
	GetOrganizationType(ctx context.Context, name string) (OrganizationType, error)
	ListOrganizationTypes(ctx context.Context) ([]OrganizationType, error)

	CreateCenter(ctx context.Context, center Center) (Center, error)
	GetCenter(ctx context.Context, id string) (Center, error)
	ListCenters(ctx context.Context, organizationID string) ([]Center, error)
	UpdateCenter(ctx context.Context, id string, upd CenterUpdate) (Center, error)
	DeleteCenter(ctx context.Context, id string) error

	CreateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	FindUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context, organizationID string) ([]User, error)
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error
	DeleteUser(ctx context.Context, id string) error

	CreateRole(ctx context.Context, role Role) (Role, error)
	GetRole(ctx context.Context, key RoleKey) (Role, error)
	ListRoles(ctx context.Context, organizationID string) ([]Role, error)
	SetRoleAccessRights(ctx context.Context, key RoleKey, rights []string) error
	DeleteRole(ctx context.Context, key RoleKey) error

	CreateAccessRight(ctx context.Context, name string) error
	ListAccessRights(ctx context.Context) ([]AccessRight, error)

	CreateRoleAssignment(ctx context.Context, a RoleAssignment) (RoleAssignment, error)
	RemoveRoleAssignment(ctx context.Context, a RoleAssignment) error
	AssignmentsForUser(ctx context.Context, userID string) ([]RoleAssignment, error)

	// AccessRightsForUserCenter returns the distinct access rights granted
	// by every role the user holds in the given center, read from current
	// role definitions.
	AccessRightsForUserCenter(ctx context.Context, userID, centerID string) ([]string, error)
}

// OrganizationUpdate carries optional field changes for an organization.
type OrganizationUpdate struct {
	Name     *string
	TypeName *string
	Config   map[string]any
}

// CenterUpdate carries optional field changes for a center.
type CenterUpdate struct {
	Name    *string
	Address *string
	Phone   *string
}
