package auth

import "time"

type Organization struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	TypeName  string         `json:"type_name"`
	Config    map[string]any `json:"config,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// OrganizationType is keyed by name and carries the catalog of access
// rights applicable to organizations of this type.
type OrganizationType struct {
	Name         string         `json:"name"`
	AccessRights []string       `json:"access_rights"`
	Config       map[string]any `json:"config,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Center is a physical or logical sub-unit of an organization. Roles are
// granted to users per center.
type Center struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Address        string    `json:"address,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type User struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Username       string    `json:"username"`
	Email          string    `json:"email,omitempty"`
	FullName       string    `json:"full_name,omitempty"`
	PasswordHash   string    `json:"-"`
	OrgAdmin       bool      `json:"org_admin"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RoleKey identifies a role. Roles are scoped to an organization: the same
// role name may exist independently in different organizations.
type RoleKey struct {
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
}

type Role struct {
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	AccessRights   []string  `json:"access_rights"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (r Role) Key() RoleKey {
	return RoleKey{OrganizationID: r.OrganizationID, Name: r.Name}
}

// RoleAssignment grants a role to a user within a specific center. It is
// the sole source of truth for which roles a user holds where. The
// organization id must match both the user's and the role's organization;
// the store enforces this at assignment time.
type RoleAssignment struct {
	UserID         string    `json:"user_id"`
	OrganizationID string    `json:"organization_id"`
	CenterID       string    `json:"center_id"`
	RoleName       string    `json:"role_name"`
	CreatedAt      time.Time `json:"created_at"`
}

// AccessRight is an atomic permission string referenced by roles.
type AccessRight struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
