package auth

// Access rights referenced by the HTTP layer's authority registry. The
// bootstrap provisioner reconciles these into the access-right catalog so
// roles can always be granted what routes check for.
const (
	RightManageOrganizations = "organization.manage"
	RightManageCenters       = "center.manage"
	RightManageRoles         = "role.manage"
	RightManageUsers         = "user.manage"
	RightViewDirectory       = "directory.view"
)
