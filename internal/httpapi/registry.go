package httpapi

import (
	"sort"

	"centra.io/internal/auth"
)

// RouteAuthority declares the access rights a route requires. The table is
// the single enumerable source of authority literals: handlers check
// against it and the bootstrap provisioner reconciles the access-right
// catalog from it, so no route can check a right that roles cannot carry.
type RouteAuthority struct {
	Method string
	Path   string
	Rights []string
}

var routeAuthorities = []RouteAuthority{
	{"POST", "/v1/organizations", []string{auth.RightManageOrganizations}},
	{"GET", "/v1/organizations", []string{auth.RightViewDirectory}},
	{"GET", "/v1/organizations/{id}", []string{auth.RightViewDirectory}},
	{"PATCH", "/v1/organizations/{id}", []string{auth.RightManageOrganizations}},
	{"DELETE", "/v1/organizations/{id}", []string{auth.RightManageOrganizations}},
	{"POST", "/v1/org-types", []string{auth.RightManageOrganizations}},
	{"GET", "/v1/org-types", []string{auth.RightViewDirectory}},
	{"POST", "/v1/organizations/{id}/centers", []string{auth.RightManageCenters}},
	{"GET", "/v1/organizations/{id}/centers", []string{auth.RightViewDirectory}},
	{"GET", "/v1/centers/{id}", []string{auth.RightViewDirectory}},
	{"PATCH", "/v1/centers/{id}", []string{auth.RightManageCenters}},
	{"DELETE", "/v1/centers/{id}", []string{auth.RightManageCenters}},
	{"POST", "/v1/organizations/{id}/roles", []string{auth.RightManageRoles}},
	{"GET", "/v1/organizations/{id}/roles", []string{auth.RightViewDirectory}},
	{"GET", "/v1/organizations/{id}/roles/{name}", []string{auth.RightViewDirectory}},
	{"PUT", "/v1/organizations/{id}/roles/{name}/access-rights", []string{auth.RightManageRoles}},
	{"DELETE", "/v1/organizations/{id}/roles/{name}", []string{auth.RightManageRoles}},
	{"POST", "/v1/organizations/{id}/users", []string{auth.RightManageUsers}},
	{"GET", "/v1/organizations/{id}/users", []string{auth.RightViewDirectory}},
	{"GET", "/v1/users/{id}", []string{auth.RightViewDirectory}},
	{"DELETE", "/v1/users/{id}", []string{auth.RightManageUsers}},
	{"POST", "/v1/users/{id}/assignments", []string{auth.RightManageUsers}},
	{"GET", "/v1/users/{id}/assignments", []string{auth.RightViewDirectory}},
	{"DELETE", "/v1/users/{id}/assignments", []string{auth.RightManageUsers}},
	{"GET", "/v1/access-rights", []string{auth.RightViewDirectory}},
	{"POST", "/v1/access-rights", []string{auth.RightManageRoles}},
}

// DeclaredAccessRights returns the distinct authority literals referenced
// anywhere in the route table, sorted.
func DeclaredAccessRights() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, route := range routeAuthorities {
		for _, right := range route.Rights {
			if _, ok := seen[right]; ok {
				continue
			}
			seen[right] = struct{}{}
			out = append(out, right)
		}
	}
	sort.Strings(out)
	return out
}
