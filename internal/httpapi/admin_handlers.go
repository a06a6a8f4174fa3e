package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"centra.io/internal/audit"
	"centra.io/internal/auth"
)

type createOrganizationRequest struct {
	Name     string         `json:"name"`
	TypeName string         `json:"type_name"`
	Config   map[string]any `json:"config"`
}

type updateOrganizationRequest struct {
	Name     *string        `json:"name"`
	TypeName *string        `json:"type_name"`
	Config   map[string]any `json:"config"`
}

type createOrganizationTypeRequest struct {
	Name         string         `json:"name"`
	AccessRights []string       `json:"access_rights"`
	Config       map[string]any `json:"config"`
}

type createCenterRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type updateCenterRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
}

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
	OrgAdmin bool   `json:"org_admin"`
}

type createRoleRequest struct {
	Name         string   `json:"name"`
	AccessRights []string `json:"access_rights"`
}

type setRoleAccessRightsRequest struct {
	AccessRights []string `json:"access_rights"`
}

type assignmentRequest struct {
	OrganizationID string `json:"organization_id"`
	CenterID       string `json:"center_id"`
	RoleName       string `json:"role_name"`
}

type createAccessRightRequest struct {
	Name string `json:"name"`
}

// handleOrganizations serves the /v1/organizations collection.
func (a *API) handleOrganizations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensureAccessRight(w, r, auth.RightViewDirectory) {
			return
		}
		orgs, err := a.store.ListOrganizations(r.Context())
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"organizations": orgs})
	case http.MethodPost:
		if !a.ensureAccessRight(w, r, auth.RightManageOrganizations) {
			return
		}
		var req createOrganizationRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		org, err := a.store.CreateOrganization(r.Context(), auth.Organization{
			Name:     strings.TrimSpace(req.Name),
			TypeName: strings.TrimSpace(req.TypeName),
			Config:   req.Config,
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "admin.organization.create", map[string]any{
			"organization_id": org.ID,
			"name":            org.Name,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/organizations/%s", org.ID))
		writeJSON(w, http.StatusCreated, org)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleOrganizationScoped dispatches /v1/organizations/{id} and the
// sub-resources nested under an organization.
func (a *API) handleOrganizationScoped(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/organizations/")
	path = strings.Trim(path, "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	orgID := parts[0]
	if len(parts) == 1 {
		a.handleOrganizationItem(w, r, orgID)
		return
	}
	switch parts[1] {
	case "centers":
		if len(parts) != 2 {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		a.handleOrganizationCenters(w, r, orgID)
	case "users":
		if len(parts) != 2 {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		a.handleOrganizationUsers(w, r, orgID)
	case "roles":
		switch {
		case len(parts) == 2:
			a.handleOrganizationRoles(w, r, orgID)
		case len(parts) == 3:
			a.handleRoleItem(w, r, auth.RoleKey{OrganizationID: orgID, Name: parts[2]})
		case len(parts) == 4 && parts[3] == "access-rights":
			a.handleRoleAccessRights(w, r, auth.RoleKey{OrganizationID: orgID, Name: parts[2]})
		default:
			writeError(w, r, http.StatusNotFound, "resource not found")
		}
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleOrganizationItem(w http.ResponseWriter, r *http.Request, orgID string) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensureAccessRight(w, r, auth.RightViewDirectory) {
			return
		}
		org, err := a.store.GetOrganization(r.Context(), orgID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, org)
	case http.MethodPatch:
		if !a.ensureAccessRight(w, r, auth.RightManageOrganizations) {
			return
		}
		var req updateOrganizationRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		org, err := a.store.UpdateOrganization(r.Context(), orgID, auth.OrganizationUpdate{
			Name:     req.Name,
			TypeName: req.TypeName,
			Config:   req.Config,
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "admin.organization.update", map[string]any{
			"organization_id": orgID,
		})
		writeJSON(w, http.StatusOK, org)
	case http.MethodDelete:
		if !a.ensureAccessRight(w, r, auth.RightManageOrganizations) {
			return
		}
		if err := a.store.DeleteOrganization(r.Context(), orgID); err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "admin.organization.delete", map[string]any{
			"organization_id": orgID,
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) handleOrganizationCenters(w http.ResponseWriter, r *http.Request, orgID string) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensureAccessRight(w, r, auth.RightViewDirectory) {
			return
		}
		centers, err := a.store.ListCenters(r.Context(), orgID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"centers": centers})
	case http.MethodPost:
		if !a.ensureAccessRight(w, r, auth.RightManageCenters) {
			return
		}
		var req createCenterRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		center, err := a.store.CreateCenter(r.Context(), auth.Center{
			OrganizationID: orgID,
			Name:           strings.TrimSpace(req.Name),
			Address:        strings.TrimSpace(req.Address),
			Phone:          strings.TrimSpace(req.Phone),
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "admin.center.create", map[string]any{
			"organization_id": orgID,
			"center_id":       center.ID,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/centers/%s", center.ID))
		writeJSON(w, http.StatusCreated, center)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleOrganizationUsers(w http.ResponseWriter, r *http.Request, orgID string) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensureAccessRight(w, r, auth.RightViewDirectory) {
			return
		}
		users, err := a.store.ListUsers(r.Context(), orgID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": users})
	case http.MethodPost:
		if !a.ensureAccessRight(w, r, auth.RightManageUsers) {
			return
		}
		var req createUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" || req.Password == "" {
			writeError(w, r, http.StatusBadRequest, "username and password are required")
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.store.CreateUser(r.Context(), auth.User{
			OrganizationID: orgID,
			Username:       req.Username,
			Email:          strings.TrimSpace(req.Email),
			FullName:       strings.TrimSpace(req.FullName),
			PasswordHash:   hash,
			OrgAdmin:       req.OrgAdmin,
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "admin.user.create", map[string]any{
			"organization_id": orgID,
			"user_id":         user.ID,
			"username":        user.Username,
		})
		w.Header().Set("Location", fmt.Sprintf("/v1/users/%s", user.ID))
		writeJSON(w, http.StatusCreated, user)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleOrganizationRoles(w http.ResponseWriter, r *http.Request, orgID string) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensureAccessRight(w, r, auth.RightViewDirectory) {
			return
		}
		roles, err := a.store.ListRoles(r.Context(), orgID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
	case http.MethodPost:
		if !a.ensureAccessRight(w, r, auth.RightManageRoles) {
			return
		}
		var req createRoleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		role, err := a.store.CreateRole(r.Context(), auth.Role{
			OrganizationID: orgID,
			Name:           strings.TrimSpace(req.Name),
			AccessRights:   req.AccessRights,
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "admin.role.create", map[string]any{
			"organization_id": orgID,
			"role_name":       role.Name,
		})
		writeJSON(w, http.StatusCreated, role)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleRoleItem(w http.ResponseWriter, r *http.Request, key auth.RoleKey) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensureAccessRight(w, r, auth.RightViewDirectory) {
			return
		}
		role, err := a.store.GetRole(r.Context(), key)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, role)
	case http.MethodDelete:
		if !a.ensureAccessRight(w, r, auth.RightManageRoles) {
			return
		}
		if err := a.store.DeleteRole(r.Context(), key); err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "admin.role.delete", map[string]any{
			"organization_id": key.OrganizationID,
			"role_name":       key.Name,
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) handleRoleAccessRights(w http.ResponseWriter, r *http.Request, key auth.RoleKey) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	if !a.ensureAccessRight(w, r, auth.RightManageRoles) {
		return
	}
	var req setRoleAccessRightsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.store.SetRoleAccessRights(r.Context(), key, req.AccessRights); err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "admin.role.access_rights.update", map[string]any{
		"organization_id": key.OrganizationID,
		"role_name":       key.Name,
		"count":           len(req.AccessRights),
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleOrganizationTypes serves the /v1/org-types collection.
func (a *API) handleOrganizationTypes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensureAccessRight(w, r, auth.RightViewDirectory) {
			return
		}
		types, err := a.store.ListOrganizationTypes(r.Context())
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"organization_types": types})
	case http.MethodPost:
		if !a.ensureAccessRight(w, r, auth.RightManageOrganizations) {
			return
		}
		var req createOrganizationTypeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		ot, err := a.store.CreateOrganizationType(r.Context(), auth.OrganizationType{
			Name:         strings.TrimSpace(req.Name),
			AccessRights: req.AccessRights,
			Config:       req.Config,
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "admin.org_type.create", map[string]any{
			"name": ot.Name,
		})
		writeJSON(w, http.StatusCreated, ot)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleCenterResource serves /v1/centers/{id}.
func (a *API) handleCenterResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/centers/")
	path = strings.Trim(path, "/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	centerID := path

	switch r.Method {
	case http.MethodGet:
		if !a.ensureAccessRight(w, r, auth.RightViewDirectory) {
			return
		}
		center, err := a.store.GetCenter(r.Context(), centerID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, center)
	case http.MethodPatch:
		if !a.ensureAccessRight(w, r, auth.RightManageCenters) {
			return
		}
		var req updateCenterRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		center, err := a.store.UpdateCenter(r.Context(), centerID, auth.CenterUpdate{
			Name:    req.Name,
			Address: req.Address,
			Phone:   req.Phone,
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "admin.center.update", map[string]any{
			"center_id": centerID,
		})
		writeJSON(w, http.StatusOK, center)
	case http.MethodDelete:
		if !a.ensureAccessRight(w, r, auth.RightManageCenters) {
			return
		}
		if err := a.store.DeleteCenter(r.Context(), centerID); err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "admin.center.delete", map[string]any{
			"center_id": centerID,
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

// handleUserResource serves /v1/users/{id} and /v1/users/{id}/assignments.
func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	path = strings.Trim(path, "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	userID := parts[0]
	switch {
	case len(parts) == 1:
		a.handleUserItem(w, r, userID)
	case len(parts) == 2 && parts[1] == "assignments":
		a.handleUserAssignments(w, r, userID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleUserItem(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensureAccessRight(w, r, auth.RightViewDirectory) {
			return
		}
		user, err := a.store.GetUser(r.Context(), userID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodDelete:
		if !a.ensureAccessRight(w, r, auth.RightManageUsers) {
			return
		}
		if err := a.store.DeleteUser(r.Context(), userID); err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "admin.user.delete", map[string]any{
			"user_id": userID,
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) handleUserAssignments(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensureAccessRight(w, r, auth.RightViewDirectory) {
			return
		}
		assignments, err := a.store.AssignmentsForUser(r.Context(), userID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"assignments": assignments})
	case http.MethodPost:
		if !a.ensureAccessRight(w, r, auth.RightManageUsers) {
			return
		}
		var req assignmentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		assignment, err := a.store.CreateRoleAssignment(r.Context(), auth.RoleAssignment{
			UserID:         userID,
			OrganizationID: strings.TrimSpace(req.OrganizationID),
			CenterID:       strings.TrimSpace(req.CenterID),
			RoleName:       strings.TrimSpace(req.RoleName),
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "admin.user.assign_role", map[string]any{
			"user_id":   userID,
			"center_id": assignment.CenterID,
			"role_name": assignment.RoleName,
		})
		writeJSON(w, http.StatusCreated, assignment)
	case http.MethodDelete:
		if !a.ensureAccessRight(w, r, auth.RightManageUsers) {
			return
		}
		var req assignmentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		err := a.store.RemoveRoleAssignment(r.Context(), auth.RoleAssignment{
			UserID:         userID,
			OrganizationID: strings.TrimSpace(req.OrganizationID),
			CenterID:       strings.TrimSpace(req.CenterID),
			RoleName:       strings.TrimSpace(req.RoleName),
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "admin.user.unassign_role", map[string]any{
			"user_id":   userID,
			"center_id": req.CenterID,
			"role_name": req.RoleName,
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

// handleAccessRights serves the /v1/access-rights catalog.
func (a *API) handleAccessRights(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensureAccessRight(w, r, auth.RightViewDirectory) {
			return
		}
		rights, err := a.store.ListAccessRights(r.Context())
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"access_rights": rights})
	case http.MethodPost:
		if !a.ensureAccessRight(w, r, auth.RightManageRoles) {
			return
		}
		var req createAccessRightRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			writeError(w, r, http.StatusBadRequest, "name is required")
			return
		}
		if err := a.store.CreateAccessRight(r.Context(), name); err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "admin.access_right.create", map[string]any{
			"name": name,
		})
		writeJSON(w, http.StatusCreated, auth.AccessRight{Name: name})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}
