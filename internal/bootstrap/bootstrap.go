// Package bootstrap provisions the first organization, its admin role and
// its admin user at process start, and keeps the access-right catalog in
// sync with the rights declared by the HTTP layer's authority registry.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"centra.io/internal/audit"
	"centra.io/internal/auth"
)

const (
	adminTypeName  = "Admin"
	adminOrgName   = "Admin"
	adminCenter    = "Admin"
	adminRoleName  = "OrgAdmin"
	adminFullName  = "Administrator"
)

// Provisioner runs the one-shot admin bootstrap sequence.
type Provisioner struct {
	store    auth.Store
	username string
	password string
}

// New constructs a Provisioner with the seed admin credentials.
func New(store auth.Store, username, password string) (*Provisioner, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: bootstrap credentials are required", auth.ErrInvalidInput)
	}
	return &Provisioner{store: store, username: username, password: password}, nil
}

// Run provisions the admin organization exactly once across the system's
// lifetime, detected by "any organization exists". The whole sequence runs
// in one transaction: a failure at any step leaves no partial state behind,
// so the next boot retries from scratch instead of mistaking a half-created
// org for a finished bootstrap.
func (p *Provisioner) Run(ctx context.Context) error {
	return p.store.InTx(ctx, func(tx auth.Store) error {
		count, err := tx.CountOrganizations(ctx)
		if err != nil {
			return fmt.Errorf("bootstrap: count organizations: %w", err)
		}
		if count > 0 {
			_ = audit.LogEvent(ctx, "bootstrap.skipped", map[string]any{"organizations": count})
			return nil
		}

		orgType, err := tx.CreateOrganizationType(ctx, auth.OrganizationType{
			Name:         adminTypeName,
			AccessRights: []string{},
		})
		if err != nil {
			return fmt.Errorf("bootstrap: create organization type: %w", err)
		}

		org, err := tx.CreateOrganization(ctx, auth.Organization{
			Name:     adminOrgName,
			TypeName: orgType.Name,
		})
		if err != nil {
			return fmt.Errorf("bootstrap: create organization: %w", err)
		}

		center, err := tx.CreateCenter(ctx, auth.Center{
			OrganizationID: org.ID,
			Name:           adminCenter,
		})
		if err != nil {
			return fmt.Errorf("bootstrap: create center: %w", err)
		}
		if center.OrganizationID != org.ID {
			return fmt.Errorf("bootstrap: center %s not linked to organization %s", center.ID, org.ID)
		}

		catalog, err := tx.ListAccessRights(ctx)
		if err != nil {
			return fmt.Errorf("bootstrap: read access-right catalog: %w", err)
		}
		rights := make([]string, 0, len(catalog))
		for _, right := range catalog {
			rights = append(rights, right.Name)
		}

		role, err := tx.CreateRole(ctx, auth.Role{
			OrganizationID: org.ID,
			Name:           adminRoleName,
			AccessRights:   rights,
		})
		if err != nil {
			return fmt.Errorf("bootstrap: create role: %w", err)
		}

		hash, err := auth.HashPassword(p.password)
		if err != nil {
			return fmt.Errorf("bootstrap: hash password: %w", err)
		}
		user, err := tx.CreateUser(ctx, auth.User{
			OrganizationID: org.ID,
			Username:       p.username,
			FullName:       adminFullName,
			PasswordHash:   hash,
			OrgAdmin:       true,
		})
		if err != nil {
			return fmt.Errorf("bootstrap: create user: %w", err)
		}

		if _, err := tx.CreateRoleAssignment(ctx, auth.RoleAssignment{
			UserID:         user.ID,
			OrganizationID: org.ID,
			CenterID:       center.ID,
			RoleName:       role.Name,
		}); err != nil {
			return fmt.Errorf("bootstrap: assign role: %w", err)
		}

		_ = audit.LogEvent(ctx, "bootstrap.provisioned", map[string]any{
			"organization_id": org.ID,
			"center_id":       center.ID,
			"user_id":         user.ID,
			"role":            role.Name,
			"access_rights":   len(rights),
		})
		return nil
	})
}

// ReconcileAccessRights inserts every declared authority literal that is
// missing from the catalog. Rights already present are left untouched, so
// route-level authority checks can never reference a right that roles
// cannot be granted.
func (p *Provisioner) ReconcileAccessRights(ctx context.Context, declared []string) error {
	existing, err := p.store.ListAccessRights(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: list access rights: %w", err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, right := range existing {
		known[right.Name] = struct{}{}
	}

	seen := make(map[string]struct{}, len(declared))
	var inserted int
	for _, name := range declared {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if _, ok := known[name]; ok {
			continue
		}
		if err := p.store.CreateAccessRight(ctx, name); err != nil {
			return fmt.Errorf("bootstrap: create access right %s: %w", name, err)
		}
		inserted++
	}
	if inserted > 0 {
		_ = audit.LogEvent(ctx, "bootstrap.access_rights_reconciled", map[string]any{"inserted": inserted})
	}
	return nil
}
