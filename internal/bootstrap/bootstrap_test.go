package bootstrap

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"centra.io/internal/auth"
	"centra.io/internal/store/memory"
)

func TestNewRequiresCredentials(t *testing.T) {
	store := memory.New()
	if _, err := New(store, "  ", "pw"); !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("err=%v, want ErrInvalidInput", err)
	}
	if _, err := New(store, "admin", ""); !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("err=%v, want ErrInvalidInput", err)
	}
}

func TestRunProvisionsLinkedAdminChain(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	p, err := New(store, "admin", "bootstrap-pw")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	declared := []string{"organization.manage", "user.manage"}
	if err := p.ReconcileAccessRights(ctx, declared); err != nil {
		t.Fatalf("ReconcileAccessRights: %v", err)
	}
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	orgs, err := store.ListOrganizations(ctx)
	if err != nil {
		t.Fatalf("ListOrganizations: %v", err)
	}
	if len(orgs) != 1 {
		t.Fatalf("organizations=%d, want 1", len(orgs))
	}
	org := orgs[0]

	centers, err := store.ListCenters(ctx, org.ID)
	if err != nil {
		t.Fatalf("ListCenters: %v", err)
	}
	if len(centers) != 1 {
		t.Fatalf("centers=%d, want 1", len(centers))
	}
	if centers[0].OrganizationID != org.ID {
		t.Fatalf("center org=%q, want %q", centers[0].OrganizationID, org.ID)
	}

	user, err := store.FindUserByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("FindUserByUsername: %v", err)
	}
	if !user.OrgAdmin {
		t.Fatal("bootstrap user should be org admin")
	}
	if user.OrganizationID != org.ID {
		t.Fatalf("user org=%q, want %q", user.OrganizationID, org.ID)
	}
	if err := auth.VerifyPassword(user.PasswordHash, "bootstrap-pw"); err != nil {
		t.Fatalf("stored password hash does not verify: %v", err)
	}

	role, err := store.GetRole(ctx, auth.RoleKey{OrganizationID: org.ID, Name: "OrgAdmin"})
	if err != nil {
		t.Fatalf("GetRole: %v", err)
	}
	if !reflect.DeepEqual(role.AccessRights, declared) {
		t.Fatalf("role rights=%v, want full catalog %v", role.AccessRights, declared)
	}

	assignments, err := store.AssignmentsForUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("AssignmentsForUser: %v", err)
	}
	if len(assignments) != 1 {
		t.Fatalf("assignments=%d, want 1", len(assignments))
	}
	if assignments[0].CenterID != centers[0].ID || assignments[0].RoleName != "OrgAdmin" {
		t.Fatalf("unexpected assignment: %+v", assignments[0])
	}
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	p, err := New(store, "admin", "bootstrap-pw")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Run(ctx); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := p.Run(ctx); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	count, err := store.CountOrganizations(ctx)
	if err != nil {
		t.Fatalf("CountOrganizations: %v", err)
	}
	if count != 1 {
		t.Fatalf("organizations=%d, want 1 after repeated runs", count)
	}
}

func TestRunSkipsWhenAnyOrganizationExists(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	if _, err := store.CreateOrganizationType(ctx, auth.OrganizationType{Name: "Clinic"}); err != nil {
		t.Fatalf("CreateOrganizationType: %v", err)
	}
	if _, err := store.CreateOrganization(ctx, auth.Organization{Name: "Existing", TypeName: "Clinic"}); err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}

	p, err := New(store, "admin", "bootstrap-pw")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := store.FindUserByUsername(ctx, "admin"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("admin user should not exist, err=%v", err)
	}
}

func TestReconcileAccessRightsInsertsOnlyMissing(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	if err := store.CreateAccessRight(ctx, "user.manage"); err != nil {
		t.Fatalf("CreateAccessRight: %v", err)
	}

	p, err := New(store, "admin", "bootstrap-pw")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	declared := []string{"user.manage", "role.manage", "role.manage", " ", "directory.view"}
	if err := p.ReconcileAccessRights(ctx, declared); err != nil {
		t.Fatalf("ReconcileAccessRights: %v", err)
	}

	rights, err := store.ListAccessRights(ctx)
	if err != nil {
		t.Fatalf("ListAccessRights: %v", err)
	}
	names := make([]string, 0, len(rights))
	for _, right := range rights {
		names = append(names, right.Name)
	}
	want := []string{"directory.view", "role.manage", "user.manage"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("catalog=%v, want %v", names, want)
	}

	// A second reconcile with the same declarations changes nothing.
	if err := p.ReconcileAccessRights(ctx, declared); err != nil {
		t.Fatalf("second ReconcileAccessRights: %v", err)
	}
	rights, err = store.ListAccessRights(ctx)
	if err != nil {
		t.Fatalf("ListAccessRights: %v", err)
	}
	if len(rights) != len(want) {
		t.Fatalf("catalog grew to %d entries, want %d", len(rights), len(want))
	}
}
