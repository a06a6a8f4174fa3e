package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"centra.io/internal/auth"
	"centra.io/internal/client"
)

func main() {
	addr := os.Getenv("CENTRA_API_ADDR")
	if addr == "" {
		addr = "http://localhost:8080"
	}
	adminUser := os.Getenv("CENTRA_SMOKE_USERNAME")
	if adminUser == "" {
		adminUser = "admin"
	}
	adminPass := os.Getenv("CENTRA_SMOKE_PASSWORD")
	if adminPass == "" {
		log.Fatal("CENTRA_SMOKE_PASSWORD is required")
	}

	ctx, cancel := client.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin := client.New(addr)
	if _, err := admin.Login(ctx, adminUser, adminPass); err != nil {
		log.Fatalf("admin login at %s: %v", addr, err)
	}

	suffix := fmt.Sprintf("smoke-%d", rand.Int63())

	if _, err := admin.CreateOrganizationType(ctx, auth.OrganizationType{Name: "Type-" + suffix}); err != nil {
		log.Fatalf("create org type: %v", err)
	}
	org, err := admin.CreateOrganization(ctx, auth.Organization{Name: "Org-" + suffix, TypeName: "Type-" + suffix})
	if err != nil {
		log.Fatalf("create organization: %v", err)
	}
	center, err := admin.CreateCenter(ctx, org.ID, auth.Center{Name: "Center-" + suffix})
	if err != nil {
		log.Fatalf("create center: %v", err)
	}
	role, err := admin.CreateRole(ctx, org.ID, auth.Role{
		Name:         "Manager",
		AccessRights: []string{auth.RightViewDirectory},
	})
	if err != nil {
		log.Fatalf("create role: %v", err)
	}
	user, err := admin.CreateUser(ctx, org.ID, auth.User{Username: "user-" + suffix}, suffix)
	if err != nil {
		log.Fatalf("create user: %v", err)
	}
	if _, err := admin.AssignRole(ctx, auth.RoleAssignment{
		UserID:         user.ID,
		OrganizationID: org.ID,
		CenterID:       center.ID,
		RoleName:       role.Name,
	}); err != nil {
		log.Fatalf("assign role: %v", err)
	}

	// Fresh session for the provisioned user: a single assignment must
	// auto-select its center and carry the role's rights.
	member := client.New(addr)
	session, err := member.Login(ctx, user.Username, suffix)
	if err != nil {
		log.Fatalf("member login: %v", err)
	}
	if session.User.CenterID == nil || *session.User.CenterID != center.ID {
		log.Fatalf("center not auto-selected: got %v, want %s", session.User.CenterID, center.ID)
	}
	if len(session.User.AccessRights) == 0 {
		log.Fatalf("member session carries no access rights")
	}
	me, err := member.Me(ctx)
	if err != nil {
		log.Fatalf("me: %v", err)
	}
	if me.Username != user.Username {
		log.Fatalf("unexpected identity: %s", me.Username)
	}
	if _, err := member.Refresh(ctx, nil); err != nil {
		log.Fatalf("refresh: %v", err)
	}

	fmt.Printf("✅ centra smoke test passed: org=%s center=%s user=%s\n", org.ID, center.ID, user.ID)
}
