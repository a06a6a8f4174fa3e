package auth

import (
	"context"
	"testing"
)

func TestHasAccessRight(t *testing.T) {
	p := NewPrincipal(User{ID: "u1"}, nil, []string{"user.manage"})
	if !p.HasAccessRight("user.manage") {
		t.Fatal("expected granted right")
	}
	if p.HasAccessRight("role.manage") {
		t.Fatal("unexpected right")
	}

	admin := NewPrincipal(User{ID: "u2", OrgAdmin: true}, nil, nil)
	if !admin.HasAccessRight("role.manage") {
		t.Fatal("org admin should hold every right")
	}
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	if _, ok := PrincipalFromContext(context.Background()); ok {
		t.Fatal("empty context should carry no principal")
	}

	center := "c1"
	p := NewPrincipal(User{ID: "u1", Username: "alice"}, &center, []string{"user.manage"})
	ctx := ContextWithPrincipal(context.Background(), p)

	got, ok := PrincipalFromContext(ctx)
	if !ok {
		t.Fatal("expected principal in context")
	}
	if got.User.ID != "u1" || got.CenterID == nil || *got.CenterID != "c1" {
		t.Fatalf("unexpected principal: %+v", got)
	}
}

func TestTokenContextRoundTrip(t *testing.T) {
	ctx := ContextWithToken(context.Background(), "tok-123")
	token, ok := TokenFromContext(ctx)
	if !ok || token != "tok-123" {
		t.Fatalf("token=%q ok=%v", token, ok)
	}
	if _, ok := TokenFromContext(context.Background()); ok {
		t.Fatal("empty context should carry no token")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("hash must not equal plaintext")
	}
	if err := VerifyPassword(hash, "s3cret"); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}
