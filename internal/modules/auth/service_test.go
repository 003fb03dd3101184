package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/orderdesk/orderdesk-backend/internal/memstore"
	"github.com/orderdesk/orderdesk-backend/internal/modules/auth"
	"github.com/orderdesk/orderdesk-backend/internal/modules/user"
)

func newAuth(t *testing.T) (auth.Service, user.Repository) {
	t.Helper()
	store := memstore.New()
	return auth.NewService(store.Users(), "test-secret", time.Hour), store.Users()
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	svc, _ := newAuth(t)
	ctx := context.Background()

	u, token, err := svc.Register(ctx, auth.RegisterRequest{
		Name: "Ada", Email: "ada@example.com", Password: "hunter22",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Role != user.RoleCustomer {
		t.Fatalf("self-registration produced role %s, want customer", u.Role)
	}
	if u.PasswordHash == "hunter22" {
		t.Fatalf("password stored in the clear")
	}

	id, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("parse registration token: %v", err)
	}
	if id.UserID != u.ID || id.Role != user.RoleCustomer || id.Email != u.Email {
		t.Fatalf("identity wrong: %+v", id)
	}

	_, token2, err := svc.Login(ctx, "ada@example.com", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.ParseToken(token2); err != nil {
		t.Fatalf("parse login token: %v", err)
	}
}

func TestLoginFailures(t *testing.T) {
	svc, repo := newAuth(t)
	ctx := context.Background()

	u, _, err := svc.Register(ctx, auth.RegisterRequest{
		Name: "Ada", Email: "ada@example.com", Password: "hunter22",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := svc.Login(ctx, "ada@example.com", "wrong"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "hunter22"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v", err)
	}

	if err := repo.SetActive(ctx, u.ID.String(), false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, _, err := svc.Login(ctx, "ada@example.com", "hunter22"); !errors.Is(err, auth.ErrAccountDisabled) {
		t.Fatalf("disabled account: got %v", err)
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuth(t)
	for _, token := range []string{"", "not.a.token", "aaaa.bbbb.cccc"} {
		if _, err := svc.ParseToken(token); !errors.Is(err, auth.ErrInvalidToken) {
			t.Fatalf("token %q: got %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	svc, _ := newAuth(t)
	other := auth.NewService(memstore.New().Users(), "other-secret", time.Hour)

	_, token, err := other.Register(context.Background(), auth.RegisterRequest{
		Name: "Eve", Email: "eve@example.com", Password: "hunter22",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.ParseToken(token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("foreign token accepted: %v", err)
	}
}
