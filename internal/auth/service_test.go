package auth

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestService() (*Service, *MemoryStore) {
	store := NewMemoryStore()
	tokens := NewTokens([]byte("access-secret"), []byte("refresh-secret"))
	svc := NewService(store, tokens, WithBcryptCost(bcrypt.MinCost))
	return svc, store
}

func TestRegisterThenLogin(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	info, pair, err := svc.Register(ctx, "a@x.com", "pw1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if info.ID == 0 || info.Email != "a@x.com" || info.CreatedAt.IsZero() {
		t.Fatalf("unexpected user info: %+v", info)
	}

	payload, err := svc.Tokens().VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if payload.Email != "a@x.com" || payload.UserID != info.ID {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	stored, err := store.FindByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if stored.PasswordHash == "pw1" {
		t.Fatal("password must not be stored in plaintext")
	}

	if _, _, err := svc.Login(ctx, "a@x.com", "pw1"); err != nil {
		t.Fatalf("Login after Register: %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	first, _, err := svc.Register(ctx, "a@x.com", "pw1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, _, err = svc.Register(ctx, "a@x.com", "pw2")
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if EmailFromError(err) != "a@x.com" {
		t.Fatalf("expected offending email on error, got %q", EmailFromError(err))
	}

	// First registration must be unaffected.
	u, err := store.Find(ctx, first.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if err := VerifyPassword(u.PasswordHash, "pw1"); err != nil {
		t.Fatalf("original password no longer verifies: %v", err)
	}
}

func TestLoginFailureKinds(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "a@x.com", "pw1"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Unknown email and wrong password are reported as distinct kinds.
	_, _, err := svc.Login(ctx, "missing@x.com", "pw1")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	_, _, err = svc.Login(ctx, "a@x.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRefreshRotates(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	info, pair, err := svc.Register(ctx, "a@x.com", "pw1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	gotInfo, rotated, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if gotInfo != info {
		t.Fatalf("refresh returned %+v, want %+v", gotInfo, info)
	}
	if rotated.AccessToken == pair.AccessToken {
		t.Fatal("refresh must mint a new access token")
	}
}

func TestRefreshFailureKinds(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	info, pair, err := svc.Register(ctx, "a@x.com", "pw1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, _, err := svc.Refresh(ctx, ""); !errors.Is(err, ErrNoRefreshToken) {
		t.Fatalf("expected ErrNoRefreshToken, got %v", err)
	}
	if _, _, err := svc.Refresh(ctx, "bogus"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}

	// Token still verifies cryptographically, but the subject is gone.
	store.Delete(info.ID)
	if _, _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound after user removal, got %v", err)
	}
}
