package main

import (
	"fmt"
	"strings"
	"testing"
)

func newTestAuth(t *testing.T) *Auth {
	t.Helper()
	return NewAuth(newTestDB(t))
}

func TestRegisterAndLogin(t *testing.T) {
	auth := newTestAuth(t)

	id, token, err := auth.Register("wormlord", "secret1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if id == 0 || token == "" {
		t.Fatal("register should yield an id and token")
	}

	loginID, loginToken, err := auth.Login("wormlord", "secret1", "1.2.3.4")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if loginID != id || loginToken == "" {
		t.Error("login should return the registered account")
	}

	gotID, gotUser, err := auth.ValidateToken(loginToken)
	if err != nil {
		t.Fatalf("token validation failed: %v", err)
	}
	if gotID != id || gotUser != "wormlord" {
		t.Errorf("unexpected claims: %d/%s", gotID, gotUser)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	auth := newTestAuth(t)
	if _, _, err := auth.Register("wormlord", "secret1"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, _, err := auth.Login("wormlord", "wrong", "1.2.3.4"); err == nil {
		t.Error("wrong password should be rejected")
	}
	if _, _, err := auth.Login("nobody", "secret1", "1.2.3.4"); err == nil {
		t.Error("unknown username should be rejected")
	}
}

func TestRegisterValidation(t *testing.T) {
	auth := newTestAuth(t)
	if _, _, err := auth.Register("x", "secret1"); err == nil {
		t.Error("one-letter username should be rejected")
	}
	if _, _, err := auth.Register(strings.Repeat("w", maxUsernameLen+1), "secret1"); err == nil {
		t.Error("overlong username should be rejected")
	}
	if _, _, err := auth.Register("wormlord", "abc"); err == nil {
		t.Error("short password should be rejected")
	}
	if _, _, err := auth.Register("wormlord", "secret1"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, _, err := auth.Register("wormlord", "other99"); err == nil {
		t.Error("duplicate username should be rejected")
	}
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	auth := newTestAuth(t)
	_, token, err := auth.Register("wormlord", "secret1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, _, err := auth.ValidateToken(token + "x"); err == nil {
		t.Error("mangled token should be rejected")
	}
	if _, _, err := auth.ValidateToken("not-a-token"); err == nil {
		t.Error("garbage token should be rejected")
	}

	// Tokens are bound to the signing secret
	other := &Auth{jwtSecret: []byte("0123456789abcdef0123456789abcdef")}
	if _, _, err := other.ValidateToken(token); err == nil {
		t.Error("foreign secret should reject the token")
	}
}

func TestJwtSecretPersists(t *testing.T) {
	db := newTestDB(t)
	a1 := NewAuth(db)
	_, token, err := a1.Register("wormlord", "secret1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// A second Auth over the same database reuses the stored secret, so
	// tokens survive restarts.
	a2 := NewAuth(db)
	if _, user, err := a2.ValidateToken(token); err != nil || user != "wormlord" {
		t.Errorf("token should survive an auth reload: %v", err)
	}
}

func TestLoginRateLimit(t *testing.T) {
	auth := newTestAuth(t)
	if _, _, err := auth.Register("wormlord", "secret1"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	for i := 0; i < maxLoginAttempts; i++ {
		auth.Login("wormlord", fmt.Sprintf("wrong%d", i), "9.9.9.9")
	}
	_, _, err := auth.Login("wormlord", "secret1", "9.9.9.9")
	if err == nil {
		t.Error("attempts past the window cap should be rejected")
	}

	// Other addresses are unaffected
	if _, _, err := auth.Login("wormlord", "secret1", "8.8.8.8"); err != nil {
		t.Errorf("rate limit should be per address: %v", err)
	}
}
