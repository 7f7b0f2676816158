package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	// MinCost keeps the test fast
	manager := NewPasswordManager(bcrypt.MinCost, 6)

	hash, err := manager.HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !manager.VerifyPassword("correct horse battery", hash) {
		t.Error("correct password rejected")
	}
	if manager.VerifyPassword("wrong password", hash) {
		t.Error("wrong password accepted")
	}
}

func TestOverlongPasswordRejected(t *testing.T) {
	manager := NewPasswordManager(bcrypt.MinCost, 6)
	if _, err := manager.HashPassword(strings.Repeat("x", MaxPasswordLength+1)); err == nil {
		t.Error("expected error for overlong password")
	}
}

func TestValidatePasswordStrength(t *testing.T) {
	manager := NewPasswordManager(bcrypt.MinCost, 8)

	if err := manager.ValidatePasswordStrength("short"); err == nil {
		t.Error("expected error for short password")
	}
	if err := manager.ValidatePasswordStrength("long enough"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := manager.ValidatePasswordStrength(strings.Repeat("x", MaxPasswordLength+1)); err == nil {
		t.Error("expected error for overlong password")
	}
}
