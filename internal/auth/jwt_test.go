package auth

import (
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "super-secret-key"
	issuer := "chatlink"
	validity := time.Hour
	auth := NewAuthenticator(secret, issuer, validity)

	userID := 123
	contactNo := "0771234567"

	// Generate Token
	token, err := auth.GenerateToken(userID, contactNo)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	if token == "" {
		t.Fatal("generated token is empty")
	}

	// Validate Token
	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("failed to validate token: %v", err)
	}

	if claims.UserID() != userID {
		t.Errorf("expected user ID %d, got %d", userID, claims.UserID())
	}
	if claims.ContactNo != contactNo {
		t.Errorf("expected contact number %s, got %s", contactNo, claims.ContactNo)
	}
	if claims.Issuer != issuer {
		t.Errorf("expected issuer %s, got %s", issuer, claims.Issuer)
	}
}

func TestExpiredToken(t *testing.T) {
	secret := "super-secret-key"
	auth := NewAuthenticator(secret, "chatlink", -time.Minute) // Expired immediately

	token, err := auth.GenerateToken(1, "0770000000")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	_, err = auth.ValidateToken(token)
	if err == nil {
		t.Fatal("expected error for expired token, got nil")
	}
}

func TestInvalidSignature(t *testing.T) {
	auth1 := NewAuthenticator("secret1", "chatlink", time.Hour)
	auth2 := NewAuthenticator("secret2", "chatlink", time.Hour)

	token, err := auth1.GenerateToken(1, "0770000000")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	_, err = auth2.ValidateToken(token)
	if err == nil {
		t.Fatal("expected error for token signed with different secret, got nil")
	}
}
