package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)

	token, expiresAt, err := tm.GenerateToken("user-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatal("token already expired")
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("claims.UserID = %q, want user-1", claims.UserID)
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a", time.Minute).GenerateToken("user-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := NewTokenManager("secret-b", time.Minute).ParseToken(token); err == nil {
		t.Fatal("token signed with a different secret must not verify")
	}
}

func TestTokenRejectsTampering(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	token, _, err := tm.GenerateToken("user-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := tm.ParseToken(tampered); err == nil {
		t.Fatal("tampered token must not verify")
	}
}

func TestPasswordHashVerify(t *testing.T) {
	hash, err := HashPassword("secret", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := ComparePassword(hash, "secret"); err != nil {
		t.Fatalf("correct password rejected: %v", err)
	}
	if err := ComparePassword(hash, "wrong"); err == nil {
		t.Fatal("wrong password accepted")
	}
}
