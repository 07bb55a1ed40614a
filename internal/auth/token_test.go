package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := IssueToken("secret", "teller-1", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := ParseToken("secret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.OperatorID != "teller-1" {
		t.Fatalf("operator = %s, want teller-1", claims.OperatorID)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := IssueToken("secret", "teller-1", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParseToken("other", token); err == nil {
		t.Fatal("expected rejection with wrong secret")
	}
}

func TestTokenExpired(t *testing.T) {
	token, err := IssueToken("secret", "teller-1", -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ParseToken("secret", token); err == nil {
		t.Fatal("expected rejection of expired token")
	}
}
