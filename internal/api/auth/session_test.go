package auth

import (
	"testing"

	"teamspace/internal/model"
)

func TestSessionRoundTrip(t *testing.T) {
	sm := NewSessionManager("test-secret")

	token, err := sm.Issue("alice@example.com", model.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := sm.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "alice@example.com" {
		t.Fatalf("subject = %q", claims.Subject)
	}
	if claims.Role != model.RoleAdmin {
		t.Fatalf("role = %q", claims.Role)
	}
}

func TestSessionParse_WrongSecret(t *testing.T) {
	token, err := NewSessionManager("secret-a").Issue("alice@example.com", model.RoleUser)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := NewSessionManager("secret-b").Parse(token); err == nil {
		t.Fatal("token signed with another secret should be rejected")
	}
}

func TestSessionParse_Garbage(t *testing.T) {
	if _, err := NewSessionManager("secret").Parse("not-a-token"); err == nil {
		t.Fatal("garbage token should be rejected")
	}
}
