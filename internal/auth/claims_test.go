package auth

import (
	"errors"
	"testing"
)

const testSecret = "test-secret-at-least-32-characters!!"

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateAccessToken("operator", testSecret, 60)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if claims.Subject != "operator" {
		t.Errorf("subject = %q, want operator", claims.Subject)
	}
	if claims.Role != RoleOperator {
		t.Errorf("role = %q, want %q", claims.Role, RoleOperator)
	}
	if claims.SessionID == "" {
		t.Error("missing session ID")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		t.Error("missing expiry or issue time")
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken("operator", testSecret, 60)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	_, err = ParseToken(token, "a-completely-different-secret-value!")
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("error = %v, want ErrTokenInvalid", err)
	}
}

func TestGenerateAccessTokenDefaultTTL(t *testing.T) {
	// ttl <= 0 falls back to the default TTL
	token, err := GenerateAccessToken("operator", testSecret, -1)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}
	if _, err := ParseToken(token, testSecret); err != nil {
		t.Fatalf("default-TTL token should be valid: %v", err)
	}
}

func TestParseTokenRejectsMalformed(t *testing.T) {
	_, err := ParseToken("not.a.token", testSecret)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("error = %v, want ErrTokenInvalid", err)
	}
}

func TestParseTokenRejectsEmpty(t *testing.T) {
	_, err := ParseToken("", testSecret)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("error = %v, want ErrTokenInvalid", err)
	}
}
