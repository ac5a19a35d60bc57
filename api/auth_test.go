package api

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestBearerTokenManyPeriods(t *testing.T) {
	header := "Bearer " + strings.Repeat(".", 1000)
	if _, err := bearerToken(header); err == nil || err.Error() != "bad auth header" {
		t.Fatalf("expected bad auth header error, got %v", err)
	}
}

func TestBearerTokenMissing(t *testing.T) {
	if _, err := bearerToken("  "); err != errMissingAuthorization {
		t.Fatalf("expected missing header error, got %v", err)
	}
	if _, err := bearerToken("Basic abc"); err != errBadAuthorization {
		t.Fatalf("expected bad header error, got %v", err)
	}
}

func TestIdentityFromAuthHeaderHS256(t *testing.T) {
	secret := []byte("test-secret")
	claims := jwt.MapClaims{
		"sub":     "user-123",
		"email":   "ana@example.com",
		"name":    "Ana",
		"picture": "https://example.com/ana.png",
		"exp":     time.Now().Add(5 * time.Minute).Unix(),
		"nbf":     time.Now().Add(-time.Minute).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	id, err := NewLocalAuth(secret).IdentityFromAuthHeader("Bearer " + signed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Identity{Subject: "user-123", Email: "ana@example.com", Name: "Ana", Picture: "https://example.com/ana.png"}
	if id != want {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestIdentityRejectsWrongSecretAndExpiry(t *testing.T) {
	auth := NewLocalAuth([]byte("right"))

	wrong, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u",
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("wrong"))
	if _, err := auth.IdentityFromToken(wrong); err == nil {
		t.Fatal("expected signature error")
	}

	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("right"))
	if _, err := auth.IdentityFromToken(expired); err == nil {
		t.Fatal("expected expiry error")
	}

	noSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(5 * time.Minute).Unix(),
	}).SignedString([]byte("right"))
	if _, err := auth.IdentityFromToken(noSub); err == nil || err.Error() != "missing sub" {
		t.Fatalf("expected missing sub error, got %v", err)
	}
}

func TestRS256AuthRejectsHS256Tokens(t *testing.T) {
	auth := NewAuth(nil, "aud", "iss", time.Minute)
	signed, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u",
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("secret"))
	if _, err := auth.IdentityFromToken(signed); err == nil {
		t.Fatal("expected signing method to be rejected")
	}
}

func TestIssueLocalTokenRoundTrip(t *testing.T) {
	secret := []byte("s3cret")
	want := Identity{Subject: "dev", Email: "dev@example.com"}
	token, err := IssueLocalToken(secret, want, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got, err := NewLocalAuth(secret).IdentityFromToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got != want {
		t.Fatalf("unexpected identity %+v", got)
	}
	if _, err := IssueLocalToken(nil, want, time.Hour); err == nil {
		t.Fatal("expected error without secret")
	}
}
