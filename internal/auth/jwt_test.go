package auth

import "testing"

func TestTokenRoundTrip(t *testing.T) {
	tok, err := NewToken("s3cret", "user-abc", 60)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}

	claims, err := ParseToken("s3cret", tok)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != "user-abc" {
		t.Fatalf("user id = %q, want user-abc", claims.UserID)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	tok, err := NewToken("s3cret", "user-abc", 60)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	if _, err := ParseToken("other", tok); err == nil {
		t.Fatal("expected parse failure with wrong secret")
	}
}

func TestParseTokenGarbage(t *testing.T) {
	if _, err := ParseToken("s3cret", "not.a.jwt"); err == nil {
		t.Fatal("expected parse failure for garbage token")
	}
}

func TestPasswordHashAndCheck(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := CheckPassword(hash, "hunter2"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := CheckPassword(hash, "hunter3"); err == nil {
		t.Error("wrong password accepted")
	}
}
