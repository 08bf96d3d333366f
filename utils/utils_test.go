package utils

import (
	"errors"
	"regexp"
	"testing"
	"time"
)

func TestTokenManagerRoundTrip(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, time.Hour)

	access, err := tm.GenerateAccessToken("64b7f0c2a1b2c3d4e5f60718", "a@b.com", "alice", "owner")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	claims, err := tm.ValidateAccessToken(access)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.UserID != "64b7f0c2a1b2c3d4e5f60718" || claims.Role != "owner" || claims.Username != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := tm.ValidateRefreshToken(access); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token must not validate as refresh token, got %v", err)
	}

	refresh, err := tm.GenerateRefreshToken("64b7f0c2a1b2c3d4e5f60718")
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	if _, err := tm.ValidateAccessToken(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token must not validate as access token, got %v", err)
	}
}

func TestTokenManagerExpired(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour)
	issued := time.Now().Add(-2 * time.Hour)
	tm.now = func() time.Time { return issued }

	token, err := tm.GenerateAccessToken("id", "", "", "user")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	tm.now = time.Now
	if _, err := tm.ValidateAccessToken(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenManagerRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("a", "b", time.Minute, time.Minute)
	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := tm.ValidateAccessToken(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("hash must differ from the plain password")
	}
	if !CheckPasswordHash("s3cret-pass", hash) {
		t.Fatal("expected password to match")
	}
	if CheckPasswordHash("wrong", hash) {
		t.Fatal("expected mismatch for wrong password")
	}
	if CheckPasswordHash("anything", "") {
		t.Fatal("empty hash must never match")
	}
}

func TestGenerateOTPAndToken(t *testing.T) {
	otpPattern := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 50; i++ {
		otp, err := GenerateOTP()
		if err != nil {
			t.Fatalf("GenerateOTP: %v", err)
		}
		if !otpPattern.MatchString(otp) {
			t.Fatalf("otp %q is not 6 digits", otp)
		}
	}

	token, err := GenerateVerificationToken()
	if err != nil {
		t.Fatalf("GenerateVerificationToken: %v", err)
	}
	if !regexp.MustCompile(`^[0-9a-f]{40}$`).MatchString(token) {
		t.Fatalf("token %q is not 40 hex chars", token)
	}
}

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestFormatValidationErrors(t *testing.T) {
	err := ValidateStruct(signup{Email: "nope", Password: "short"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	details := FormatValidationErrors(err)
	if len(details) != 2 {
		t.Fatalf("expected 2 details, got %d: %+v", len(details), details)
	}
	if details[0].Field != "email" || details[0].Tag != "email" {
		t.Fatalf("unexpected first detail: %+v", details[0])
	}
	if details[1].Field != "password" || details[1].Message != "password must be at least 8" {
		t.Fatalf("unexpected second detail: %+v", details[1])
	}

	if FormatValidationErrors(errors.New("plain")) != nil {
		t.Fatal("non-validation errors must yield nil")
	}
}
