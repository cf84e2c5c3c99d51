package auth

import (
	"errors"
	"testing"
	"time"
)

func TestSignAndParse(t *testing.T) {
	iss := NewIssuer("test-secret", "chorewheel", time.Hour)
	tok, err := iss.Sign(42, "alice@example.com")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	ac, err := iss.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ac.UserID != 42 || ac.Email != "alice@example.com" {
		t.Errorf("auth context = %+v", ac)
	}
}

func TestParseMissing(t *testing.T) {
	iss := NewIssuer("test-secret", "chorewheel", time.Hour)
	if _, err := iss.Parse("  "); !errors.Is(err, ErrMissingToken) {
		t.Errorf("err = %v, want ErrMissingToken", err)
	}
}

func TestParseWrongSecret(t *testing.T) {
	tok, _ := NewIssuer("one", "chorewheel", time.Hour).Sign(1, "a@example.com")
	_, err := NewIssuer("two", "chorewheel", time.Hour).Parse(tok)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParseWrongIssuer(t *testing.T) {
	tok, _ := NewIssuer("s", "someone-else", time.Hour).Sign(1, "a@example.com")
	_, err := NewIssuer("s", "chorewheel", time.Hour).Parse(tok)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParseExpired(t *testing.T) {
	iss := NewIssuer("s", "chorewheel", time.Minute)
	past := time.Now().Add(-time.Hour)
	iss.now = func() time.Time { return past }
	tok, err := iss.Sign(1, "a@example.com")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	iss.now = time.Now
	if _, err := iss.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def", "abc.def"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"", ""},
		{"Bearer", ""},
	}
	for _, tt := range tests {
		if got := BearerToken(tt.header); got != tt.want {
			t.Errorf("BearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
