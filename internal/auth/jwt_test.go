package auth

import (
	"testing"
	"time"

	"uniattend/internal/model"
)

func TestTokenRoundTrip(t *testing.T) {
	pair, err := Issue("acct-1", model.RoleDoctor, "doc@uni.edu", "uniattend", "secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens")
	}

	claims, err := Parse(pair.AccessToken, "secret", "uniattend")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if claims.Subject != "acct-1" || claims.Role != model.RoleDoctor || claims.Email != "doc@uni.edu" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseRejectsBadTokens(t *testing.T) {
	pair, err := Issue("acct-1", model.RoleStudent, "s@uni.edu", "uniattend", "secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}

	if _, err := Parse(pair.AccessToken, "wrong-key", "uniattend"); err == nil {
		t.Fatalf("expected error for wrong key")
	}
	if _, err := Parse(pair.AccessToken, "secret", "someone-else"); err == nil {
		t.Fatalf("expected error for issuer mismatch")
	}
	if _, err := Parse("garbage", "secret", "uniattend"); err == nil {
		t.Fatalf("expected error for garbage token")
	}

	expired, err := Issue("acct-1", model.RoleStudent, "s@uni.edu", "uniattend", "secret", -time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue error: %v", err)
	}
	if _, err := Parse(expired.AccessToken, "secret", "uniattend"); err == nil {
		t.Fatalf("expected error for expired token")
	}
}
