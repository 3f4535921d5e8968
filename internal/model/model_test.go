package model

import (
	"testing"
	"time"
)

func TestEnums(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleDoctor, RoleStudent} {
		if !r.Valid() {
			t.Fatalf("expected role %s valid", r)
		}
	}
	if Role("dean").Valid() {
		t.Fatalf("expected unknown role invalid")
	}

	for _, s := range []Status{StatusPresent, StatusAbsent, StatusLate, StatusExcused} {
		if !s.Valid() {
			t.Fatalf("expected status %s valid", s)
		}
	}
	if Status("asleep").Valid() {
		t.Fatalf("expected unknown status invalid")
	}

	for _, s := range []Source{SourceQRScan, SourceManual, SourceAdmin} {
		if !s.Valid() {
			t.Fatalf("expected source %s valid", s)
		}
	}
	if Source("osmosis").Valid() {
		t.Fatalf("expected unknown source invalid")
	}
}

func TestLocked(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	later := now.Add(10 * time.Minute)
	earlier := now.Add(-10 * time.Minute)

	cases := []struct {
		name    string
		account Account
		want    bool
	}{
		{"no attempts", Account{}, false},
		{"attempts without deadline", Account{LoginAttempts: 5}, false},
		{"active lock", Account{LoginAttempts: 5, LockUntil: &later}, true},
		{"expired lock", Account{LoginAttempts: 5, LockUntil: &earlier}, false},
		{"under threshold", Account{LoginAttempts: 4, LockUntil: &later}, false},
	}
	for _, tc := range cases {
		if got := tc.account.Locked(5, now); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
