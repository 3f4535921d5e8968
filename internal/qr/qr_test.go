package qr

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	svc := NewService(365 * 24 * time.Hour)

	p := svc.Issue("student-1", "2024001")
	if p.Type != PayloadType || p.StudentID != "student-1" || p.StudentNumber != "2024001" {
		t.Fatalf("unexpected payload: %+v", p)
	}
	if p.UniqueID == "" || p.GeneratedAt.IsZero() {
		t.Fatalf("expected nonce and timestamp to be set")
	}

	raw, err := Encode(p)
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	parsed, err := svc.Parse(raw)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if parsed.StudentID != p.StudentID || parsed.UniqueID != p.UniqueID {
		t.Fatalf("roundtrip mismatch: %+v vs %+v", parsed, p)
	}
}

func TestIssuePlaceholder(t *testing.T) {
	svc := NewService(0)
	p := svc.Issue("", "2024001")
	if p.StudentID != Placeholder {
		t.Fatalf("expected placeholder student id, got %q", p.StudentID)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	svc := NewService(365 * 24 * time.Hour)

	cases := []string{
		"",
		"not json",
		`{"type":"something_else","studentId":"s1","generatedAt":"2024-01-01T00:00:00Z"}`,
		`{"type":"student_attendance","studentId":"s1"}`, // no timestamp
	}
	for _, raw := range cases {
		if _, err := svc.Parse(raw); !errors.Is(err, ErrMalformedPayload) {
			t.Fatalf("expected malformed error for %q, got %v", raw, err)
		}
	}
}

func TestValidateFreshnessBoundary(t *testing.T) {
	maxAge := 365 * 24 * time.Hour
	svc := NewService(maxAge)

	fresh := Payload{Type: PayloadType, GeneratedAt: time.Now().Add(-maxAge + time.Second)}
	if err := svc.ValidateFreshness(fresh); err != nil {
		t.Fatalf("expected payload just inside the window to pass, got %v", err)
	}

	stale := Payload{Type: PayloadType, GeneratedAt: time.Now().Add(-maxAge - time.Second)}
	if err := svc.ValidateFreshness(stale); !errors.Is(err, ErrExpiredPayload) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestNeedsRegeneration(t *testing.T) {
	svc := NewService(365 * 24 * time.Hour)

	good, err := Encode(svc.Issue("s1", "2024001"))
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}
	placeholder, _ := Encode(svc.Issue("", "2024001"))
	stale := svc.Issue("s1", "2024001")
	stale.GeneratedAt = time.Now().Add(-366 * 24 * time.Hour)
	staleRaw, _ := Encode(stale)
	garbage := "{{{"

	cases := []struct {
		name   string
		stored *string
		want   bool
	}{
		{"valid payload", &good, false},
		{"nil payload", nil, true},
		{"empty payload", new(string), true},
		{"garbage", &garbage, true},
		{"placeholder id", &placeholder, true},
		{"stale", &staleRaw, true},
	}
	for _, tc := range cases {
		if got := svc.NeedsRegeneration(tc.stored, "s1", "2024001"); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}

	// Mismatched identity forces regeneration even when otherwise valid.
	if !svc.NeedsRegeneration(&good, "other-student", "2024001") {
		t.Fatalf("expected regeneration on student id mismatch")
	}
	if !svc.NeedsRegeneration(&good, "s1", "9999999") {
		t.Fatalf("expected regeneration on student number mismatch")
	}
}

func TestEnsureFresh(t *testing.T) {
	svc := NewService(365 * 24 * time.Hour)

	payload, regenerated, err := svc.EnsureFresh(nil, "s1", "2024001")
	if err != nil || !regenerated {
		t.Fatalf("expected regeneration for missing payload, got regen=%v err=%v", regenerated, err)
	}
	p, err := svc.Parse(payload)
	if err != nil || p.StudentID != "s1" {
		t.Fatalf("expected parsable regenerated payload, got %v / %+v", err, p)
	}

	same, regenerated, err := svc.EnsureFresh(&payload, "s1", "2024001")
	if err != nil || regenerated {
		t.Fatalf("expected valid payload to be served as-is, got regen=%v err=%v", regenerated, err)
	}
	if same != payload {
		t.Fatalf("expected stored payload unchanged")
	}
}

func TestPNG(t *testing.T) {
	svc := NewService(365 * 24 * time.Hour)
	raw, _ := Encode(svc.Issue("s1", "2024001"))

	png, err := PNG(raw, 0)
	if err != nil {
		t.Fatalf("png error: %v", err)
	}
	if len(png) == 0 {
		t.Fatalf("expected non-empty png")
	}
}
