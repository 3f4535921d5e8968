// Package qr issues and validates the JSON payloads embedded in student QR
// codes. The payload is not signed; the server re-derives the student from the
// embedded id and cross-checks it against the stored account.
package qr

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

// PayloadType is the fixed type tag every payload must carry.
const PayloadType = "student_attendance"

// Placeholder is stored as the student id before the account exists.
const Placeholder = "pending"

var (
	// ErrMalformedPayload is returned for unparsable payloads or a wrong type tag.
	ErrMalformedPayload = errors.New("malformed qr payload")
	// ErrExpiredPayload is returned when the payload is older than the freshness window.
	ErrExpiredPayload = errors.New("expired qr payload")
)

// Payload is the JSON blob rendered into a student's QR code.
type Payload struct {
	Type          string    `json:"type"`
	StudentID     string    `json:"studentId"`
	StudentNumber string    `json:"studentNumber"`
	GeneratedAt   time.Time `json:"generatedAt"`
	UniqueID      string    `json:"uniqueId"`
}

// Service issues and validates QR payloads.
type Service struct {
	maxAge time.Duration
}

// NewService creates a service with the given freshness window.
func NewService(maxAge time.Duration) *Service {
	if maxAge <= 0 {
		maxAge = 365 * 24 * time.Hour
	}
	return &Service{maxAge: maxAge}
}

// Issue mints a fresh payload for a student.
func (s *Service) Issue(studentID, studentNumber string) Payload {
	if studentID == "" {
		studentID = Placeholder
	}
	return Payload{
		Type:          PayloadType,
		StudentID:     studentID,
		StudentNumber: studentNumber,
		GeneratedAt:   time.Now().UTC(),
		UniqueID:      uuid.NewString(),
	}
}

// Encode serializes a payload to its stored JSON form.
func Encode(p Payload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Parse decodes a raw payload and checks its shape.
func (s *Service) Parse(raw string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Payload{}, ErrMalformedPayload
	}
	if p.Type != PayloadType || p.GeneratedAt.IsZero() {
		return Payload{}, ErrMalformedPayload
	}
	return p, nil
}

// ValidateFreshness rejects payloads older than the freshness window. This is
// an anti-staleness check, not a security boundary.
func (s *Service) ValidateFreshness(p Payload) error {
	if time.Since(p.GeneratedAt) > s.maxAge {
		return ErrExpiredPayload
	}
	return nil
}

// NeedsRegeneration reports whether a stored payload must be re-minted:
// missing, malformed, placeholder or mismatched student identity, or stale.
func (s *Service) NeedsRegeneration(stored *string, studentID, studentNumber string) bool {
	if stored == nil || *stored == "" {
		return true
	}
	p, err := s.Parse(*stored)
	if err != nil {
		return true
	}
	if p.StudentID == "" || p.StudentID == Placeholder || p.StudentID != studentID {
		return true
	}
	if p.StudentNumber != studentNumber {
		return true
	}
	return s.ValidateFreshness(p) != nil
}

// EnsureFresh returns the stored payload when it is still valid, or a freshly
// minted one (regenerated=true) that the caller must persist.
func (s *Service) EnsureFresh(stored *string, studentID, studentNumber string) (string, bool, error) {
	if !s.NeedsRegeneration(stored, studentID, studentNumber) {
		return *stored, false, nil
	}
	raw, err := Encode(s.Issue(studentID, studentNumber))
	if err != nil {
		return "", false, err
	}
	return raw, true, nil
}

// PNG renders a payload as a QR code image.
func PNG(payload string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(payload, qrcode.Medium, size)
}
