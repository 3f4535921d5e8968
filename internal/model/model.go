package model

import "time"

// Role distinguishes the three account kinds. Authorization logic branches on
// role uniformly, so accounts are one tagged variant rather than separate types.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RoleStudent Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleStudent:
		return true
	}
	return false
}

// Status is the attendance outcome for a lecture day.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusExcused Status = "excused"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusExcused:
		return true
	}
	return false
}

// Source marks how a record was captured.
type Source string

const (
	SourceQRScan Source = "qr_scan"
	SourceManual Source = "manual"
	SourceAdmin  Source = "admin"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceQRScan, SourceManual, SourceAdmin:
		return true
	}
	return false
}

// Account is an admin, doctor or student. Department/group links and the
// student number are populated only for the roles that carry them.
type Account struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	Role          Role       `json:"role"`
	Active        bool       `json:"active"`
	FullName      string     `json:"full_name"`
	Phone         string     `json:"phone,omitempty"`
	DepartmentID  *string    `json:"department_id,omitempty"`
	GroupID       *string    `json:"group_id,omitempty"`
	StudentNumber *string    `json:"student_number,omitempty"`
	QRPayload     *string    `json:"-"`
	LoginAttempts int        `json:"-"`
	LockUntil     *time.Time `json:"-"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Locked reports whether the account is currently login-locked.
func (a Account) Locked(threshold int, now time.Time) bool {
	return a.LoginAttempts >= threshold && a.LockUntil != nil && a.LockUntil.After(now)
}

// Department groups the academic structure at the top level.
type Department struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Group is a cohort of students inside a department.
type Group struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Code         string    `json:"code"`
	DepartmentID string    `json:"department_id"`
	Year         int       `json:"year"`
	Semester     int       `json:"semester"`
	Capacity     int       `json:"capacity"`
	CreatedAt    time.Time `json:"created_at"`
}

// AttendanceRecord is one student's outcome for one lecture day.
type AttendanceRecord struct {
	ID              string    `json:"id"`
	StudentID       string    `json:"student_id"`
	GroupID         string    `json:"group_id"`
	DoctorID        string    `json:"doctor_id"`
	LectureDate     time.Time `json:"lecture_date"`
	Status          Status    `json:"status"`
	Source          Source    `json:"source"`
	Notes           string    `json:"notes,omitempty"`
	Subject         string    `json:"subject,omitempty"`
	LectureNumber   *int      `json:"lecture_number,omitempty"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
