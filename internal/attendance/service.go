package attendance

import (
	"context"
	"errors"
	"time"

	"uniattend/internal/identity"
	"uniattend/internal/model"
	"uniattend/internal/qr"
)

var (
	// ErrStudentNotFound is returned when the target student does not exist.
	ErrStudentNotFound = errors.New("student not found")
	// ErrInactiveAccount is returned when the student account is disabled.
	ErrInactiveAccount = errors.New("account inactive")
	// ErrNotInGroup is returned when the student does not belong to the group.
	ErrNotInGroup = errors.New("student not in group")
	// ErrNotAssigned is returned when a doctor records for a group outside their assigned set.
	ErrNotAssigned = errors.New("doctor not assigned to group")
	// ErrDuplicateForDay is returned when a non-absent record already exists for the day.
	ErrDuplicateForDay = errors.New("attendance already recorded for this day")
	// ErrNotRecorder is returned when someone other than the recording doctor or an admin edits a record.
	ErrNotRecorder = errors.New("only the recording doctor or an admin may modify this record")
	// ErrInvalidInput is returned for unknown status or source values.
	ErrInvalidInput = errors.New("invalid attendance input")
)

// AccountDirectory is the slice of the identity store the recorder needs.
type AccountDirectory interface {
	GetByID(ctx context.Context, id string) (*model.Account, error)
	DoctorGroupIDs(ctx context.Context, doctorID string) ([]string, error)
}

// RecordStore is the slice of the attendance repository the recorder needs.
type RecordStore interface {
	HasRecordForDay(ctx context.Context, studentID, groupID string, day time.Time) (bool, error)
	Insert(ctx context.Context, rec *model.AttendanceRecord) error
	GetByID(ctx context.Context, id string) (*model.AttendanceRecord, error)
	Update(ctx context.Context, id string, status *model.Status, notes *string) (*model.AttendanceRecord, error)
}

// Service is the attendance recording rule engine.
type Service struct {
	records  RecordStore
	accounts AccountDirectory
	qr       *qr.Service
}

// NewService creates a service.
func NewService(records RecordStore, accounts AccountDirectory, qrs *qr.Service) *Service {
	return &Service{records: records, accounts: accounts, qr: qrs}
}

// RecordInput carries one attendance mutation.
type RecordInput struct {
	StudentID       string
	GroupID         string
	CallerID        string
	CallerRole      model.Role
	Date            time.Time
	Status          model.Status
	Source          model.Source
	Notes           string
	Subject         string
	LectureNumber   *int
	DurationMinutes *int
}

// Record applies the recording rules in order, short-circuiting on the first
// failure, and persists the record. Retrying the same input on the same day
// fails with ErrDuplicateForDay and leaves the store unchanged.
func (s *Service) Record(ctx context.Context, in RecordInput) (model.AttendanceRecord, error) {
	if !in.Status.Valid() || !in.Source.Valid() {
		return model.AttendanceRecord{}, ErrInvalidInput
	}

	student, err := s.accounts.GetByID(ctx, in.StudentID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return model.AttendanceRecord{}, ErrStudentNotFound
		}
		return model.AttendanceRecord{}, err
	}
	if student.Role != model.RoleStudent {
		return model.AttendanceRecord{}, ErrStudentNotFound
	}
	if !student.Active {
		return model.AttendanceRecord{}, ErrInactiveAccount
	}
	if student.GroupID == nil || *student.GroupID != in.GroupID {
		return model.AttendanceRecord{}, ErrNotInGroup
	}

	if in.CallerRole == model.RoleDoctor {
		groups, err := s.accounts.DoctorGroupIDs(ctx, in.CallerID)
		if err != nil {
			return model.AttendanceRecord{}, err
		}
		if !contains(groups, in.GroupID) {
			return model.AttendanceRecord{}, ErrNotAssigned
		}
	}

	day := startOfDay(in.Date)
	exists, err := s.records.HasRecordForDay(ctx, in.StudentID, in.GroupID, day)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	if exists {
		return model.AttendanceRecord{}, ErrDuplicateForDay
	}

	rec := model.AttendanceRecord{
		StudentID:       in.StudentID,
		GroupID:         in.GroupID,
		DoctorID:        in.CallerID,
		LectureDate:     day,
		Status:          in.Status,
		Source:          in.Source,
		Notes:           in.Notes,
		Subject:         in.Subject,
		LectureNumber:   in.LectureNumber,
		DurationMinutes: in.DurationMinutes,
	}
	if err := s.records.Insert(ctx, &rec); err != nil {
		return model.AttendanceRecord{}, err
	}
	recordsTotal.WithLabelValues(string(rec.Source), string(rec.Status)).Inc()
	return rec, nil
}

// BulkResult is the per-item outcome of RecordBulk.
type BulkResult struct {
	Index  int                     `json:"index"`
	Record *model.AttendanceRecord `json:"record,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

// RecordBulk applies Record per item. One item's failure does not abort or
// roll back the others.
func (s *Service) RecordBulk(ctx context.Context, inputs []RecordInput) []BulkResult {
	results := make([]BulkResult, 0, len(inputs))
	for i, in := range inputs {
		rec, err := s.Record(ctx, in)
		res := BulkResult{Index: i}
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Record = &rec
		}
		results = append(results, res)
	}
	return results
}

// Scan validates a raw QR payload, cross-checks the embedded identity against
// the stored account, and records the student present with source qr_scan.
func (s *Service) Scan(ctx context.Context, rawPayload, groupID, callerID string, callerRole model.Role, date time.Time) (model.AttendanceRecord, error) {
	p, err := s.qr.Parse(rawPayload)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	if err := s.qr.ValidateFreshness(p); err != nil {
		return model.AttendanceRecord{}, err
	}
	if p.StudentID == "" || p.StudentID == qr.Placeholder {
		return model.AttendanceRecord{}, qr.ErrMalformedPayload
	}

	student, err := s.accounts.GetByID(ctx, p.StudentID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return model.AttendanceRecord{}, ErrStudentNotFound
		}
		return model.AttendanceRecord{}, err
	}
	if student.StudentNumber == nil || *student.StudentNumber != p.StudentNumber {
		return model.AttendanceRecord{}, qr.ErrMalformedPayload
	}
	groupID, err = s.scanGroup(student, groupID)
	if err != nil {
		return model.AttendanceRecord{}, err
	}

	if date.IsZero() {
		date = time.Now()
	}
	return s.Record(ctx, RecordInput{
		StudentID:  student.ID,
		GroupID:    groupID,
		CallerID:   callerID,
		CallerRole: callerRole,
		Date:       date,
		Status:     model.StatusPresent,
		Source:     model.SourceQRScan,
	})
}

// Modify updates status/notes of a record; only the recording doctor or an
// admin may do so.
func (s *Service) Modify(ctx context.Context, id, callerID string, callerRole model.Role, status *model.Status, notes *string) (model.AttendanceRecord, error) {
	if status != nil && !status.Valid() {
		return model.AttendanceRecord{}, ErrInvalidInput
	}
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	if callerRole != model.RoleAdmin && rec.DoctorID != callerID {
		return model.AttendanceRecord{}, ErrNotRecorder
	}
	updated, err := s.records.Update(ctx, id, status, notes)
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	return *updated, nil
}

// scanGroup resolves the group a scan applies to: the request may name it, but
// it must match the student's own group either way.
func (s *Service) scanGroup(student *model.Account, groupID string) (string, error) {
	if student.GroupID == nil {
		return "", ErrNotInGroup
	}
	if groupID == "" {
		return *student.GroupID, nil
	}
	if groupID != *student.GroupID {
		return "", ErrNotInGroup
	}
	return groupID, nil
}

// startOfDay truncates the supplied timestamp to its local calendar day.
func startOfDay(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
