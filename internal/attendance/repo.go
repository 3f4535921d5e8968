package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"uniattend/internal/model"
)

// ErrRecordNotFound is returned when no attendance record matches.
var ErrRecordNotFound = errors.New("attendance record not found")

const recordColumns = `id, student_id, group_id, doctor_id, lecture_date, status, source,
	notes, subject, lecture_number, duration_minutes, created_at, updated_at`

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// HasRecordForDay reports whether a non-absent record already exists for the
// student and group on the given calendar day.
func (r *Repository) HasRecordForDay(ctx context.Context, studentID, groupID string, day time.Time) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM attendance_records
			WHERE student_id = $1 AND group_id = $2 AND lecture_date = $3 AND status <> 'absent'
		)
	`, studentID, groupID, day)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

// Insert writes a new record. A concurrent duplicate loses the race on the
// partial unique index and comes back as ErrDuplicateForDay.
func (r *Repository) Insert(ctx context.Context, rec *model.AttendanceRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (id, student_id, group_id, doctor_id, lecture_date,
			status, source, notes, subject, lecture_number, duration_minutes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at
	`, rec.ID, rec.StudentID, rec.GroupID, rec.DoctorID, rec.LectureDate,
		rec.Status, rec.Source, rec.Notes, rec.Subject, rec.LectureNumber, rec.DurationMinutes)
	if err := row.Scan(&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateForDay
		}
		return err
	}
	return nil
}

// GetByID returns a single record.
func (r *Repository) GetByID(ctx context.Context, id string) (*model.AttendanceRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM attendance_records WHERE id = $1`, id)
	return scanRecord(row)
}

// Update changes status and/or notes of an existing record.
func (r *Repository) Update(ctx context.Context, id string, status *model.Status, notes *string) (*model.AttendanceRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE attendance_records SET
			status     = COALESCE($2, status),
			notes      = COALESCE($3, notes),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+recordColumns+`
	`, id, status, notes)
	return scanRecord(row)
}

// Filter narrows List queries. Zero values are ignored.
type Filter struct {
	StudentID string
	GroupID   string
	DoctorID  string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// List returns records matching the filter, newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]model.AttendanceRecord, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	query := `SELECT ` + recordColumns + ` FROM attendance_records`
	args := []any{}
	clauses := []string{}
	if f.StudentID != "" {
		args = append(args, f.StudentID)
		clauses = append(clauses, "student_id = $"+strconv.Itoa(len(args)))
	}
	if f.GroupID != "" {
		args = append(args, f.GroupID)
		clauses = append(clauses, "group_id = $"+strconv.Itoa(len(args)))
	}
	if f.DoctorID != "" {
		args = append(args, f.DoctorID)
		clauses = append(clauses, "doctor_id = $"+strconv.Itoa(len(args)))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		clauses = append(clauses, "lecture_date >= $"+strconv.Itoa(len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		clauses = append(clauses, "lecture_date <= $"+strconv.Itoa(len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + joinClauses(clauses, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	query += " ORDER BY lecture_date DESC, created_at DESC LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *rec)
	}
	return res, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	err := row.Scan(
		&rec.ID, &rec.StudentID, &rec.GroupID, &rec.DoctorID, &rec.LectureDate,
		&rec.Status, &rec.Source, &rec.Notes, &rec.Subject,
		&rec.LectureNumber, &rec.DurationMinutes, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func joinClauses(parts []string, sep string) string {
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for i := 1; i < len(parts); i++ {
		out += sep + parts[i]
	}
	return out
}
