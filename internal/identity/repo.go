package identity

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

var (
	// ErrNotFound is returned when no account matches.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicate is returned when a unique column (email, student number) collides.
	ErrDuplicate = errors.New("duplicate account")
)

const accountColumns = `id, email, password_hash, role, active, full_name, phone,
	department_id, group_id, student_number, qr_payload,
	login_attempts, lock_until, last_login_at, created_at, updated_at`

// Repository persists accounts, doctor assignments and refresh tokens.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateAccount inserts a new account of any role.
func (r *Repository) CreateAccount(ctx context.Context, acct *model.Account) error {
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO accounts (id, email, password_hash, role, active, full_name, phone,
			department_id, group_id, student_number, qr_payload)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at
	`, acct.ID, acct.Email, acct.PasswordHash, acct.Role, acct.Active, acct.FullName, acct.Phone,
		acct.DepartmentID, acct.GroupID, acct.StudentNumber, acct.QRPayload)
	if err := row.Scan(&acct.CreatedAt, &acct.UpdatedAt); err != nil {
		return translate(err)
	}
	return nil
}

// GetByEmail returns the account with the given email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	return scanAccount(row)
}

// GetByID returns the account with the given id.
func (r *Repository) GetByID(ctx context.Context, id string) (*model.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// List returns accounts filtered by role and optional group/department.
func (r *Repository) List(ctx context.Context, role model.Role, groupID, departmentID string, limit, offset int) ([]model.Account, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE role = $1`
	args := []any{role}
	if groupID != "" {
		args = append(args, groupID)
		query += ` AND group_id = $` + itoa(len(args))
	}
	if departmentID != "" {
		args = append(args, departmentID)
		query += ` AND department_id = $` + itoa(len(args))
	}
	args = append(args, limit, offset)
	query += ` ORDER BY full_name LIMIT $` + itoa(len(args)-1) + ` OFFSET $` + itoa(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *acct)
	}
	return res, rows.Err()
}

// UpdateProfile updates mutable account fields. Nil pointers leave the stored
// value untouched.
func (r *Repository) UpdateProfile(ctx context.Context, id string, fullName, phone *string, departmentID, groupID *string, active *bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET
			full_name     = COALESCE($2, full_name),
			phone         = COALESCE($3, phone),
			department_id = COALESCE($4, department_id),
			group_id      = COALESCE($5, group_id),
			active        = COALESCE($6, active),
			updated_at    = NOW()
		WHERE id = $1
	`, id, fullName, phone, departmentID, groupID, active)
	if err != nil {
		return translate(err)
	}
	return affected(res)
}

// SetPassword replaces the stored password hash.
func (r *Repository) SetPassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1
	`, id, passwordHash)
	if err != nil {
		return err
	}
	return affected(res)
}

// SetQRPayload persists a regenerated QR payload for a student.
func (r *Repository) SetQRPayload(ctx context.Context, id, payload string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET qr_payload = $2, updated_at = NOW() WHERE id = $1
	`, id, payload)
	if err != nil {
		return err
	}
	return affected(res)
}

// Deactivate soft-disables an account.
func (r *Repository) Deactivate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET active = FALSE, updated_at = NOW() WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	return affected(res)
}

// DeleteStudent hard-deletes a student; attendance records cascade with it.
func (r *Repository) DeleteStudent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM accounts WHERE id = $1 AND role = 'student'
	`, id)
	if err != nil {
		return err
	}
	return affected(res)
}

// RecordLoginFailure stores the bumped attempt counter and, when armed, the
// lockout deadline.
func (r *Repository) RecordLoginFailure(ctx context.Context, id string, attempts int, lockUntil *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET login_attempts = $2, lock_until = $3, updated_at = NOW() WHERE id = $1
	`, id, attempts, lockUntil)
	return err
}

// RecordLoginSuccess resets the lockout counters and stamps last_login_at.
func (r *Repository) RecordLoginSuccess(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET login_attempts = 0, lock_until = NULL, last_login_at = $2, updated_at = NOW()
		WHERE id = $1
	`, id, at)
	return err
}

// SaveRefreshToken stores a refresh token hash for rotation checks.
func (r *Repository) SaveRefreshToken(ctx context.Context, tokenHash, accountID string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token_hash, account_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO NOTHING
	`, tokenHash, accountID, expiresAt)
	return err
}

// RefreshTokenAccount returns the account id behind a still-valid refresh
// token hash, or ErrNotFound when the token is unknown, revoked or expired.
func (r *Repository) RefreshTokenAccount(ctx context.Context, tokenHash string) (string, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT account_id FROM refresh_tokens
		WHERE token_hash = $1 AND NOT revoked AND expires_at > NOW()
	`, tokenHash)
	var accountID string
	if err := row.Scan(&accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return accountID, nil
}

// RevokeRefreshToken marks a token revoked.
func (r *Repository) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token_hash = $1`, tokenHash)
	return err
}

// DoctorGroupIDs returns the group ids a doctor is assigned to.
func (r *Repository) DoctorGroupIDs(ctx context.Context, doctorID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT group_id FROM doctor_groups WHERE doctor_id = $1
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AssignDoctorGroup adds a group to a doctor's assigned set.
func (r *Repository) AssignDoctorGroup(ctx context.Context, doctorID, groupID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO doctor_groups (doctor_id, group_id)
		VALUES ($1, $2)
		ON CONFLICT (doctor_id, group_id) DO NOTHING
	`, doctorID, groupID)
	return translate(err)
}

// UnassignDoctorGroup removes a group from a doctor's assigned set.
func (r *Repository) UnassignDoctorGroup(ctx context.Context, doctorID, groupID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM doctor_groups WHERE doctor_id = $1 AND group_id = $2
	`, doctorID, groupID)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*model.Account, error) {
	var acct model.Account
	err := row.Scan(
		&acct.ID, &acct.Email, &acct.PasswordHash, &acct.Role, &acct.Active,
		&acct.FullName, &acct.Phone, &acct.DepartmentID, &acct.GroupID,
		&acct.StudentNumber, &acct.QRPayload, &acct.LoginAttempts,
		&acct.LockUntil, &acct.LastLoginAt, &acct.CreatedAt, &acct.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &acct, nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func itoa(i int) string { return strconv.Itoa(i) }
