package academic

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"uniattend/internal/model"
)

var (
	// ErrNotFound is returned when no department or group matches.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned on unique name/code collisions.
	ErrDuplicate = errors.New("duplicate name or code")
	// ErrInUse is returned when deleting a row other rows still reference.
	ErrInUse = errors.New("still referenced")
)

// Repository persists the department/group hierarchy.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateDepartment inserts a department.
func (r *Repository) CreateDepartment(ctx context.Context, d *model.Department) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO departments (id, name, code, description)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, d.ID, d.Name, d.Code, d.Description)
	return translate(row.Scan(&d.CreatedAt))
}

// GetDepartment returns a department by id.
func (r *Repository) GetDepartment(ctx context.Context, id string) (*model.Department, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, code, description, created_at FROM departments WHERE id = $1
	`, id)
	var d model.Department
	if err := row.Scan(&d.ID, &d.Name, &d.Code, &d.Description, &d.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// ListDepartments returns all departments ordered by name.
func (r *Repository) ListDepartments(ctx context.Context) ([]model.Department, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, code, description, created_at FROM departments ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Department
	for rows.Next() {
		var d model.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Code, &d.Description, &d.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

// UpdateDepartment updates name/code/description. Nil pointers keep stored values.
func (r *Repository) UpdateDepartment(ctx context.Context, id string, name, code, description *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE departments SET
			name        = COALESCE($2, name),
			code        = COALESCE($3, code),
			description = COALESCE($4, description)
		WHERE id = $1
	`, id, name, code, description)
	if err != nil {
		return translate(err)
	}
	return affected(res)
}

// DeleteDepartment removes an unreferenced department.
func (r *Repository) DeleteDepartment(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	return affected(res)
}

// CreateGroup inserts a group.
func (r *Repository) CreateGroup(ctx context.Context, g *model.Group) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO groups (id, name, code, department_id, year, semester, capacity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, g.ID, g.Name, g.Code, g.DepartmentID, g.Year, g.Semester, g.Capacity)
	return translate(row.Scan(&g.CreatedAt))
}

// GetGroup returns a group by id.
func (r *Repository) GetGroup(ctx context.Context, id string) (*model.Group, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, code, department_id, year, semester, capacity, created_at
		FROM groups WHERE id = $1
	`, id)
	var g model.Group
	if err := row.Scan(&g.ID, &g.Name, &g.Code, &g.DepartmentID, &g.Year, &g.Semester, &g.Capacity, &g.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// ListGroups returns groups, optionally filtered by department.
func (r *Repository) ListGroups(ctx context.Context, departmentID string) ([]model.Group, error) {
	query := `SELECT id, name, code, department_id, year, semester, capacity, created_at FROM groups`
	args := []any{}
	if departmentID != "" {
		query += ` WHERE department_id = $1`
		args = append(args, departmentID)
	}
	query += ` ORDER BY year, name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Code, &g.DepartmentID, &g.Year, &g.Semester, &g.Capacity, &g.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, g)
	}
	return res, rows.Err()
}

// UpdateGroup updates mutable group fields. Nil pointers keep stored values.
func (r *Repository) UpdateGroup(ctx context.Context, id string, name, code *string, year, semester, capacity *int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE groups SET
			name     = COALESCE($2, name),
			code     = COALESCE($3, code),
			year     = COALESCE($4, year),
			semester = COALESCE($5, semester),
			capacity = COALESCE($6, capacity)
		WHERE id = $1
	`, id, name, code, year, semester, capacity)
	if err != nil {
		return translate(err)
	}
	return affected(res)
}

// DeleteGroup removes an unreferenced group.
func (r *Repository) DeleteGroup(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	return affected(res)
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrDuplicate
		case "23503":
			return ErrInUse
		}
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
