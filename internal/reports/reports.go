// Package reports computes read-only rollups over attendance records.
package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"uniattend/internal/model"
)

// Filter narrows an aggregation. Zero values are ignored.
type Filter struct {
	StudentID    string
	GroupID      string
	DoctorID     string
	DepartmentID string
	From         time.Time
	To           time.Time
}

// Summary is the count-by-status rollup for a filter.
type Summary struct {
	Total      int     `json:"total"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Late       int     `json:"late"`
	Excused    int     `json:"excused"`
	Percentage float64 `json:"percentage"`
}

// DailyRow is a Summary for one lecture day.
type DailyRow struct {
	Date string `json:"date"`
	Summary
}

// MonthlyRow is a Summary for one calendar month.
type MonthlyRow struct {
	Month string `json:"month"`
	Summary
}

// StudentRow is a Summary for one student.
type StudentRow struct {
	StudentID     string `json:"student_id"`
	FullName      string `json:"full_name"`
	StudentNumber string `json:"student_number"`
	Summary
}

// GroupRow is a Summary for one group.
type GroupRow struct {
	GroupID   string `json:"group_id"`
	GroupName string `json:"group_name"`
	GroupCode string `json:"group_code"`
	Summary
}

// Aggregator runs the report queries, caching summaries briefly in Redis.
type Aggregator struct {
	db       *sql.DB
	cache    *redis.Client
	cacheTTL time.Duration
}

// NewAggregator creates an aggregator. cache may be nil.
func NewAggregator(db *sql.DB, cache *redis.Client) *Aggregator {
	return &Aggregator{db: db, cache: cache, cacheTTL: time.Minute}
}

// Percentage computes present/total*100 rounded to two decimals, 0 when the
// total is zero.
func Percentage(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(present)/float64(total)*10000) / 100
}

func (s *Summary) add(status model.Status, count int) {
	s.Total += count
	switch status {
	case model.StatusPresent:
		s.Present += count
	case model.StatusAbsent:
		s.Absent += count
	case model.StatusLate:
		s.Late += count
	case model.StatusExcused:
		s.Excused += count
	}
}

func (s *Summary) finish() {
	s.Percentage = Percentage(s.Present, s.Total)
}

// Overall returns the status counts matching the filter.
func (a *Aggregator) Overall(ctx context.Context, f Filter) (Summary, error) {
	if cached, ok := a.fromCache(ctx, "summary", f); ok {
		var s Summary
		if json.Unmarshal(cached, &s) == nil {
			return s, nil
		}
	}

	where, args := buildWhere(f)
	rows, err := a.db.QueryContext(ctx, `
		SELECT r.status, COUNT(*) FROM attendance_records r
		JOIN groups g ON g.id = r.group_id
		`+where+` GROUP BY r.status
	`, args...)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()

	var s Summary
	for rows.Next() {
		var status model.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, err
		}
		s.add(status, count)
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}
	s.finish()

	a.toCache(ctx, "summary", f, s)
	return s, nil
}

// Daily returns per-day rollups matching the filter.
func (a *Aggregator) Daily(ctx context.Context, f Filter) ([]DailyRow, error) {
	where, args := buildWhere(f)
	rows, err := a.db.QueryContext(ctx, `
		SELECT r.lecture_date, r.status, COUNT(*) FROM attendance_records r
		JOIN groups g ON g.id = r.group_id
		`+where+` GROUP BY r.lecture_date, r.status ORDER BY r.lecture_date
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyRow
	index := map[string]int{}
	for rows.Next() {
		var day time.Time
		var status model.Status
		var count int
		if err := rows.Scan(&day, &status, &count); err != nil {
			return nil, err
		}
		key := day.Format("2006-01-02")
		i, ok := index[key]
		if !ok {
			out = append(out, DailyRow{Date: key})
			i = len(out) - 1
			index[key] = i
		}
		out[i].add(status, count)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].finish()
	}
	return out, nil
}

// Monthly returns per-month rollups matching the filter.
func (a *Aggregator) Monthly(ctx context.Context, f Filter) ([]MonthlyRow, error) {
	where, args := buildWhere(f)
	rows, err := a.db.QueryContext(ctx, `
		SELECT date_trunc('month', r.lecture_date)::date, r.status, COUNT(*) FROM attendance_records r
		JOIN groups g ON g.id = r.group_id
		`+where+` GROUP BY 1, r.status ORDER BY 1
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MonthlyRow
	index := map[string]int{}
	for rows.Next() {
		var month time.Time
		var status model.Status
		var count int
		if err := rows.Scan(&month, &status, &count); err != nil {
			return nil, err
		}
		key := month.Format("2006-01")
		i, ok := index[key]
		if !ok {
			out = append(out, MonthlyRow{Month: key})
			i = len(out) - 1
			index[key] = i
		}
		out[i].add(status, count)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].finish()
	}
	return out, nil
}

// PerStudent returns per-student rollups matching the filter.
func (a *Aggregator) PerStudent(ctx context.Context, f Filter) ([]StudentRow, error) {
	where, args := buildWhere(f)
	rows, err := a.db.QueryContext(ctx, `
		SELECT r.student_id, s.full_name, COALESCE(s.student_number, ''), r.status, COUNT(*)
		FROM attendance_records r
		JOIN groups g ON g.id = r.group_id
		JOIN accounts s ON s.id = r.student_id
		`+where+` GROUP BY r.student_id, s.full_name, s.student_number, r.status
		ORDER BY s.full_name
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StudentRow
	index := map[string]int{}
	for rows.Next() {
		var row StudentRow
		var status model.Status
		var count int
		if err := rows.Scan(&row.StudentID, &row.FullName, &row.StudentNumber, &status, &count); err != nil {
			return nil, err
		}
		i, ok := index[row.StudentID]
		if !ok {
			out = append(out, row)
			i = len(out) - 1
			index[row.StudentID] = i
		}
		out[i].add(status, count)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].finish()
	}
	return out, nil
}

// PerGroup returns per-group rollups matching the filter.
func (a *Aggregator) PerGroup(ctx context.Context, f Filter) ([]GroupRow, error) {
	where, args := buildWhere(f)
	rows, err := a.db.QueryContext(ctx, `
		SELECT r.group_id, g.name, g.code, r.status, COUNT(*)
		FROM attendance_records r
		JOIN groups g ON g.id = r.group_id
		`+where+` GROUP BY r.group_id, g.name, g.code, r.status
		ORDER BY g.name
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GroupRow
	index := map[string]int{}
	for rows.Next() {
		var row GroupRow
		var status model.Status
		var count int
		if err := rows.Scan(&row.GroupID, &row.GroupName, &row.GroupCode, &status, &count); err != nil {
			return nil, err
		}
		i, ok := index[row.GroupID]
		if !ok {
			out = append(out, row)
			i = len(out) - 1
			index[row.GroupID] = i
		}
		out[i].add(status, count)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].finish()
	}
	return out, nil
}

func buildWhere(f Filter) (string, []any) {
	clauses := []string{}
	args := []any{}
	add := func(clause string, v any) {
		args = append(args, v)
		clauses = append(clauses, clause+" $"+strconv.Itoa(len(args)))
	}
	if f.StudentID != "" {
		add("r.student_id =", f.StudentID)
	}
	if f.GroupID != "" {
		add("r.group_id =", f.GroupID)
	}
	if f.DoctorID != "" {
		add("r.doctor_id =", f.DoctorID)
	}
	if f.DepartmentID != "" {
		add("g.department_id =", f.DepartmentID)
	}
	if !f.From.IsZero() {
		add("r.lecture_date >=", f.From)
	}
	if !f.To.IsZero() {
		add("r.lecture_date <=", f.To)
	}
	if len(clauses) == 0 {
		return "", args
	}
	where := "WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

func (a *Aggregator) cacheKey(kind string, f Filter) string {
	return fmt.Sprintf("reports:%s:%s:%s:%s:%s:%d:%d",
		kind, f.StudentID, f.GroupID, f.DoctorID, f.DepartmentID, f.From.Unix(), f.To.Unix())
}

// fromCache is best-effort; any cache failure falls through to the database.
func (a *Aggregator) fromCache(ctx context.Context, kind string, f Filter) ([]byte, bool) {
	if a.cache == nil {
		return nil, false
	}
	raw, err := a.cache.Get(ctx, a.cacheKey(kind, f)).Bytes()
	if err != nil {
		return nil, false
	}
	return raw, true
}

func (a *Aggregator) toCache(ctx context.Context, kind string, f Filter, v any) {
	if a.cache == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = a.cache.Set(ctx, a.cacheKey(kind, f), raw, a.cacheTTL).Err()
}
