package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"uniattend/internal/auth"
	"uniattend/internal/model"
	"uniattend/internal/reports"
)

// reportFilter builds the aggregation filter from query params. Students are
// pinned to their own records. An error response has already been written
// when the second return value is false.
func reportFilter(c *gin.Context) (reports.Filter, bool) {
	claims, _ := auth.FromContext(c)
	f := reports.Filter{
		StudentID:    c.Query("student_id"),
		GroupID:      c.Query("group_id"),
		DoctorID:     c.Query("doctor_id"),
		DepartmentID: c.Query("department_id"),
	}
	if claims.Role == model.RoleStudent {
		f.StudentID = claims.Subject
	}
	var err error
	if f.From, err = parseDate(c.Query("from")); err != nil {
		fail(c, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return reports.Filter{}, false
	}
	if f.To, err = parseDate(c.Query("to")); err != nil {
		fail(c, http.StatusBadRequest, "to must be YYYY-MM-DD")
		return reports.Filter{}, false
	}
	return f, true
}

// ReportSummary returns status counts and attendance percentage for a filter.
func (h *Handler) ReportSummary(c *gin.Context) {
	f, ok := reportFilter(c)
	if !ok {
		return
	}
	summary, err := h.reports.Overall(c.Request.Context(), f)
	if err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusOK, summary)
}

// ReportDaily returns per-day rollups.
func (h *Handler) ReportDaily(c *gin.Context) {
	f, ok := reportFilter(c)
	if !ok {
		return
	}
	rows, err := h.reports.Daily(c.Request.Context(), f)
	if err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusOK, rows)
}

// ReportMonthly returns per-month rollups.
func (h *Handler) ReportMonthly(c *gin.Context) {
	f, ok := reportFilter(c)
	if !ok {
		return
	}
	rows, err := h.reports.Monthly(c.Request.Context(), f)
	if err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusOK, rows)
}

// ReportStudents returns per-student rollups. Staff only.
func (h *Handler) ReportStudents(c *gin.Context) {
	f, ok := reportFilter(c)
	if !ok {
		return
	}
	rows, err := h.reports.PerStudent(c.Request.Context(), f)
	if err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusOK, rows)
}

// ReportGroups returns per-group rollups. Staff only.
func (h *Handler) ReportGroups(c *gin.Context) {
	f, ok := reportFilter(c)
	if !ok {
		return
	}
	rows, err := h.reports.PerGroup(c.Request.Context(), f)
	if err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusOK, rows)
}
