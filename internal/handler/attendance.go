package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"uniattend/internal/attendance"
	"uniattend/internal/auth"
	"uniattend/internal/model"
)

type scanRequest struct {
	Payload string `json:"payload" binding:"required"`
	GroupID string `json:"group_id"`
	Date    string `json:"date"`
}

// Scan records attendance from a QR payload. The student identity comes from
// the payload itself, cross-checked against the stored account.
func (h *Handler) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		fail(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	claims, _ := auth.FromContext(c)
	rec, err := h.recorder.Scan(c.Request.Context(), req.Payload, req.GroupID, claims.Subject, claims.Role, date)
	if err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusCreated, rec)
}

type recordRequest struct {
	StudentID       string       `json:"student_id" binding:"required"`
	GroupID         string       `json:"group_id" binding:"required"`
	Date            string       `json:"date"`
	Status          model.Status `json:"status" binding:"required"`
	Notes           string       `json:"notes"`
	Subject         string       `json:"subject"`
	LectureNumber   *int         `json:"lecture_number"`
	DurationMinutes *int         `json:"duration_minutes"`
}

func (h *Handler) recordInput(c *gin.Context, req recordRequest) (attendance.RecordInput, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return attendance.RecordInput{}, err
	}
	claims, _ := auth.FromContext(c)
	source := model.SourceManual
	if claims.Role == model.RoleAdmin {
		source = model.SourceAdmin
	}
	return attendance.RecordInput{
		StudentID:       req.StudentID,
		GroupID:         req.GroupID,
		CallerID:        claims.Subject,
		CallerRole:      claims.Role,
		Date:            date,
		Status:          req.Status,
		Source:          source,
		Notes:           req.Notes,
		Subject:         req.Subject,
		LectureNumber:   req.LectureNumber,
		DurationMinutes: req.DurationMinutes,
	}, nil
}

// Record writes one manual attendance record.
func (h *Handler) Record(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}
	in, err := h.recordInput(c, req)
	if err != nil {
		fail(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	rec, err := h.recorder.Record(c.Request.Context(), in)
	if err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusCreated, rec)
}

type bulkRecordRequest struct {
	Records []recordRequest `json:"records" binding:"required,min=1"`
}

// BulkRecord applies Record per item with partial-failure semantics: each
// item succeeds or fails on its own.
func (h *Handler) BulkRecord(c *gin.Context) {
	var req bulkRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	inputs := make([]attendance.RecordInput, 0, len(req.Records))
	for _, item := range req.Records {
		in, err := h.recordInput(c, item)
		if err != nil {
			fail(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		inputs = append(inputs, in)
	}

	results := h.recorder.RecordBulk(c.Request.Context(), inputs)
	succeeded := 0
	for _, res := range results {
		if res.Error == "" {
			succeeded++
		}
	}
	respond(c, http.StatusOK, gin.H{
		"results":   results,
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
	})
}

// ListAttendance returns records matching the query filters. Students see
// only their own records.
func (h *Handler) ListAttendance(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	limit, offset := pageParams(c)

	f := attendance.Filter{
		StudentID: c.Query("student_id"),
		GroupID:   c.Query("group_id"),
		DoctorID:  c.Query("doctor_id"),
		Limit:     limit,
		Offset:    offset,
	}
	if claims.Role == model.RoleStudent {
		f.StudentID = claims.Subject
	}
	var err error
	if f.From, err = parseDate(c.Query("from")); err != nil {
		fail(c, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return
	}
	if f.To, err = parseDate(c.Query("to")); err != nil {
		fail(c, http.StatusBadRequest, "to must be YYYY-MM-DD")
		return
	}

	records, err := h.records.List(c.Request.Context(), f)
	if err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusOK, records)
}

type updateAttendanceRequest struct {
	Status *model.Status `json:"status"`
	Notes  *string       `json:"notes"`
}

// UpdateAttendance edits status/notes; only the recording doctor or an admin.
func (h *Handler) UpdateAttendance(c *gin.Context) {
	var req updateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}
	claims, _ := auth.FromContext(c)
	rec, err := h.recorder.Modify(c.Request.Context(), c.Param("id"), claims.Subject, claims.Role, req.Status, req.Notes)
	if err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusOK, rec)
}

// parseDate accepts YYYY-MM-DD; empty means the zero time.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation("2006-01-02", s, time.Local)
}
