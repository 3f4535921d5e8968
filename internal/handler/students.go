package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"uniattend/internal/auth"
	"uniattend/internal/model"
	"uniattend/internal/qr"
)

// ListStudents returns students, optionally filtered by group or department.
func (h *Handler) ListStudents(c *gin.Context) {
	limit, offset := pageParams(c)
	students, err := h.accounts.List(c.Request.Context(), model.RoleStudent,
		c.Query("group_id"), c.Query("department_id"), limit, offset)
	if err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusOK, students)
}

// ListDoctors returns doctors, optionally filtered by department.
func (h *Handler) ListDoctors(c *gin.Context) {
	limit, offset := pageParams(c)
	doctors, err := h.accounts.List(c.Request.Context(), model.RoleDoctor,
		"", c.Query("department_id"), limit, offset)
	if err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusOK, doctors)
}

// GetStudent returns one student. Students may only read themselves.
func (h *Handler) GetStudent(c *gin.Context) {
	claims, _ := auth.FromContext(c)
	id := c.Param("id")
	if claims.Role == model.RoleStudent && claims.Subject != id {
		fail(c, http.StatusForbidden, "students may only read their own record")
		return
	}
	acct, err := h.accounts.GetByID(c.Request.Context(), id)
	if err != nil {
		h.failErr(c, err)
		return
	}
	if acct.Role != model.RoleStudent {
		fail(c, http.StatusNotFound, "student not found")
		return
	}
	respond(c, http.StatusOK, acct)
}

type updateAccountRequest struct {
	FullName     *string `json:"full_name"`
	Phone        *string `json:"phone"`
	DepartmentID *string `json:"department_id"`
	GroupID      *string `json:"group_id"`
	Active       *bool   `json:"active"`
}

// UpdateAccount updates profile and assignment fields. Admin only.
func (h *Handler) UpdateAccount(c *gin.Context) {
	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}
	id := c.Param("id")
	if err := h.accounts.UpdateProfile(c.Request.Context(), id,
		req.FullName, req.Phone, req.DepartmentID, req.GroupID, req.Active); err != nil {
		h.failErr(c, err)
		return
	}
	acct, err := h.accounts.GetByID(c.Request.Context(), id)
	if err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusOK, acct)
}

// DeactivateAccount soft-disables an account.
func (h *Handler) DeactivateAccount(c *gin.Context) {
	if err := h.accounts.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deactivated": true})
}

// DeleteStudent hard-deletes a student together with their attendance records.
func (h *Handler) DeleteStudent(c *gin.Context) {
	if err := h.accounts.DeleteStudent(c.Request.Context(), c.Param("id")); err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": true})
}

// StudentQR returns the student's QR payload, regenerating and persisting it
// first when the stored one is missing, malformed, mismatched or stale.
func (h *Handler) StudentQR(c *gin.Context) {
	payload, err := h.freshPayload(c)
	if err != nil {
		return
	}
	respond(c, http.StatusOK, gin.H{"payload": payload})
}

// StudentQRImage renders the payload as a PNG QR code.
func (h *Handler) StudentQRImage(c *gin.Context) {
	payload, err := h.freshPayload(c)
	if err != nil {
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "256"))
	png, err := qr.PNG(payload, size)
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// freshPayload authorizes the caller and applies the lazy-repair rule. On
// error it has already written the response.
func (h *Handler) freshPayload(c *gin.Context) (string, error) {
	claims, _ := auth.FromContext(c)
	id := c.Param("id")
	if claims.Role == model.RoleStudent && claims.Subject != id {
		fail(c, http.StatusForbidden, "students may only read their own QR code")
		return "", errHandled
	}

	acct, err := h.accounts.GetByID(c.Request.Context(), id)
	if err != nil {
		h.failErr(c, err)
		return "", err
	}
	if acct.Role != model.RoleStudent || acct.StudentNumber == nil {
		fail(c, http.StatusNotFound, "student not found")
		return "", errHandled
	}

	payload, regenerated, err := h.qr.EnsureFresh(acct.QRPayload, acct.ID, *acct.StudentNumber)
	if err != nil {
		h.failErr(c, err)
		return "", err
	}
	if regenerated {
		if err := h.accounts.SetQRPayload(c.Request.Context(), acct.ID, payload); err != nil {
			h.failErr(c, err)
			return "", err
		}
	}
	return payload, nil
}

func pageParams(c *gin.Context) (int, int) {
	limit, offset := 50, 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	return limit, offset
}
