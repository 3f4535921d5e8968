package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"uniattend/internal/model"
)

type departmentRequest struct {
	Name        string `json:"name" binding:"required"`
	Code        string `json:"code" binding:"required"`
	Description string `json:"description"`
}

// CreateDepartment inserts a department. Admin only.
func (h *Handler) CreateDepartment(c *gin.Context) {
	var req departmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}
	dept := model.Department{Name: req.Name, Code: req.Code, Description: req.Description}
	if err := h.academic.CreateDepartment(c.Request.Context(), &dept); err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusCreated, dept)
}

// ListDepartments returns all departments.
func (h *Handler) ListDepartments(c *gin.Context) {
	depts, err := h.academic.ListDepartments(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusOK, depts)
}

// GetDepartment returns one department.
func (h *Handler) GetDepartment(c *gin.Context) {
	dept, err := h.academic.GetDepartment(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusOK, dept)
}

type departmentUpdateRequest struct {
	Name        *string `json:"name"`
	Code        *string `json:"code"`
	Description *string `json:"description"`
}

// UpdateDepartment updates department fields. Admin only.
func (h *Handler) UpdateDepartment(c *gin.Context) {
	var req departmentUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}
	id := c.Param("id")
	if err := h.academic.UpdateDepartment(c.Request.Context(), id, req.Name, req.Code, req.Description); err != nil {
		h.failErr(c, err)
		return
	}
	dept, err := h.academic.GetDepartment(c.Request.Context(), id)
	if err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusOK, dept)
}

// DeleteDepartment removes an unreferenced department. Admin only.
func (h *Handler) DeleteDepartment(c *gin.Context) {
	if err := h.academic.DeleteDepartment(c.Request.Context(), c.Param("id")); err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": true})
}

type groupRequest struct {
	Name         string `json:"name" binding:"required"`
	Code         string `json:"code" binding:"required"`
	DepartmentID string `json:"department_id" binding:"required"`
	Year         int    `json:"year" binding:"required"`
	Semester     int    `json:"semester"`
	Capacity     int    `json:"capacity"`
}

// CreateGroup inserts a group. Admin only.
func (h *Handler) CreateGroup(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}
	group := model.Group{
		Name:         req.Name,
		Code:         req.Code,
		DepartmentID: req.DepartmentID,
		Year:         req.Year,
		Semester:     req.Semester,
		Capacity:     req.Capacity,
	}
	if group.Semester == 0 {
		group.Semester = 1
	}
	if err := h.academic.CreateGroup(c.Request.Context(), &group); err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusCreated, group)
}

// ListGroups returns groups, optionally filtered by department.
func (h *Handler) ListGroups(c *gin.Context) {
	groups, err := h.academic.ListGroups(c.Request.Context(), c.Query("department_id"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusOK, groups)
}

// GetGroup returns one group.
func (h *Handler) GetGroup(c *gin.Context) {
	group, err := h.academic.GetGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusOK, group)
}

type groupUpdateRequest struct {
	Name     *string `json:"name"`
	Code     *string `json:"code"`
	Year     *int    `json:"year"`
	Semester *int    `json:"semester"`
	Capacity *int    `json:"capacity"`
}

// UpdateGroup updates group fields. Admin only.
func (h *Handler) UpdateGroup(c *gin.Context) {
	var req groupUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}
	id := c.Param("id")
	if err := h.academic.UpdateGroup(c.Request.Context(), id, req.Name, req.Code, req.Year, req.Semester, req.Capacity); err != nil {
		h.failErr(c, err)
		return
	}
	group, err := h.academic.GetGroup(c.Request.Context(), id)
	if err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusOK, group)
}

// DeleteGroup removes an unreferenced group. Admin only.
func (h *Handler) DeleteGroup(c *gin.Context) {
	if err := h.academic.DeleteGroup(c.Request.Context(), c.Param("id")); err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": true})
}

// AssignDoctor adds a group to a doctor's assigned set. Admin only.
func (h *Handler) AssignDoctor(c *gin.Context) {
	doctorID := c.Param("doctorId")
	groupID := c.Param("id")

	doctor, err := h.accounts.GetByID(c.Request.Context(), doctorID)
	if err != nil {
		h.failErr(c, err)
		return
	}
	if doctor.Role != model.RoleDoctor {
		fail(c, http.StatusBadRequest, "account is not a doctor")
		return
	}
	if _, err := h.academic.GetGroup(c.Request.Context(), groupID); err != nil {
		h.failErr(c, err)
		return
	}
	if err := h.accounts.AssignDoctorGroup(c.Request.Context(), doctorID, groupID); err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"assigned": true})
}

// UnassignDoctor removes a group from a doctor's assigned set. Admin only.
func (h *Handler) UnassignDoctor(c *gin.Context) {
	if err := h.accounts.UnassignDoctorGroup(c.Request.Context(), c.Param("doctorId"), c.Param("id")); err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"assigned": false})
}
