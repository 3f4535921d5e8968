package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"uniattend/internal/auth"
	"uniattend/internal/model"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and returns a token pair. The access token is
// also set as a cookie for browser clients.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	pair, acct, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.failErr(c, err)
		return
	}

	c.SetCookie(auth.TokenCookie, pair.AccessToken, int(h.cfg.AccessTTL.Seconds()), "/", "", false, true)
	respond(c, http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.AccessExp.Unix(),
		"account":       acct,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh mints a fresh access token from a still-valid refresh token.
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	pair, err := h.sessions.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"access_token": pair.AccessToken,
		"expires_at":   pair.AccessExp.Unix(),
	})
}

// Logout revokes the presented refresh token and clears the cookie.
func (h *Handler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}
	if err := h.sessions.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		h.failErr(c, err)
		return
	}
	c.SetCookie(auth.TokenCookie, "", -1, "/", "", false, true)
	respond(c, http.StatusOK, gin.H{"logged_out": true})
}

type registerRequest struct {
	Email         string     `json:"email" binding:"required,email"`
	Password      string     `json:"password" binding:"required,min=8"`
	Role          model.Role `json:"role" binding:"required"`
	FullName      string     `json:"full_name" binding:"required"`
	Phone         string     `json:"phone"`
	DepartmentID  *string    `json:"department_id"`
	GroupID       *string    `json:"group_id"`
	StudentNumber *string    `json:"student_number"`
}

// RegisterAccount creates an account of any role. Admin only.
func (h *Handler) RegisterAccount(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}
	if !req.Role.Valid() {
		fail(c, http.StatusBadRequest, "unknown role")
		return
	}
	if req.Role == model.RoleStudent && req.StudentNumber == nil {
		fail(c, http.StatusBadRequest, "student_number required for students")
		return
	}

	acct, err := h.sessions.Register(c.Request.Context(), auth.RegisterInput{
		Email:         req.Email,
		Password:      req.Password,
		Role:          req.Role,
		FullName:      req.FullName,
		Phone:         req.Phone,
		DepartmentID:  req.DepartmentID,
		GroupID:       req.GroupID,
		StudentNumber: req.StudentNumber,
	})
	if err != nil {
		h.failErr(c, err)
		return
	}
	respond(c, http.StatusCreated, acct)
}
