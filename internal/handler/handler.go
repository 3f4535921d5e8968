// Package handler wires the HTTP surface: request binding, role gates and the
// mapping from domain errors to the response taxonomy.
package handler

import (
	"github.com/gin-gonic/gin"

	"uniattend/internal/academic"
	"uniattend/internal/attendance"
	"uniattend/internal/auth"
	"uniattend/internal/config"
	"uniattend/internal/identity"
	"uniattend/internal/model"
	"uniattend/internal/qr"
	"uniattend/internal/reports"
)

type Handler struct {
	cfg      config.App
	accounts *identity.Repository
	academic *academic.Repository
	recorder *attendance.Service
	records  *attendance.Repository
	sessions *auth.Service
	reports  *reports.Aggregator
	qr       *qr.Service
}

func New(cfg config.App, accounts *identity.Repository, academicRepo *academic.Repository,
	recorder *attendance.Service, records *attendance.Repository,
	sessions *auth.Service, agg *reports.Aggregator, qrs *qr.Service) *Handler {
	return &Handler{
		cfg:      cfg,
		accounts: accounts,
		academic: academicRepo,
		recorder: recorder,
		records:  records,
		sessions: sessions,
		reports:  agg,
		qr:       qrs,
	}
}

// Register mounts all routes under /v1.
func (h *Handler) Register(r *gin.Engine) {
	authed := auth.Middleware(h.cfg.JWTSigningKey, h.cfg.JWTIssuer)
	adminOnly := auth.RequireRole(model.RoleAdmin)
	staffOnly := auth.RequireRole(model.RoleAdmin, model.RoleDoctor)

	v1 := r.Group("/v1")

	v1.POST("/auth/login", h.Login)
	v1.POST("/auth/refresh", h.Refresh)
	v1.POST("/auth/logout", authed, h.Logout)
	v1.POST("/auth/register", authed, adminOnly, h.RegisterAccount)

	v1.GET("/students", authed, staffOnly, h.ListStudents)
	v1.GET("/students/:id", authed, h.GetStudent)
	v1.PUT("/students/:id", authed, adminOnly, h.UpdateAccount)
	v1.DELETE("/students/:id", authed, adminOnly, h.DeleteStudent)
	v1.GET("/students/:id/qr", authed, h.StudentQR)
	v1.GET("/students/:id/qr.png", authed, h.StudentQRImage)

	v1.GET("/doctors", authed, adminOnly, h.ListDoctors)
	v1.PUT("/doctors/:id", authed, adminOnly, h.UpdateAccount)
	v1.DELETE("/doctors/:id", authed, adminOnly, h.DeactivateAccount)

	v1.POST("/attendance/scan", authed, staffOnly, h.Scan)
	v1.POST("/attendance/record", authed, staffOnly, h.Record)
	v1.POST("/attendance/bulk-record", authed, staffOnly, h.BulkRecord)
	v1.GET("/attendance", authed, h.ListAttendance)
	v1.PATCH("/attendance/:id", authed, staffOnly, h.UpdateAttendance)

	v1.GET("/reports/summary", authed, h.ReportSummary)
	v1.GET("/reports/daily", authed, h.ReportDaily)
	v1.GET("/reports/monthly", authed, h.ReportMonthly)
	v1.GET("/reports/students", authed, staffOnly, h.ReportStudents)
	v1.GET("/reports/groups", authed, staffOnly, h.ReportGroups)

	v1.POST("/departments", authed, adminOnly, h.CreateDepartment)
	v1.GET("/departments", authed, h.ListDepartments)
	v1.GET("/departments/:id", authed, h.GetDepartment)
	v1.PUT("/departments/:id", authed, adminOnly, h.UpdateDepartment)
	v1.DELETE("/departments/:id", authed, adminOnly, h.DeleteDepartment)

	v1.POST("/groups", authed, adminOnly, h.CreateGroup)
	v1.GET("/groups", authed, h.ListGroups)
	v1.GET("/groups/:id", authed, h.GetGroup)
	v1.PUT("/groups/:id", authed, adminOnly, h.UpdateGroup)
	v1.DELETE("/groups/:id", authed, adminOnly, h.DeleteGroup)
	v1.POST("/groups/:id/doctors/:doctorId", authed, adminOnly, h.AssignDoctor)
	v1.DELETE("/groups/:id/doctors/:doctorId", authed, adminOnly, h.UnassignDoctor)
}
