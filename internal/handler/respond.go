package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"uniattend/internal/academic"
	"uniattend/internal/attendance"
	"uniattend/internal/auth"
	"uniattend/internal/identity"
	"uniattend/internal/qr"
)

// errHandled signals that a helper already wrote the error response.
var errHandled = errors.New("response already written")

// envelope is the uniform response body.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, envelope{Success: false, Message: message})
}

func failValidation(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, envelope{Success: false, Message: "validation failed", Errors: err.Error()})
}

// failErr maps domain sentinels onto the HTTP error taxonomy. Unknown errors
// become 500s whose detail is suppressed outside development mode.
func (h *Handler) failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidRefresh):
		fail(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrAccountLocked):
		fail(c, http.StatusLocked, err.Error())
	case errors.Is(err, auth.ErrAccountInactive), errors.Is(err, attendance.ErrInactiveAccount):
		fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, attendance.ErrNotAssigned), errors.Is(err, attendance.ErrNotRecorder):
		fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, attendance.ErrStudentNotFound), errors.Is(err, attendance.ErrRecordNotFound),
		errors.Is(err, identity.ErrNotFound), errors.Is(err, academic.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, attendance.ErrDuplicateForDay), errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, identity.ErrDuplicate), errors.Is(err, academic.ErrDuplicate),
		errors.Is(err, academic.ErrInUse):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, attendance.ErrNotInGroup), errors.Is(err, attendance.ErrInvalidInput),
		errors.Is(err, qr.ErrMalformedPayload), errors.Is(err, qr.ErrExpiredPayload):
		fail(c, http.StatusBadRequest, err.Error())
	default:
		log.Printf("internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		msg := "internal error"
		if h.cfg.Dev() {
			msg = err.Error()
		}
		fail(c, http.StatusInternalServerError, msg)
	}
}
