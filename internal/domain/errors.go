package domain

import (
	"fmt"
	"net/http"
	"strings"
)

type ErrorCode string

const (
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeInvalidInterviewers ErrorCode = "INVALID_INTERVIEWERS"
	ErrCodeSchedulingConflict  ErrorCode = "SCHEDULING_CONFLICT"
	ErrCodeTerminalState       ErrorCode = "TERMINAL_STATE"
	ErrCodeNotAssigned         ErrorCode = "NOT_ASSIGNED"
	ErrCodeWrongStatus         ErrorCode = "WRONG_STATUS"
	ErrCodeInvalidDuration     ErrorCode = "INVALID_DURATION"
	ErrCodeValidation          ErrorCode = "VALIDATION"
	ErrCodeInternal            ErrorCode = "INTERNAL"
)

// AppError keeps domain level errors consistent.
type AppError struct {
	Code    ErrorCode
	Message string
	Status  int
	Err     error

	// Conflicts carries the ids of conflicting interviews for
	// ErrCodeSchedulingConflict; empty otherwise.
	Conflicts []string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewNotFoundError(message string, err error) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message, Status: http.StatusNotFound, Err: err}
}

func NewInvalidInterviewersError(missing []string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidInterviewers,
		Message: fmt.Sprintf("interviewers not active or not found: %s", strings.Join(missing, ", ")),
		Status:  http.StatusUnprocessableEntity,
	}
}

func NewSchedulingConflictError(conflictIDs []string) *AppError {
	return &AppError{
		Code:      ErrCodeSchedulingConflict,
		Message:   "requested time overlaps existing interviews for one or more interviewers",
		Status:    http.StatusConflict,
		Conflicts: conflictIDs,
	}
}

func NewTerminalStateError(status Status) *AppError {
	return &AppError{
		Code:    ErrCodeTerminalState,
		Message: fmt.Sprintf("interview in status %q cannot be modified", status),
		Status:  http.StatusConflict,
	}
}

func NewNotAssignedError() *AppError {
	return &AppError{Code: ErrCodeNotAssigned, Message: "interviewer is not assigned to this interview", Status: http.StatusForbidden}
}

func NewWrongStatusError(status Status) *AppError {
	return &AppError{
		Code:    ErrCodeWrongStatus,
		Message: fmt.Sprintf("feedback requires a completed interview, current status is %q", status),
		Status:  http.StatusConflict,
	}
}

func NewInvalidDurationError() *AppError {
	return &AppError{Code: ErrCodeInvalidDuration, Message: "duration must be a positive number of minutes", Status: http.StatusBadRequest}
}

func NewValidationError(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Status: http.StatusBadRequest}
}
