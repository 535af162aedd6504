package services

import (
	"errors"
	"fmt"

	apperrors "github.com/classquiz/attempt-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")
	ErrConflict         = errors.New("resource conflict")

	// Quiz specific errors
	ErrQuizNotFound = errors.New("quiz not found")

	// Attempt specific errors
	ErrAttemptNotFound         = errors.New("attempt not found")
	ErrAttemptAccessDenied     = errors.New("access denied to attempt")
	ErrAttemptNotActive        = errors.New("attempt is not active")
	ErrAttemptAlreadyFinished  = errors.New("attempt already finished")
	ErrAttemptTimeExpired      = errors.New("attempt time has expired")
	ErrUnknownAnswerKey        = errors.New("answer key does not belong to quiz")
	ErrMalformedAnswersPayload = errors.New("malformed answers payload")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type PermissionError struct {
	StudentID string `json:"student_id"`
	AttemptID string `json:"attempt_id"`
	Action    string `json:"action"`
	Reason    string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: student %s cannot %s attempt %s - %s",
		pe.StudentID, pe.Action, pe.AttemptID, pe.Reason)
}

func NewPermissionError(studentID, attemptID, action, reason string) *PermissionError {
	return &PermissionError{
		StudentID: studentID,
		AttemptID: attemptID,
		Action:    action,
		Reason:    reason,
	}
}

// ===== ERROR HELPERS =====

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrQuizNotFound) ||
		errors.Is(err, ErrAttemptNotFound)
}

// IsUnauthorized checks if error represents an access violation
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrAttemptAccessDenied) {
		return true
	}
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrUnknownAnswerKey) ||
		errors.Is(err, ErrMalformedAnswersPayload) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsConflict checks if error represents a state conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrAttemptAlreadyFinished) ||
		errors.Is(err, ErrAttemptNotActive) ||
		errors.Is(err, ErrAttemptTimeExpired)
}
