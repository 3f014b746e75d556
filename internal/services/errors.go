package services

import (
	"errors"

	apperrors "github.com/hades874/Super-CMS-sub001/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Shared taxonomy, re-exported so handlers only import services
	ErrNotFound             = apperrors.ErrNotFound
	ErrNotPublished         = apperrors.ErrNotPublished
	ErrAlreadyPublished     = apperrors.ErrAlreadyPublished
	ErrInvalidQuestionIndex = apperrors.ErrInvalidQuestionIndex
	ErrMalformedBackup      = apperrors.ErrMalformedBackup
	ErrStorageUnavailable   = apperrors.ErrStorageUnavailable
	ErrGenerationFailed     = apperrors.ErrGenerationFailed
	ErrSessionNotActive     = apperrors.ErrSessionNotActive

	// Service specific errors
	ErrBadRequest      = errors.New("bad request")
	ErrExamNotEditable = errors.New("published exam cannot be edited")
	ErrSessionNotFound = errors.New("exam session not found")
	ErrImportFileEmpty = errors.New("import file has no question rows")
)

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// ===== ERROR HELPERS =====

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrSessionNotFound)
}

// IsUnavailable reports an exam that cannot be taken, missing or not
// published alike.
func IsUnavailable(err error) bool {
	return apperrors.IsUnavailable(err)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrBadRequest) {
		return true
	}
	var ve apperrors.ValidationErrors
	if errors.As(err, &ve) || len(apperrors.ToValidationErrors(err)) > 0 {
		return true
	}
	var single *apperrors.ValidationError
	return errors.As(err, &single)
}

// IsConflict checks if error represents a state conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyPublished) ||
		errors.Is(err, ErrExamNotEditable) ||
		errors.Is(err, ErrSessionNotActive)
}

// IsRecoverable reports failures that left prior state intact and may be
// retried.
func IsRecoverable(err error) bool {
	return apperrors.IsRecoverable(err)
}
