package errors

import (
	"errors"
)

// Domain error taxonomy shared by the store, repository, session and service layers.
var (
	ErrNotFound             = errors.New("resource not found")
	ErrNotPublished         = errors.New("exam is not published")
	ErrAlreadyPublished     = errors.New("exam is already published")
	ErrInvalidQuestionIndex = errors.New("invalid question index")
	ErrMalformedBackup      = errors.New("malformed backup payload")
	ErrStorageUnavailable   = errors.New("storage backend unavailable")
	ErrGenerationFailed     = errors.New("question generation returned an empty or unsafe response")

	ErrSessionNotActive = errors.New("exam session is not in progress")
	ErrClockRunning     = errors.New("session clock is still running")
)

// IsUnavailable reports whether err means the exam cannot be taken, without
// telling the caller whether it is missing or merely unpublished.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotPublished)
}

// IsRecoverable reports whether the failed operation left prior state intact
// and may be retried by the caller.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrMalformedBackup) ||
		errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, ErrGenerationFailed)
}
