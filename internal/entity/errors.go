package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthenticated   = errors.New("authentication required")
	ErrSurveyExpired     = errors.New("survey has expired")
	ErrAlreadyResponded  = errors.New("already submitted response from this IP")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrResultsNotVisible = errors.New("results are not public")
)

// Issue is a single validation problem, optionally tied to a question
type Issue struct {
	QuestionID string `json:"questionId,omitempty"`
	Message    string `json:"message"`
}

// ValidationError rejects a request as a whole; nothing was stored
type ValidationError struct {
	Issues []Issue `json:"issues"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		if is.QuestionID != "" {
			parts = append(parts, fmt.Sprintf("question %q: %s", is.QuestionID, is.Message))
			continue
		}
		parts = append(parts, is.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError is a shortcut for a single issue
func NewValidationError(questionID, format string, args ...any) *ValidationError {
	return &ValidationError{Issues: []Issue{{QuestionID: questionID, Message: fmt.Sprintf(format, args...)}}}
}

// IsValidation reports whether err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
