package hsm

import (
	stderrors "errors"
	"strings"

	apperrors "github.com/goliatone/go-errors"
)

const (
	ErrCodeValidationFailed  = "HSM_VALIDATION_FAILED"
	ErrCodeConfigInvalid     = "HSM_CONFIG_INVALID"
	ErrCodeTransitionFailed  = "HSM_TRANSITION_FAILED"
	ErrCodeNotStarted        = "HSM_NOT_STARTED"
	ErrCodeDefinitionInvalid = "HSM_DEFINITION_INVALID"
)

var (
	ErrValidationFailed = apperrors.New("state machine validation failed", apperrors.CategoryValidation).
				WithTextCode(ErrCodeValidationFailed)
	ErrConfigInvalid = apperrors.New("invalid machine configuration", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeConfigInvalid)
	ErrTransitionFailed = apperrors.New("transition failed", apperrors.CategoryHandler).
				WithTextCode(ErrCodeTransitionFailed)
	ErrNotStarted = apperrors.New("machine not started", apperrors.CategoryConflict).
			WithTextCode(ErrCodeNotStarted)
	ErrDefinitionInvalid = apperrors.New("invalid machine definition", apperrors.CategoryValidation).
				WithTextCode(ErrCodeDefinitionInvalid)
)

// CloneError derives an occurrence-specific error from one of the
// package sentinels, attaching message, source, and metadata.
func CloneError(base *apperrors.Error, message string, source error, metadata map[string]any) *apperrors.Error {
	if base == nil {
		base = ErrConfigInvalid
	}
	err := base.Clone()
	if text := strings.TrimSpace(message); text != "" {
		err.Message = text
	}
	if source != nil {
		err.Source = source
	}
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

// ErrorCode extracts the text code from an engine error, or "" for
// foreign errors.
func ErrorCode(err error) string {
	var ge *apperrors.Error
	if stderrors.As(err, &ge) {
		return ge.TextCode
	}
	return ""
}

// IsConfigError reports whether err is a machine configuration error.
func IsConfigError(err error) bool {
	return ErrorCode(err) == ErrCodeConfigInvalid
}

// IsValidationError reports whether err is a structural validation
// failure raised from Start.
func IsValidationError(err error) bool {
	return ErrorCode(err) == ErrCodeValidationFailed
}
