// Package services defines the business logic for the content pipeline:
// content items and their status machine, the feedback and agent-decision
// ledgers, the prompt version registry and the derived agent read model.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"
	"fmt"

	"github.com/tbourn/smm-pipeline/internal/domain"
)

var (
	// ErrItemNotFound indicates that the content item does not exist or has
	// been deleted.
	ErrItemNotFound = errors.New("content item not found")

	// ErrFeedbackNotFound indicates an unknown feedback row.
	ErrFeedbackNotFound = errors.New("feedback not found")

	// ErrPromptVersionNotFound indicates an unknown prompt version label.
	ErrPromptVersionNotFound = errors.New("prompt version not found")

	// ErrPromptVersionExists is returned when creating a version whose label
	// is already registered. Callers acknowledge it rather than fail.
	ErrPromptVersionExists = errors.New("prompt version already exists")

	// ErrValidation wraps every malformed-input error; the wrapped message
	// names the offending field.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition is matched by every *domain.TransitionError.
	ErrInvalidTransition = domain.ErrInvalidTransition
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}
