package todo

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidAction marks an action the reducer does not know. It signals a
	// programming error in the caller, not a recoverable condition.
	ErrInvalidAction = errors.New("invalid action")

	ErrEmptyTitle = errors.New("title must not be empty")
)

// ValidateTitle is the caller-side check run before dispatching Add or Edit.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	return nil
}
