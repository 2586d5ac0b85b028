// Package xerrors defines the sentinel errors shared across fxasynq packages.
package xerrors

import "errors"

// Common integration-layer errors.
var (
	ErrDuplicateTask     = errors.New("task already registered")
	ErrNotFound          = errors.New("task not found")
	ErrNoTasks           = errors.New("no task definitions")
	ErrInvalidDefinition = errors.New("invalid task definition")
	ErrNotStruct         = errors.New("target must be a non-nil pointer to a struct")
	ErrNotFunc           = errors.New("task tag on non-func field")
	ErrBadSignature      = errors.New("unsupported sender signature")
	ErrBadTag            = errors.New("malformed option tag")
)

// New creates a new error with the given message.
func New(message string) error {
	return errors.New(message)
}

// Wrap adds context to an existing error.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return errors.Join(errors.New(message), err)
}
