package command

import "errors"

// Domain errors for the command package.
var (
	// ErrUnknownCode is returned when a command name or wire token is not recognised.
	ErrUnknownCode = errors.New("command: unknown code")

	// ErrUnknownVariant is returned for a launch variant other than "a" or "b".
	ErrUnknownVariant = errors.New("command: unknown launch variant")

	// ErrDispatcherStopped is returned when submitting to a stopped dispatcher.
	ErrDispatcherStopped = errors.New("command: dispatcher stopped")
)
