package control

import "errors"

// Domain errors for the control package.
var (
	// ErrUnknownAction is returned for a remote command with an unrecognised action.
	ErrUnknownAction = errors.New("control: unknown action")

	// ErrInvalidPayload is returned when a remote command cannot be decoded.
	ErrInvalidPayload = errors.New("control: invalid payload")

	errDeselected = errors.New("control: device deselected")
)
