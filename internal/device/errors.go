package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device name does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidName is returned when a device name is empty.
	ErrInvalidName = errors.New("device: invalid name")

	// ErrInvalidAddress is returned when a device address is empty.
	ErrInvalidAddress = errors.New("device: invalid address")

	// ErrMalformedEntry is returned for a static list line that is not "address=name".
	ErrMalformedEntry = errors.New("device: malformed static entry")
)
