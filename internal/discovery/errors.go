package discovery

import "errors"

// Domain errors for the discovery package.
var (
	// ErrMalformedAnnouncement is returned for a datagram that is not "name,address".
	ErrMalformedAnnouncement = errors.New("discovery: malformed announcement")

	// ErrListenerClosed is returned when polling a closed listener.
	ErrListenerClosed = errors.New("discovery: listener closed")
)
