package discovery

import (
	"fmt"
	"net"
	"strings"
	"unicode/utf8"
)

// Announcement is a parsed discovery datagram.
type Announcement struct {
	Name    string
	Address string
}

// ParseAnnouncement decodes a "name,address" payload.
//
// Both fields are whitespace-trimmed and must be non-empty. Any other shape,
// including invalid UTF-8 or more than one comma, yields ErrMalformedAnnouncement.
func ParseAnnouncement(payload []byte) (Announcement, error) {
	if !utf8.Valid(payload) {
		return Announcement{}, fmt.Errorf("%w: invalid utf-8", ErrMalformedAnnouncement)
	}

	fields := strings.Split(string(payload), ",")
	if len(fields) != 2 {
		return Announcement{}, fmt.Errorf("%w: want 2 fields, got %d", ErrMalformedAnnouncement, len(fields))
	}

	a := Announcement{
		Name:    strings.TrimSpace(fields[0]),
		Address: strings.TrimSpace(fields[1]),
	}
	if a.Name == "" {
		return Announcement{}, fmt.Errorf("%w: empty name", ErrMalformedAnnouncement)
	}
	if a.Address == "" {
		return Announcement{}, fmt.Errorf("%w: empty address", ErrMalformedAnnouncement)
	}
	return a, nil
}

// Bytes encodes the announcement in wire form.
func (a Announcement) Bytes() []byte {
	return []byte(a.Name + "," + a.Address)
}

// Announce sends one announcement datagram to target ("host:port").
// Used by the announce CLI command and by tests to stand in for a device.
func Announce(target string, a Announcement) error {
	conn, err := net.Dial("udp", target)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", target, err)
	}
	defer conn.Close()

	if _, err := conn.Write(a.Bytes()); err != nil {
		return fmt.Errorf("sending announcement: %w", err)
	}
	return nil
}
