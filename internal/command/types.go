package command

import (
	"fmt"
	"strings"
	"time"
)

// Code is the wire token sent to a device. Nothing else goes on the wire.
type Code string

// Wire tokens understood by the device agent.
const (
	Lock      Code = "l"
	Unlock    Code = "u"
	LaunchA   Code = "launchPS"
	LaunchB   Code = "launchPR"
	Terminate Code = "closeMine"
)

var codeNames = map[Code]string{
	Lock:      "lock",
	Unlock:    "unlock",
	LaunchA:   "launch_a",
	LaunchB:   "launch_b",
	Terminate: "terminate",
}

// Name returns the readable name used in logs, metrics and the API.
func (c Code) Name() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return "unknown"
}

// Valid reports whether c is one of the known wire tokens.
func (c Code) Valid() bool {
	_, ok := codeNames[c]
	return ok
}

// IsLockState reports whether c is part of reconciled lock state.
func (c Code) IsLockState() bool {
	return c == Lock || c == Unlock
}

// ParseCode accepts either a readable name ("lock", "launch_a") or a raw wire token.
func ParseCode(s string) (Code, error) {
	s = strings.TrimSpace(s)
	if c := Code(s); c.Valid() {
		return c, nil
	}
	norm := strings.ReplaceAll(strings.ToLower(s), "-", "_")
	for c, n := range codeNames {
		if n == norm {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCode, s)
}

// LockCode returns Lock or Unlock for the given intent.
func LockCode(locked bool) Code {
	if locked {
		return Lock
	}
	return Unlock
}

// LaunchCode maps a launch variant ("a" or "b") to its wire token.
func LaunchCode(variant string) (Code, error) {
	switch strings.ToLower(strings.TrimSpace(variant)) {
	case "a":
		return LaunchA, nil
	case "b":
		return LaunchB, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}
}

// Source records who asked for a command. It never goes on the wire.
type Source string

const (
	SourceReconcile Source = "reconcile"
	SourceOperator  Source = "operator"
	SourceRemote    Source = "remote"
	SourceCLI       Source = "cli"
)

// Command is an immutable request to send one code to one device.
// Address is captured at submission and never re-read from the registry.
type Command struct {
	Device    string
	Address   string
	Code      Code
	Source    Source
	Submitted time.Time
}

// New builds a Command stamped with the current time.
func New(device, address string, code Code, source Source) Command {
	return Command{
		Device:    device,
		Address:   address,
		Code:      code,
		Source:    source,
		Submitted: time.Now().UTC(),
	}
}

// Kind classifies the result of one send.
type Kind string

const (
	Delivered      Kind = "delivered"
	ConnectTimeout Kind = "connect_timeout"
	SendFailure    Kind = "send_failure"
	RecvTimeout    Kind = "recv_timeout"
)

// Outcome is what a Sender reports for one command. Failures are values, not errors.
type Outcome struct {
	Kind  Kind
	Reply []byte
	Err   error
}

// OK reports whether the device replied.
func (o Outcome) OK() bool {
	return o.Kind == Delivered
}

// Observed returns the diagnostic text stored against the device: the raw
// reply when delivered, otherwise the failure kind.
func (o Outcome) Observed() string {
	if o.Kind == Delivered {
		return string(o.Reply)
	}
	return string(o.Kind)
}

// Result pairs a command with its outcome and timing.
type Result struct {
	Command  Command
	Outcome  Outcome
	Started  time.Time
	Finished time.Time
}

// Duration returns how long the send took.
func (r Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}
