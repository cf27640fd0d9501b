package device

import "time"

// Source records how a device first entered the registry.
type Source string

const (
	// SourceAnnouncement marks a device created by a discovery datagram.
	SourceAnnouncement Source = "announcement"

	// SourceStatic marks a device pre-seeded from the static device list.
	SourceStatic Source = "static"
)

// Lock intent labels shown to operators.
const (
	LockIntentLocked   = "locked"
	LockIntentUnlocked = "unlocked"
)

// Device is one networked client machine, keyed by the name it announces.
//
// Address and Age are owned by discovery and the liveness sweep.
// Selected and DesiredLocked are owned by the operator, except that the
// sweep forces DesiredLocked false when the device goes quiet.
type Device struct {
	Name    string `json:"name"`
	Address string `json:"address"`

	// Age counts sweep ticks since the last announcement.
	Age int `json:"age"`

	// Selected includes the device in bulk operations and reconciliation.
	Selected bool `json:"selected"`

	// DesiredLocked is the operator's lock intent.
	DesiredLocked bool `json:"desired_locked"`

	// AppliedLocked is the last lock intent handed to the dispatcher.
	// It is diagnostic; reconciliation re-asserts regardless.
	AppliedLocked bool `json:"applied_locked"`

	// LastObservedReply is the raw reply of the last delivered command,
	// or the failure classification when nothing came back.
	LastObservedReply string `json:"last_observed_reply,omitempty"`

	// LastOutcome is the outcome kind of the last completed command.
	LastOutcome string `json:"last_outcome,omitempty"`

	Source    Source    `json:"source"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// LockIntent returns the operator-facing label for DesiredLocked.
func (d Device) LockIntent() string {
	if d.DesiredLocked {
		return LockIntentLocked
	}
	return LockIntentUnlocked
}

// Stats summarises registry contents for health and metrics endpoints.
type Stats struct {
	Total    int `json:"total"`
	Selected int `json:"selected"`
	Locked   int `json:"locked"`
	Stale    int `json:"stale"`
}
