package control

import (
	"time"

	"github.com/nerrad567/fleetlock/internal/command"
)

// Event channels published to the WebSocket hub and MQTT.
const (
	EventDeviceRegistered = "device.registered"
	EventDeviceUpdated    = "device.updated"
	EventLockReleased     = "device.lock_released"
	EventCommandCompleted = "command.completed"
)

// Broadcaster sends an event to every subscriber of channel.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Fanout broadcasts to several Broadcasters in order. Nil entries are skipped.
type Fanout []Broadcaster

// Broadcast implements Broadcaster.
func (f Fanout) Broadcast(channel string, payload any) {
	for _, b := range f {
		if b != nil {
			b.Broadcast(channel, payload)
		}
	}
}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(string, any) {}

// LockReleasedEvent is published when the sweeper forces a lock intent off.
type LockReleasedEvent struct {
	Device    string    `json:"device"`
	Age       int       `json:"age"`
	Timestamp time.Time `json:"timestamp"`
}

// CommandEvent is published after every dispatcher result.
type CommandEvent struct {
	Device     string    `json:"device"`
	Address    string    `json:"address"`
	Code       string    `json:"code"`
	Source     string    `json:"source"`
	Outcome    string    `json:"outcome"`
	Reply      string    `json:"reply,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewCommandEvent flattens a dispatcher result for publication.
func NewCommandEvent(r command.Result) CommandEvent {
	ev := CommandEvent{
		Device:     r.Command.Device,
		Address:    r.Command.Address,
		Code:       r.Command.Code.Name(),
		Source:     string(r.Command.Source),
		Outcome:    string(r.Outcome.Kind),
		DurationMS: r.Duration().Milliseconds(),
		Timestamp:  r.Finished,
	}
	if r.Outcome.OK() {
		ev.Reply = string(r.Outcome.Reply)
	}
	return ev
}
