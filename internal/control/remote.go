package control

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nerrad567/fleetlock/internal/command"
)

// Remote actions accepted over MQTT.
const (
	ActionLock      = "lock"
	ActionUnlock    = "unlock"
	ActionSelect    = "select"
	ActionDeselect  = "deselect"
	ActionLaunch    = "launch"
	ActionTerminate = "terminate"
)

// RemoteCommand is the JSON body of a remote command message.
//
//	{"action": "launch", "variant": "a"}
type RemoteCommand struct {
	Action  string `json:"action"`
	Variant string `json:"variant,omitempty"`
}

// ParseRemoteCommand decodes a remote command payload.
func ParseRemoteCommand(payload []byte) (RemoteCommand, error) {
	var rc RemoteCommand
	if err := json.Unmarshal(payload, &rc); err != nil {
		return RemoteCommand{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	rc.Action = strings.ToLower(strings.TrimSpace(rc.Action))
	if rc.Action == "" {
		return RemoteCommand{}, fmt.Errorf("%w: missing action", ErrInvalidPayload)
	}
	return rc, nil
}

// ApplyRemote carries out a remote command against one device.
func (c *Controller) ApplyRemote(name string, rc RemoteCommand) error {
	switch rc.Action {
	case ActionLock:
		return c.setDesiredLocked(name, true, command.SourceRemote)
	case ActionUnlock:
		return c.setDesiredLocked(name, false, command.SourceRemote)
	case ActionSelect:
		return c.SetSelected(name, true)
	case ActionDeselect:
		return c.SetSelected(name, false)
	case ActionLaunch:
		code, err := command.LaunchCode(rc.Variant)
		if err != nil {
			return err
		}
		return c.submitOnce(name, code, command.SourceRemote)
	case ActionTerminate:
		return c.submitOnce(name, command.Terminate, command.SourceRemote)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, rc.Action)
	}
}
