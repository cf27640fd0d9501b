package control

import (
	"errors"
	"testing"

	"github.com/nerrad567/fleetlock/internal/command"
)

func TestParseRemoteCommand(t *testing.T) {
	rc, err := ParseRemoteCommand([]byte(`{"action":" Launch ","variant":"a"}`))
	if err != nil {
		t.Fatalf("ParseRemoteCommand() error = %v", err)
	}
	if rc.Action != ActionLaunch || rc.Variant != "a" {
		t.Errorf("rc = %+v", rc)
	}

	for _, bad := range []string{`not json`, `{}`, `{"action":""}`} {
		if _, err := ParseRemoteCommand([]byte(bad)); !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("ParseRemoteCommand(%s) error = %v, want ErrInvalidPayload", bad, err)
		}
	}
}

func TestController_ApplyRemote(t *testing.T) {
	tests := []struct {
		name     string
		rc       RemoteCommand
		wantCode command.Code
		wantErr  error
	}{
		{"lock", RemoteCommand{Action: ActionLock}, command.Lock, nil},
		{"unlock", RemoteCommand{Action: ActionUnlock}, command.Unlock, nil},
		{"launch b", RemoteCommand{Action: ActionLaunch, Variant: "b"}, command.LaunchB, nil},
		{"terminate", RemoteCommand{Action: ActionTerminate}, command.Terminate, nil},
		{"launch bad variant", RemoteCommand{Action: ActionLaunch, Variant: "x"}, "", command.ErrUnknownVariant},
		{"unknown", RemoteCommand{Action: "reboot"}, "", ErrUnknownAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, disp, _ := newTestController(t)
			err := c.ApplyRemote("alice", tt.rc)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ApplyRemote() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyRemote() error = %v", err)
			}
			cmds := disp.commands()
			if len(cmds) != 1 || cmds[0].Code != tt.wantCode || cmds[0].Source != command.SourceRemote {
				t.Errorf("commands = %+v, want one %q from remote", cmds, tt.wantCode)
			}
		})
	}
}

func TestController_ApplyRemoteSelection(t *testing.T) {
	c, reg, disp, _ := newTestController(t)

	if err := c.ApplyRemote("alice", RemoteCommand{Action: ActionDeselect}); err != nil {
		t.Fatalf("ApplyRemote(deselect) error = %v", err)
	}
	d, _ := reg.Get("alice")
	if d.Selected {
		t.Error("Selected = true after deselect")
	}
	if len(disp.commands()) != 0 {
		t.Error("selection change submitted a command")
	}
}
