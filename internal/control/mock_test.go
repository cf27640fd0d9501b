package control

import (
	"sync"

	"github.com/nerrad567/fleetlock/internal/command"
)

// mockDispatcher records submitted commands without executing them.
type mockDispatcher struct {
	mu        sync.Mutex
	submitted []command.Command
	err       error
}

func (m *mockDispatcher) Submit(cmd command.Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.submitted = append(m.submitted, cmd)
	return nil
}

func (m *mockDispatcher) commands() []command.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]command.Command, len(m.submitted))
	copy(out, m.submitted)
	return out
}

func (m *mockDispatcher) reset() {
	m.mu.Lock()
	m.submitted = nil
	m.mu.Unlock()
}

type event struct {
	channel string
	payload any
}

// mockBroadcaster records broadcasts.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []event
}

func (m *mockBroadcaster) Broadcast(channel string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event{channel, payload})
}

func (m *mockBroadcaster) count(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.channel == channel {
			n++
		}
	}
	return n
}
