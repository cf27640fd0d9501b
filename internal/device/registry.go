package device

import (
	"strings"
	"sync"
	"time"
)

// DefaultStaleThreshold is the age, in sweep ticks, at which lock intent is released.
const DefaultStaleThreshold = 30

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the in-memory table of every device ever seen, keyed by name.
//
// Devices are kept in registration order and are never removed. Reads return
// copies; callers can safely modify them.
//
// All public methods are thread-safe.
type Registry struct {
	mu        sync.RWMutex
	devices   map[string]*Device
	order     []string
	threshold int

	listenersMu sync.RWMutex
	listeners   []func(Device)

	logger Logger
	now    func() time.Time
}

// NewRegistry creates an empty registry. A threshold below 1 selects
// DefaultStaleThreshold.
func NewRegistry(staleThreshold int) *Registry {
	if staleThreshold < 1 {
		staleThreshold = DefaultStaleThreshold
	}
	return &Registry{
		devices:   make(map[string]*Device),
		threshold: staleThreshold,
		logger:    noopLogger{},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// StaleThreshold returns the age at which lock intent is released.
func (r *Registry) StaleThreshold() int {
	return r.threshold
}

// OnChange registers fn to be called, outside the registry lock, whenever a
// new device is created.
func (r *Registry) OnChange(fn func(Device)) {
	r.listenersMu.Lock()
	r.listeners = append(r.listeners, fn)
	r.listenersMu.Unlock()
}

// Upsert records an announcement from name at address.
//
// A new name creates a Device with Selected=true and DesiredLocked=false.
// A known name has its Address overwritten and Age reset to 0; its operator
// fields are left alone.
//
// Returns:
//   - created: true if a new Device was added
//   - error: ErrInvalidName or ErrInvalidAddress for empty input
func (r *Registry) Upsert(name, address string) (bool, error) {
	return r.upsert(name, address, SourceAnnouncement)
}

// Seed pre-registers a device from the static list. It follows Upsert
// semantics, so a later announcement simply refreshes the same entry.
func (r *Registry) Seed(name, address string) (bool, error) {
	return r.upsert(name, address, SourceStatic)
}

func (r *Registry) upsert(name, address string, source Source) (bool, error) {
	name = strings.TrimSpace(name)
	address = strings.TrimSpace(address)
	if name == "" {
		return false, ErrInvalidName
	}
	if address == "" {
		return false, ErrInvalidAddress
	}

	now := r.now()

	r.mu.Lock()
	if d, ok := r.devices[name]; ok {
		if d.Address != address {
			r.logger.Info("device address changed", "device", name, "old", d.Address, "new", address)
		}
		d.Address = address
		d.Age = 0
		d.LastSeen = now
		r.mu.Unlock()
		return false, nil
	}

	d := &Device{
		Name:      name,
		Address:   address,
		Selected:  true,
		Source:    source,
		FirstSeen: now,
		LastSeen:  now,
	}
	r.devices[name] = d
	r.order = append(r.order, name)
	created := *d
	r.mu.Unlock()

	r.logger.Info("device registered", "device", name, "address", address, "source", string(source))
	r.notify(created)
	return true, nil
}

func (r *Registry) notify(d Device) {
	r.listenersMu.RLock()
	listeners := make([]func(Device), len(r.listeners))
	copy(listeners, r.listeners)
	r.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(d)
	}
}

// Get returns a copy of the named device.
// Returns ErrDeviceNotFound if the device does not exist.
func (r *Registry) Get(name string) (Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[name]
	if !ok {
		return Device{}, ErrDeviceNotFound
	}
	return *d, nil
}

// List returns copies of every device in registration order.
func (r *Registry) List() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.devices[name])
	}
	return out
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// ForEachSelected calls fn with a copy of every selected device in
// registration order. fn runs outside the registry lock and may call back
// into the registry.
func (r *Registry) ForEachSelected(fn func(Device)) {
	r.mu.RLock()
	selected := make([]Device, 0, len(r.order))
	for _, name := range r.order {
		if d := r.devices[name]; d.Selected {
			selected = append(selected, *d)
		}
	}
	r.mu.RUnlock()

	for _, d := range selected {
		fn(d)
	}
}

// Tick ages every device by one sweep tick. A device whose age reaches the
// stale threshold on this tick has DesiredLocked forced false; its name is
// returned if the intent was actually changed. Crossing happens once, so an
// operator can re-lock a quiet device and it stays locked until the next
// announcement and silence cycle.
func (r *Registry) Tick() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var released []string
	for _, name := range r.order {
		d := r.devices[name]
		d.Age++
		if d.Age == r.threshold && d.DesiredLocked {
			d.DesiredLocked = false
			released = append(released, name)
		}
	}
	return released
}

// SetSelected sets the bulk-operation inclusion flag for one device.
func (r *Registry) SetSelected(name string, selected bool) error {
	return r.update(name, func(d *Device) { d.Selected = selected })
}

// SetAllSelected sets the inclusion flag on every device and returns the
// names that changed, in registration order.
func (r *Registry) SetAllSelected(selected bool) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var changed []string
	for _, name := range r.order {
		if d := r.devices[name]; d.Selected != selected {
			d.Selected = selected
			changed = append(changed, name)
		}
	}
	return changed
}

// SetDesiredLocked records operator lock intent for one device.
func (r *Registry) SetDesiredLocked(name string, locked bool) error {
	return r.update(name, func(d *Device) { d.DesiredLocked = locked })
}

// RecordOutcome stores the diagnostic result of the last command to a device.
func (r *Registry) RecordOutcome(name, outcome, reply string) error {
	return r.update(name, func(d *Device) {
		d.LastOutcome = outcome
		d.LastObservedReply = reply
	})
}

// Apply runs fn on the named device while holding the registry write lock,
// so a read of the device and the action taken on it cannot interleave with
// another writer. Changes fn makes are kept even when it returns an error.
// fn must not call back into the registry.
func (r *Registry) Apply(name string, fn func(d *Device) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[name]
	if !ok {
		return ErrDeviceNotFound
	}
	return fn(d)
}

func (r *Registry) update(name string, fn func(d *Device)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[name]
	if !ok {
		return ErrDeviceNotFound
	}
	fn(d)
	return nil
}

// Stats returns aggregate counts over the registry.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{Total: len(r.devices)}
	for _, d := range r.devices {
		if d.Selected {
			s.Selected++
		}
		if d.DesiredLocked {
			s.Locked++
		}
		if d.Age >= r.threshold {
			s.Stale++
		}
	}
	return s
}
