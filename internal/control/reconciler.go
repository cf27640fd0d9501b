package control

import (
	"github.com/nerrad567/fleetlock/internal/command"
	"github.com/nerrad567/fleetlock/internal/device"
)

// Reconciler re-asserts lock intent for every selected device.
//
// It is level-triggered: each pass submits Lock or Unlock for every selected
// device whether or not the state looks current. Devices are visited in
// registration order. Launch and terminate are never reconciled.
type Reconciler struct {
	registry   *device.Registry
	dispatcher Submitter
	logger     Logger
	onPass     []func()
}

// NewReconciler creates a Reconciler.
func NewReconciler(registry *device.Registry, dispatcher Submitter) *Reconciler {
	return &Reconciler{
		registry:   registry,
		dispatcher: dispatcher,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the reconciler.
func (r *Reconciler) SetLogger(logger Logger) {
	r.logger = logger
}

// OnPass adds a hook run at the start of every pass. Register hooks before
// the scheduler starts.
func (r *Reconciler) OnPass(fn func()) {
	r.onPass = append(r.onPass, fn)
}

// Reconcile runs one pass and returns the number of commands submitted.
func (r *Reconciler) Reconcile() int {
	for _, fn := range r.onPass {
		fn()
	}

	submitted := 0
	r.registry.ForEachSelected(func(snapshot device.Device) {
		// Intent is read again under the registry lock; an operator change
		// since the snapshot must not be followed by the stale command.
		err := r.registry.Apply(snapshot.Name, func(d *device.Device) error {
			if !d.Selected {
				return errDeselected
			}
			cmd := command.New(d.Name, d.Address, command.LockCode(d.DesiredLocked), command.SourceReconcile)
			if err := r.dispatcher.Submit(cmd); err != nil {
				return err
			}
			d.AppliedLocked = d.DesiredLocked
			return nil
		})
		if err != nil {
			r.logger.Debug("reconcile submit skipped", "device", snapshot.Name, "error", err)
			return
		}
		submitted++
	})

	if submitted > 0 {
		r.logger.Debug("reconcile pass", "submitted", submitted)
	}
	return submitted
}
