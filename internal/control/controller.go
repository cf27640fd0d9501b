package control

import (
	"github.com/nerrad567/fleetlock/internal/command"
	"github.com/nerrad567/fleetlock/internal/device"
)

// DeviceView is the operator-facing projection of a Device.
type DeviceView struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Selected    bool   `json:"selected"`
	LockIntent  string `json:"lock_intent"`
	Age         int    `json:"age"`
	Stale       bool   `json:"stale"`
	LastReply   string `json:"last_reply,omitempty"`
	LastOutcome string `json:"last_outcome,omitempty"`
	Source      string `json:"source"`
}

// Controller is the command surface offered to operators (HTTP, MQTT, CLI).
//
// Changing a device's lock intent updates the registry and submits the
// matching command straight away; the reconciler keeps re-asserting it
// afterwards. Launch and terminate are submitted once and never repeated.
//
// Thread Safety: all methods are safe for concurrent use.
type Controller struct {
	registry    *device.Registry
	dispatcher  Submitter
	broadcaster Broadcaster
	logger      Logger
}

// NewController creates a Controller. broadcaster may be nil.
func NewController(registry *device.Registry, dispatcher Submitter, broadcaster Broadcaster) *Controller {
	if broadcaster == nil {
		broadcaster = noopBroadcaster{}
	}
	return &Controller{
		registry:    registry,
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger for the controller.
func (c *Controller) SetLogger(logger Logger) {
	c.logger = logger
}

func (c *Controller) view(d device.Device) DeviceView {
	return DeviceView{
		Name:        d.Name,
		Address:     d.Address,
		Selected:    d.Selected,
		LockIntent:  d.LockIntent(),
		Age:         d.Age,
		Stale:       d.Age >= c.registry.StaleThreshold(),
		LastReply:   d.LastObservedReply,
		LastOutcome: d.LastOutcome,
		Source:      string(d.Source),
	}
}

// ListSelectableDevices returns every device in registration order.
func (c *Controller) ListSelectableDevices() []DeviceView {
	devices := c.registry.List()
	views := make([]DeviceView, 0, len(devices))
	for _, d := range devices {
		views = append(views, c.view(d))
	}
	return views
}

// Device returns one device view or device.ErrDeviceNotFound.
func (c *Controller) Device(name string) (DeviceView, error) {
	d, err := c.registry.Get(name)
	if err != nil {
		return DeviceView{}, err
	}
	return c.view(d), nil
}

// Stats returns registry aggregates.
func (c *Controller) Stats() device.Stats {
	return c.registry.Stats()
}

// OnRegistryChange registers callback for newly created devices.
func (c *Controller) OnRegistryChange(callback func(DeviceView)) {
	c.registry.OnChange(func(d device.Device) {
		callback(c.view(d))
	})
}

// SetSelected includes or excludes one device from bulk operations.
func (c *Controller) SetSelected(name string, selected bool) error {
	if err := c.registry.SetSelected(name, selected); err != nil {
		return err
	}
	c.publishUpdate(name)
	return nil
}

// SetAllSelected includes or excludes every device and returns how many changed.
// A device.updated event is published for each device that changed.
func (c *Controller) SetAllSelected(selected bool) int {
	changed := c.registry.SetAllSelected(selected)
	c.logger.Info("bulk selection", "selected", selected, "changed", len(changed))
	for _, name := range changed {
		c.publishUpdate(name)
	}
	return len(changed)
}

// SetDesiredLocked records lock intent for one device and submits the
// matching command immediately. If the command cannot be queued the intent
// is left as it was and the submit error is returned.
func (c *Controller) SetDesiredLocked(name string, locked bool) error {
	return c.setDesiredLocked(name, locked, command.SourceOperator)
}

func (c *Controller) setDesiredLocked(name string, locked bool, source command.Source) error {
	// Intent change and submit happen under one registry lock so a
	// concurrent reconcile pass cannot queue the old intent behind ours.
	err := c.registry.Apply(name, func(d *device.Device) error {
		if err := c.dispatcher.Submit(command.New(d.Name, d.Address, command.LockCode(locked), source)); err != nil {
			return err
		}
		d.DesiredLocked = locked
		d.AppliedLocked = locked
		return nil
	})
	if err != nil {
		return err
	}

	c.logger.Info("lock intent changed", "device", name, "locked", locked, "source", string(source))
	c.publishUpdate(name)
	return nil
}

// SetDesiredLockedForSelected applies lock intent to every selected device
// and returns how many were updated.
func (c *Controller) SetDesiredLockedForSelected(locked bool) int {
	var names []string
	c.registry.ForEachSelected(func(d device.Device) {
		names = append(names, d.Name)
	})

	updated := 0
	for _, name := range names {
		if err := c.SetDesiredLocked(name, locked); err != nil {
			c.logger.Warn("bulk lock intent failed", "device", name, "error", err)
			continue
		}
		updated++
	}
	return updated
}

// TriggerLaunch submits a one-shot launch of variant ("a" or "b").
func (c *Controller) TriggerLaunch(name, variant string) error {
	code, err := command.LaunchCode(variant)
	if err != nil {
		return err
	}
	return c.submitOnce(name, code, command.SourceOperator)
}

// TriggerTerminate submits a one-shot terminate.
func (c *Controller) TriggerTerminate(name string) error {
	return c.submitOnce(name, command.Terminate, command.SourceOperator)
}

func (c *Controller) submitOnce(name string, code command.Code, source command.Source) error {
	d, err := c.registry.Get(name)
	if err != nil {
		return err
	}
	c.logger.Info("one-shot command", "device", name, "code", code.Name(), "source", string(source))
	return c.dispatcher.Submit(command.New(d.Name, d.Address, code, source))
}

// LaunchSelected launches variant on every selected device.
func (c *Controller) LaunchSelected(variant string) (int, error) {
	code, err := command.LaunchCode(variant)
	if err != nil {
		return 0, err
	}
	return c.submitSelected(code), nil
}

// TerminateSelected terminates the launched application on every selected device.
func (c *Controller) TerminateSelected() int {
	return c.submitSelected(command.Terminate)
}

func (c *Controller) submitSelected(code command.Code) int {
	submitted := 0
	c.registry.ForEachSelected(func(d device.Device) {
		if err := c.dispatcher.Submit(command.New(d.Name, d.Address, code, command.SourceOperator)); err != nil {
			c.logger.Warn("bulk submit failed", "device", d.Name, "error", err)
			return
		}
		submitted++
	})
	c.logger.Info("bulk command", "code", code.Name(), "submitted", submitted)
	return submitted
}

// HandleResult stores a dispatcher result against its device and publishes it.
// Register it with Dispatcher.OnResult.
func (c *Controller) HandleResult(r command.Result) {
	if err := c.registry.RecordOutcome(r.Command.Device, string(r.Outcome.Kind), r.Outcome.Observed()); err != nil {
		c.logger.Debug("result for unknown device", "device", r.Command.Device)
	}
	c.broadcaster.Broadcast(EventCommandCompleted, NewCommandEvent(r))
}

func (c *Controller) publishUpdate(name string) {
	if v, err := c.Device(name); err == nil {
		c.broadcaster.Broadcast(EventDeviceUpdated, v)
	}
}
