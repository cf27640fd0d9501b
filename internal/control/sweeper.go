package control

import (
	"time"

	"github.com/nerrad567/fleetlock/internal/device"
)

// Sweeper ages every device once per tick and releases lock intent for
// devices that have gone quiet. It does no network I/O.
type Sweeper struct {
	registry    *device.Registry
	broadcaster Broadcaster
	logger      Logger
	onRelease   []func(n int)
}

// NewSweeper creates a Sweeper. broadcaster may be nil.
func NewSweeper(registry *device.Registry, broadcaster Broadcaster) *Sweeper {
	if broadcaster == nil {
		broadcaster = noopBroadcaster{}
	}
	return &Sweeper{
		registry:    registry,
		broadcaster: broadcaster,
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger for the sweeper.
func (s *Sweeper) SetLogger(logger Logger) {
	s.logger = logger
}

// OnRelease adds a hook called with the number of intents released per sweep.
func (s *Sweeper) OnRelease(fn func(n int)) {
	s.onRelease = append(s.onRelease, fn)
}

// Sweep runs one liveness tick and returns the devices whose lock intent was released.
func (s *Sweeper) Sweep() []string {
	released := s.registry.Tick()
	if len(released) == 0 {
		return nil
	}

	now := time.Now().UTC()
	for _, name := range released {
		s.logger.Info("lock intent released for silent device",
			"device", name,
			"threshold", s.registry.StaleThreshold())
		s.broadcaster.Broadcast(EventLockReleased, LockReleasedEvent{
			Device:    name,
			Age:       s.registry.StaleThreshold(),
			Timestamp: now,
		})
	}
	for _, fn := range s.onRelease {
		fn(len(released))
	}
	return released
}
