package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/fleetlock/internal/control"
)

// Publisher is the part of Client used by EventPublisher.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// EventMessage is the JSON envelope published for every event.
type EventMessage struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

const (
	defaultEventBuffer = 256

	// eventFlushTimeout bounds how long Stop spends publishing queued events.
	eventFlushTimeout = 2 * time.Second
)

type outboundEvent struct {
	channel string
	topic   string
	data    []byte
}

// EventPublisher mirrors control events onto fleetlock/events/<channel>.
// It implements control.Broadcaster.
//
// Broadcast never blocks: events are encoded on the caller and published by
// one background goroutine, so a slow broker cannot hold up the dispatcher
// or the timer loops. When the buffer is full the event is dropped and counted.
type EventPublisher struct {
	pub    Publisher
	qos    byte
	logger Logger
	now    func() time.Time

	events chan outboundEvent

	mu      sync.Mutex
	dropped int

	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewEventPublisher creates an EventPublisher holding up to buffer queued
// events (0 selects the default). logger may be nil. Call Start before use.
func NewEventPublisher(pub Publisher, qos byte, buffer int, logger Logger) *EventPublisher {
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	return &EventPublisher{
		pub:    pub,
		qos:    qos,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		events: make(chan outboundEvent, buffer),
		done:   make(chan struct{}),
	}
}

// Broadcast implements control.Broadcaster.
func (p *EventPublisher) Broadcast(channel string, payload any) {
	data, err := json.Marshal(EventMessage{Type: channel, Timestamp: p.now(), Payload: payload})
	if err != nil {
		p.warn("event encode failed", "channel", channel, "error", err)
		return
	}

	select {
	case p.events <- outboundEvent{channel: channel, topic: Topics{}.Event(channel), data: data}:
	default:
		p.mu.Lock()
		p.dropped++
		p.mu.Unlock()
		p.warn("event buffer full, event dropped", "channel", channel)
	}
}

// Dropped returns the number of events discarded because the buffer was
// full or the shutdown flush ran out of time.
func (p *EventPublisher) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// Start launches the publishing goroutine.
func (p *EventPublisher) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.wg.Add(1)
		go p.run(ctx)
	})
}

// Stop publishes what is still queued, within eventFlushTimeout, and waits
// for the goroutine to exit.
func (p *EventPublisher) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
}

func (p *EventPublisher) run(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case e := <-p.events:
			p.publish(e)
		case <-ctx.Done():
			p.flush()
			return
		case <-p.done:
			p.flush()
			return
		}
	}
}

func (p *EventPublisher) flush() {
	deadline := time.Now().Add(eventFlushTimeout)
	for {
		select {
		case e := <-p.events:
			if time.Now().After(deadline) {
				p.mu.Lock()
				p.dropped++
				p.mu.Unlock()
				continue
			}
			p.publish(e)
		default:
			return
		}
	}
}

func (p *EventPublisher) publish(e outboundEvent) {
	if err := p.pub.Publish(e.topic, e.data, p.qos, false); err != nil {
		p.warn("event publish failed", "channel", e.channel, "error", err)
	}
}

func (p *EventPublisher) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

// RemoteApplier carries out a remote command; *control.Controller satisfies it.
type RemoteApplier interface {
	ApplyRemote(name string, rc control.RemoteCommand) error
}

// RemoteCommandHandler returns a MessageHandler for Topics{}.AllCommands()
// that decodes each payload and applies it to the device named by the topic.
func RemoteCommandHandler(applier RemoteApplier) MessageHandler {
	return func(topic string, payload []byte) error {
		name, ok := DeviceFromCommandTopic(topic)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCommandTopic, topic)
		}
		rc, err := control.ParseRemoteCommand(payload)
		if err != nil {
			return err
		}
		if err := applier.ApplyRemote(name, rc); err != nil {
			return fmt.Errorf("remote %s on %s: %w", rc.Action, name, err)
		}
		return nil
	}
}
