package command

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Dispatcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ResultHandler is called on the worker goroutine after every send.
type ResultHandler func(Result)

// Dispatcher runs commands one at a time, in submission order, on a single
// worker goroutine.
//
// Submit never blocks and the queue is unbounded. A failed command is
// reported to handlers and the worker moves straight on; nothing is retried.
// Queued and in-flight commands cannot be cancelled. Stop lets the in-flight
// command finish and discards the backlog.
//
// Thread Safety: Submit, QueueDepth and OnResult are safe for concurrent use.
type Dispatcher struct {
	sender Sender

	mu      sync.Mutex
	queue   []Command
	stopped bool
	wake    chan struct{}

	handlersMu sync.RWMutex
	handlers   []ResultHandler

	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once

	logger Logger
	now    func() time.Time
}

// NewDispatcher creates a dispatcher that delivers through sender.
func NewDispatcher(sender Sender) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: noopLogger{},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// OnResult registers a handler for every completed command.
// Handlers should be quick; they run before the next command starts.
func (d *Dispatcher) OnResult(h ResultHandler) {
	d.handlersMu.Lock()
	d.handlers = append(d.handlers, h)
	d.handlersMu.Unlock()
}

// Submit appends cmd to the queue and returns immediately.
// Returns ErrDispatcherStopped after Stop or once the worker's context ends.
func (d *Dispatcher) Submit(cmd Command) error {
	if cmd.Submitted.IsZero() {
		cmd.Submitted = d.now()
	}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return ErrDispatcherStopped
	}
	d.queue = append(d.queue, cmd)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return nil
}

// QueueDepth returns the number of commands waiting to run.
func (d *Dispatcher) QueueDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Start launches the worker goroutine. Calling Start more than once has no effect.
// The worker exits when ctx is cancelled or Stop is called.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		d.wg.Add(1)
		go d.run(ctx)
		d.logger.Info("dispatcher started")
	})
}

// Stop signals the worker to exit after the in-flight command and waits for it.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.stopped = true
		d.mu.Unlock()

		close(d.done)
		d.wg.Wait()

		d.mu.Lock()
		discarded := len(d.queue)
		d.queue = nil
		d.mu.Unlock()

		d.logger.Info("dispatcher stopped", "discarded", discarded)
	})
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	// Whichever way the worker exits, nothing will drain the queue again.
	defer func() {
		d.mu.Lock()
		d.stopped = true
		d.mu.Unlock()
	}()

	// In-flight sends are bounded by the channel timeouts and are not
	// abandoned when the parent context ends.
	sendCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case <-d.wake:
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-d.done:
				return
			default:
			}

			cmd, ok := d.pop()
			if !ok {
				break
			}
			d.execute(sendCtx, cmd)
		}
	}
}

func (d *Dispatcher) pop() (Command, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.queue) == 0 {
		return Command{}, false
	}
	cmd := d.queue[0]
	d.queue[0] = Command{}
	d.queue = d.queue[1:]
	return cmd, true
}

func (d *Dispatcher) execute(ctx context.Context, cmd Command) {
	started := d.now()
	outcome := d.sender.Send(ctx, cmd.Address, cmd.Code)
	res := Result{
		Command:  cmd,
		Outcome:  outcome,
		Started:  started,
		Finished: d.now(),
	}

	if outcome.OK() {
		d.logger.Debug("command delivered",
			"device", cmd.Device,
			"code", cmd.Code.Name(),
			"source", string(cmd.Source),
			"duration", res.Duration())
	} else {
		d.logger.Warn("command failed",
			"device", cmd.Device,
			"address", cmd.Address,
			"code", cmd.Code.Name(),
			"outcome", string(outcome.Kind),
			"error", outcome.Err)
	}

	d.notify(res)
}

func (d *Dispatcher) notify(res Result) {
	d.handlersMu.RLock()
	handlers := make([]ResultHandler, len(d.handlers))
	copy(handlers, d.handlers)
	d.handlersMu.RUnlock()

	for _, h := range handlers {
		d.safeCall(h, res)
	}
}

// safeCall keeps a panicking handler from killing the worker.
func (d *Dispatcher) safeCall(h ResultHandler, res Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("result handler panicked",
				"device", res.Command.Device,
				"panic", fmt.Sprintf("%v", r))
		}
	}()
	h(res)
}
