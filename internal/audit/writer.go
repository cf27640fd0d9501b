package audit

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/fleetlock/internal/command"
)

const (
	defaultWriterBuffer = 1024
	writeTimeout        = 5 * time.Second
)

// Logger defines the logging interface used by the Writer.
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

// Writer persists dispatcher results off the dispatcher goroutine.
//
// Handle never blocks. When the buffer is full the entry is dropped and
// counted; the command log is diagnostic and must not slow dispatch.
type Writer struct {
	repo    Repository
	entries chan Entry
	logger  Logger

	mu      sync.Mutex
	dropped int

	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewWriter creates a Writer with the given buffer (0 selects the default).
func NewWriter(repo Repository, buffer int) *Writer {
	if buffer <= 0 {
		buffer = defaultWriterBuffer
	}
	return &Writer{
		repo:    repo,
		entries: make(chan Entry, buffer),
		logger:  noopLogger{},
		done:    make(chan struct{}),
	}
}

// SetLogger sets the logger for the writer.
func (w *Writer) SetLogger(logger Logger) {
	w.logger = logger
}

// Handle queues a result for persistence. It matches command.ResultHandler.
func (w *Writer) Handle(r command.Result) {
	select {
	case w.entries <- EntryFromResult(r):
	default:
		w.mu.Lock()
		w.dropped++
		w.mu.Unlock()
		w.logger.Warn("command log buffer full, entry dropped", "device", r.Command.Device)
	}
}

// Dropped returns the number of entries discarded because the buffer was full.
func (w *Writer) Dropped() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

// Start launches the persistence goroutine.
func (w *Writer) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.wg.Add(1)
		go w.run(ctx)
	})
}

// Stop flushes buffered entries and waits for the goroutine to exit.
func (w *Writer) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.wg.Wait()
	})
}

func (w *Writer) run(ctx context.Context) {
	defer w.wg.Done()

	// Flushing on shutdown must outlive the parent context.
	writeCtx := context.WithoutCancel(ctx)

	for {
		select {
		case e := <-w.entries:
			w.write(writeCtx, e)
		case <-ctx.Done():
			w.flush(writeCtx)
			return
		case <-w.done:
			w.flush(writeCtx)
			return
		}
	}
}

func (w *Writer) flush(ctx context.Context) {
	for {
		select {
		case e := <-w.entries:
			w.write(ctx, e)
		default:
			return
		}
	}
}

func (w *Writer) write(ctx context.Context, e Entry) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := w.repo.Create(ctx, &e); err != nil {
		w.logger.Error("failed to persist command log entry", "device", e.Device, "error", err)
	}
}
