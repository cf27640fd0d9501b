package discovery

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

// DefaultPort is the UDP port devices announce to.
const DefaultPort = 37020

// Defaults applied by Listen when a Config field is zero. A zero Port binds
// an ephemeral port.
const (
	DefaultPollWait   = time.Millisecond
	DefaultBufferSize = 1024
	DefaultMaxPerPoll = 64
)

// Announcement results passed to Recorder.
const (
	ResultRegistered = "registered"
	ResultRefreshed  = "refreshed"
	ResultMalformed  = "malformed"
	ResultRejected   = "rejected"
)

// Logger defines the logging interface used by the Listener.
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

// Registry is the subset of the device registry the listener writes to.
type Registry interface {
	Upsert(name, address string) (created bool, err error)
}

// Recorder receives one call per datagram with one of the Result* values.
type Recorder interface {
	ObserveAnnouncement(result string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveAnnouncement(string) {}

// Config configures the UDP listener.
type Config struct {
	ListenAddress string
	Port          int
	PollWait      time.Duration
	BufferSize    int
	MaxPerPoll    int
}

// Listener receives device announcements on a UDP socket.
//
// It never blocks its caller for longer than PollWait per datagram, so it can
// be driven from the same goroutine as the other timers.
type Listener struct {
	conn       *net.UDPConn
	registry   Registry
	pollWait   time.Duration
	maxPerPoll int
	buf        []byte

	logger   Logger
	recorder Recorder

	closeOnce sync.Once
}

// Listen binds the UDP socket described by cfg and returns a Listener that
// feeds well-formed announcements into registry.
func Listen(cfg Config, registry Registry) (*Listener, error) {
	if cfg.PollWait <= 0 {
		cfg.PollWait = DefaultPollWait
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.MaxPerPoll <= 0 {
		cfg.MaxPerPoll = DefaultMaxPerPoll
	}

	addr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(cfg.ListenAddress, strconv.Itoa(cfg.Port)))
	if err != nil {
		return nil, fmt.Errorf("resolving listen address: %w", err)
	}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("binding discovery socket: %w", err)
	}

	return &Listener{
		conn:       conn,
		registry:   registry,
		pollWait:   cfg.PollWait,
		maxPerPoll: cfg.MaxPerPoll,
		buf:        make([]byte, cfg.BufferSize),
		logger:     noopLogger{},
		recorder:   noopRecorder{},
	}, nil
}

// SetLogger sets the logger for the listener.
func (l *Listener) SetLogger(logger Logger) {
	l.logger = logger
}

// SetRecorder sets the announcement metrics recorder.
func (l *Listener) SetRecorder(rec Recorder) {
	l.recorder = rec
}

// Addr returns the bound local address.
func (l *Listener) Addr() *net.UDPAddr {
	return l.conn.LocalAddr().(*net.UDPAddr)
}

// Poll makes one bounded receive attempt and reports whether a datagram was
// read. An empty socket is not an error.
//
// Poll is not safe for concurrent use; the scheduler calls it from one goroutine.
func (l *Listener) Poll() (bool, error) {
	if err := l.conn.SetReadDeadline(time.Now().Add(l.pollWait)); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return false, ErrListenerClosed
		}
		return false, fmt.Errorf("setting read deadline: %w", err)
	}

	n, from, err := l.conn.ReadFromUDP(l.buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return false, nil
		}
		if errors.Is(err, net.ErrClosed) {
			return false, ErrListenerClosed
		}
		return false, fmt.Errorf("reading datagram: %w", err)
	}

	l.handle(l.buf[:n], from)
	return true, nil
}

// Drain polls until the socket is empty or MaxPerPoll datagrams have been
// read, returning the number read.
func (l *Listener) Drain() (int, error) {
	count := 0
	for count < l.maxPerPoll {
		got, err := l.Poll()
		if err != nil {
			return count, err
		}
		if !got {
			break
		}
		count++
	}
	return count, nil
}

func (l *Listener) handle(payload []byte, from *net.UDPAddr) {
	a, err := ParseAnnouncement(payload)
	if err != nil {
		l.logger.Debug("dropping malformed announcement", "from", from.String(), "size", len(payload), "error", err)
		l.recorder.ObserveAnnouncement(ResultMalformed)
		return
	}

	created, err := l.registry.Upsert(a.Name, a.Address)
	switch {
	case err != nil:
		l.logger.Debug("announcement rejected by registry", "from", from.String(), "device", a.Name, "error", err)
		l.recorder.ObserveAnnouncement(ResultRejected)
	case created:
		l.recorder.ObserveAnnouncement(ResultRegistered)
	default:
		l.recorder.ObserveAnnouncement(ResultRefreshed)
	}
}

// Close releases the socket. It is safe to call more than once.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.conn.Close()
	})
	return err
}
