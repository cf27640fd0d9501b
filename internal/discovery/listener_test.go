package discovery

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/fleetlock/internal/device"
)

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) ObserveAnnouncement(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[result]++
}

func (r *countingRecorder) get(result string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[result]
}

func newTestListener(t *testing.T, reg Registry) *Listener {
	t.Helper()
	l, err := Listen(Config{ListenAddress: "127.0.0.1", PollWait: 20 * time.Millisecond}, reg)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func send(t *testing.T, l *Listener, payload string) {
	t.Helper()
	conn, err := net.DialUDP("udp4", nil, l.Addr())
	if err != nil {
		t.Fatalf("DialUDP() error = %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte(payload)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
}

// pollUntil polls until a datagram is read or the deadline passes.
func pollUntil(t *testing.T, l *Listener) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := l.Poll()
		if err != nil {
			t.Fatalf("Poll() error = %v", err)
		}
		if got {
			return
		}
	}
	t.Fatal("no datagram received before deadline")
}

func TestListener_PollEmptyReturnsImmediately(t *testing.T) {
	l := newTestListener(t, device.NewRegistry(30))

	start := time.Now()
	got, err := l.Poll()
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if got {
		t.Error("Poll() = true on empty socket")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Poll() took %v on empty socket", elapsed)
	}
}

func TestListener_RegistersAnnouncement(t *testing.T) {
	reg := device.NewRegistry(30)
	l := newTestListener(t, reg)
	rec := &countingRecorder{}
	l.SetRecorder(rec)

	send(t, l, "alice,10.0.0.5")
	pollUntil(t, l)

	d, err := reg.Get("alice")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if d.Address != "10.0.0.5" {
		t.Errorf("Address = %q, want %q", d.Address, "10.0.0.5")
	}
	if rec.get(ResultRegistered) != 1 {
		t.Errorf("registered count = %d, want 1", rec.get(ResultRegistered))
	}

	send(t, l, "alice,10.0.0.8")
	pollUntil(t, l)
	d, _ = reg.Get("alice")
	if d.Address != "10.0.0.8" {
		t.Errorf("Address = %q after re-announce, want %q", d.Address, "10.0.0.8")
	}
	if rec.get(ResultRefreshed) != 1 {
		t.Errorf("refreshed count = %d, want 1", rec.get(ResultRefreshed))
	}
}

func TestListener_DropsMalformedDatagram(t *testing.T) {
	reg := device.NewRegistry(30)
	l := newTestListener(t, reg)
	rec := &countingRecorder{}
	l.SetRecorder(rec)

	send(t, l, "no-comma-here")
	pollUntil(t, l)

	if reg.Count() != 0 {
		t.Errorf("Count() = %d, want 0", reg.Count())
	}
	if rec.get(ResultMalformed) != 1 {
		t.Errorf("malformed count = %d, want 1", rec.get(ResultMalformed))
	}

	// The listener keeps working afterwards.
	send(t, l, "bob,10.0.0.6")
	pollUntil(t, l)
	if _, err := reg.Get("bob"); err != nil {
		t.Errorf("Get(bob) error = %v", err)
	}
}

func TestListener_DrainReadsBurst(t *testing.T) {
	reg := device.NewRegistry(30)
	l := newTestListener(t, reg)

	names := []string{"a", "b", "c", "d"}
	for _, n := range names {
		send(t, l, n+",10.0.0.1")
	}

	deadline := time.Now().Add(2 * time.Second)
	total := 0
	for total < len(names) && time.Now().Before(deadline) {
		n, err := l.Drain()
		if err != nil {
			t.Fatalf("Drain() error = %v", err)
		}
		total += n
	}
	if reg.Count() != len(names) {
		t.Errorf("Count() = %d, want %d", reg.Count(), len(names))
	}
}

func TestListener_PollAfterClose(t *testing.T) {
	l := newTestListener(t, device.NewRegistry(30))
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := l.Poll(); !errors.Is(err, ErrListenerClosed) {
		t.Errorf("Poll() error = %v, want ErrListenerClosed", err)
	}
}

func TestAnnounce(t *testing.T) {
	reg := device.NewRegistry(30)
	l := newTestListener(t, reg)

	if err := Announce(l.Addr().String(), Announcement{Name: "carol", Address: "10.0.0.9"}); err != nil {
		t.Fatalf("Announce() error = %v", err)
	}
	pollUntil(t, l)

	if _, err := reg.Get("carol"); err != nil {
		t.Errorf("Get(carol) error = %v", err)
	}
}
