package device

import (
	"errors"
	"sync"
	"testing"
)

func TestRegistry_UpsertCreatesWithDefaults(t *testing.T) {
	r := NewRegistry(30)

	created, err := r.Upsert("alice", "10.0.0.5")
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if !created {
		t.Error("Upsert() created = false, want true")
	}

	d, err := r.Get("alice")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if d.Address != "10.0.0.5" {
		t.Errorf("Address = %q, want %q", d.Address, "10.0.0.5")
	}
	if !d.Selected {
		t.Error("Selected = false, want true for new device")
	}
	if d.DesiredLocked {
		t.Error("DesiredLocked = true, want false for new device")
	}
	if d.Age != 0 {
		t.Errorf("Age = %d, want 0", d.Age)
	}
	if d.Source != SourceAnnouncement {
		t.Errorf("Source = %q, want %q", d.Source, SourceAnnouncement)
	}
}

func TestRegistry_UpsertIsIdempotentOnIdentity(t *testing.T) {
	r := NewRegistry(30)

	for i := 0; i < 5; i++ {
		if _, err := r.Upsert("alice", "10.0.0.5"); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	if got := r.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
}

func TestRegistry_ReannouncePreservesOperatorFields(t *testing.T) {
	r := NewRegistry(30)
	r.Upsert("alice", "10.0.0.5")

	if err := r.SetDesiredLocked("alice", true); err != nil {
		t.Fatalf("SetDesiredLocked() error = %v", err)
	}
	if err := r.SetSelected("alice", false); err != nil {
		t.Fatalf("SetSelected() error = %v", err)
	}
	r.Tick()
	r.Tick()

	created, err := r.Upsert("alice", "10.0.0.9")
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if created {
		t.Error("Upsert() created = true on re-announcement")
	}

	d, _ := r.Get("alice")
	if d.Address != "10.0.0.9" {
		t.Errorf("Address = %q, want %q", d.Address, "10.0.0.9")
	}
	if d.Age != 0 {
		t.Errorf("Age = %d, want 0 after re-announcement", d.Age)
	}
	if !d.DesiredLocked {
		t.Error("DesiredLocked changed by re-announcement")
	}
	if d.Selected {
		t.Error("Selected changed by re-announcement")
	}
}

func TestRegistry_UpsertRejectsEmptyFields(t *testing.T) {
	r := NewRegistry(30)

	tests := []struct {
		name    string
		devName string
		address string
		wantErr error
	}{
		{"empty name", "", "10.0.0.1", ErrInvalidName},
		{"blank name", "   ", "10.0.0.1", ErrInvalidName},
		{"empty address", "bob", "", ErrInvalidAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Upsert(tt.devName, tt.address)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Upsert() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0", r.Count())
	}
}

func TestRegistry_GetNotFound(t *testing.T) {
	r := NewRegistry(30)
	if _, err := r.Get("ghost"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Get() error = %v, want ErrDeviceNotFound", err)
	}
	if err := r.SetSelected("ghost", true); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("SetSelected() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_ListKeepsRegistrationOrder(t *testing.T) {
	r := NewRegistry(30)
	names := []string{"charlie", "alice", "bob"}
	for i, n := range names {
		r.Upsert(n, "10.0.0."+string(rune('1'+i)))
	}
	r.Upsert("alice", "10.0.0.99")

	list := r.List()
	if len(list) != len(names) {
		t.Fatalf("List() len = %d, want %d", len(list), len(names))
	}
	for i, n := range names {
		if list[i].Name != n {
			t.Errorf("List()[%d] = %q, want %q", i, list[i].Name, n)
		}
	}
}

func TestRegistry_ForEachSelected(t *testing.T) {
	r := NewRegistry(30)
	r.Upsert("a", "10.0.0.1")
	r.Upsert("b", "10.0.0.2")
	r.Upsert("c", "10.0.0.3")
	r.SetSelected("b", false)

	var got []string
	r.ForEachSelected(func(d Device) {
		got = append(got, d.Name)
		// Callback may re-enter the registry.
		r.Apply(d.Name, func(d *Device) error { d.AppliedLocked = true; return nil })
	})

	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("ForEachSelected visited %v, want [a c]", got)
	}
}

func TestRegistry_TickForcesUnlockExactlyOnce(t *testing.T) {
	r := NewRegistry(30)
	r.Upsert("alice", "10.0.0.5")
	r.SetDesiredLocked("alice", true)

	for i := 1; i <= 29; i++ {
		if released := r.Tick(); len(released) != 0 {
			t.Fatalf("tick %d released %v, want none", i, released)
		}
	}
	d, _ := r.Get("alice")
	if !d.DesiredLocked {
		t.Fatal("DesiredLocked = false after 29 ticks, want true")
	}

	released := r.Tick()
	if len(released) != 1 || released[0] != "alice" {
		t.Fatalf("tick 30 released %v, want [alice]", released)
	}
	d, _ = r.Get("alice")
	if d.DesiredLocked {
		t.Error("DesiredLocked = true after 30 ticks, want false")
	}
	if d.Age != 30 {
		t.Errorf("Age = %d, want 30", d.Age)
	}

	// Operator re-locks a quiet device; later ticks leave it alone.
	r.SetDesiredLocked("alice", true)
	for i := 0; i < 10; i++ {
		if released := r.Tick(); len(released) != 0 {
			t.Fatalf("tick after threshold released %v", released)
		}
	}
	d, _ = r.Get("alice")
	if !d.DesiredLocked {
		t.Error("re-locked device was unlocked again without a new crossing")
	}
	if _, err := r.Get("alice"); err != nil {
		t.Error("stale device was removed from registry")
	}
}

func TestRegistry_AnnouncementBeforeThresholdPreventsRelease(t *testing.T) {
	r := NewRegistry(30)
	r.Upsert("alice", "10.0.0.5")
	r.SetDesiredLocked("alice", true)

	for i := 0; i < 29; i++ {
		r.Tick()
	}
	r.Upsert("alice", "10.0.0.5")
	for i := 0; i < 29; i++ {
		r.Tick()
	}

	d, _ := r.Get("alice")
	if !d.DesiredLocked {
		t.Error("DesiredLocked = false, want true")
	}
	if d.Age != 29 {
		t.Errorf("Age = %d, want 29", d.Age)
	}
}

func TestRegistry_TickUnlockedDeviceReportsNothing(t *testing.T) {
	r := NewRegistry(2)
	r.Upsert("bob", "10.0.0.2")
	r.Tick()
	if released := r.Tick(); len(released) != 0 {
		t.Errorf("Tick() released %v for unlocked device", released)
	}
}

func TestRegistry_OnChangeFiresOnCreateOnly(t *testing.T) {
	r := NewRegistry(30)

	var mu sync.Mutex
	var seen []Device
	r.OnChange(func(d Device) {
		mu.Lock()
		seen = append(seen, d)
		mu.Unlock()
		// Listener runs outside the lock.
		r.Count()
	})

	r.Upsert("alice", "10.0.0.5")
	r.Upsert("alice", "10.0.0.6")
	r.Upsert("bob", "10.0.0.7")

	if len(seen) != 2 {
		t.Fatalf("OnChange fired %d times, want 2", len(seen))
	}
	if seen[0].Name != "alice" || seen[1].Name != "bob" {
		t.Errorf("OnChange order = [%s %s], want [alice bob]", seen[0].Name, seen[1].Name)
	}
}

func TestRegistry_SetAllSelectedAndStats(t *testing.T) {
	r := NewRegistry(2)
	r.Upsert("a", "10.0.0.1")
	r.Upsert("b", "10.0.0.2")
	r.SetSelected("a", false)
	r.SetDesiredLocked("b", true)

	if changed := r.SetAllSelected(true); len(changed) != 1 || changed[0] != "a" {
		t.Errorf("SetAllSelected(true) changed = %v, want [a]", changed)
	}
	r.Tick()
	r.Tick()

	s := r.Stats()
	want := Stats{Total: 2, Selected: 2, Locked: 0, Stale: 2}
	if s != want {
		t.Errorf("Stats() = %+v, want %+v", s, want)
	}
}

func TestRegistry_SetAllSelectedRegistrationOrder(t *testing.T) {
	r := NewRegistry(30)
	for _, name := range []string{"d", "b", "c", "a"} {
		r.Upsert(name, "10.0.0.1")
	}

	changed := r.SetAllSelected(false)
	want := []string{"d", "b", "c", "a"}
	if len(changed) != len(want) {
		t.Fatalf("changed = %v, want %v", changed, want)
	}
	for i := range want {
		if changed[i] != want[i] {
			t.Errorf("changed = %v, want %v", changed, want)
			break
		}
	}
	if again := r.SetAllSelected(false); len(again) != 0 {
		t.Errorf("second SetAllSelected(false) changed = %v, want none", again)
	}
}

func TestRegistry_Apply(t *testing.T) {
	r := NewRegistry(30)
	r.Upsert("alice", "10.0.0.5")

	errBoom := errors.New("boom")
	err := r.Apply("alice", func(d *Device) error {
		d.DesiredLocked = true
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Errorf("Apply() error = %v, want %v", err, errBoom)
	}
	if d, _ := r.Get("alice"); !d.DesiredLocked {
		t.Error("change made before the error was not kept")
	}

	called := false
	err = r.Apply("ghost", func(*Device) error { called = true; return nil })
	if !errors.Is(err, ErrDeviceNotFound) || called {
		t.Errorf("Apply(ghost) = %v, called = %v; want ErrDeviceNotFound, false", err, called)
	}
}

func TestRegistry_RecordOutcome(t *testing.T) {
	r := NewRegistry(30)
	r.Upsert("alice", "10.0.0.5")

	if err := r.RecordOutcome("alice", "delivered", "ok"); err != nil {
		t.Fatalf("RecordOutcome() error = %v", err)
	}
	d, _ := r.Get("alice")
	if d.LastOutcome != "delivered" || d.LastObservedReply != "ok" {
		t.Errorf("outcome = %q/%q, want delivered/ok", d.LastOutcome, d.LastObservedReply)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry(30)
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Upsert("alice", "10.0.0.5")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Tick()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.ForEachSelected(func(Device) {})
				r.List()
			}
		}()
	}
	wg.Wait()

	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestDevice_LockIntent(t *testing.T) {
	if got := (Device{DesiredLocked: true}).LockIntent(); got != LockIntentLocked {
		t.Errorf("LockIntent() = %q, want %q", got, LockIntentLocked)
	}
	if got := (Device{}).LockIntent(); got != LockIntentUnlocked {
		t.Errorf("LockIntent() = %q, want %q", got, LockIntentUnlocked)
	}
}
