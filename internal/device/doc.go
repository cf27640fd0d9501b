// Package device provides the Device Registry for FleetLock.
//
// The registry is the single shared source of truth for every client machine
// that has announced itself on the LAN. Discovery writes addresses and resets
// liveness, the sweeper ages entries, and the operator sets selection and
// lock intent. The dispatcher never reads it directly; commands carry the
// address captured when they were submitted.
//
// # Architecture
//
//	discovery ──Upsert──▶ ┌──────────────────┐ ◀──SetSelected/SetDesiredLocked── operator
//	                      │     Registry     │
//	sweeper ────Tick────▶ │ name → *Device   │ ──ForEachSelected──▶ reconciler
//	                      │ order []string   │
//	                      └──────────────────┘
//	                               │
//	                               └──OnChange──▶ API / MQTT notifications
//
// # Invariants
//
//   - Name is unique. A repeat announcement updates Address and resets Age;
//     it never creates a second entry or touches Selected and DesiredLocked.
//   - Age only grows between announcements.
//   - When Age reaches the stale threshold, DesiredLocked is forced false
//     once. The device stays in the registry.
//   - Entries are never removed.
//
// # Usage
//
//	registry := device.NewRegistry(cfg.Control.StaleThreshold)
//	registry.SetLogger(log)
//	registry.OnChange(func(d device.Device) { hub.Broadcast("device.registered", d) })
//
//	if created, err := registry.Upsert("alice", "10.0.0.5"); err == nil && created {
//	    // first sighting
//	}
//
// # Thread Safety
//
// All Registry methods are safe for concurrent use. Callbacks passed to
// OnChange and ForEachSelected run outside the registry lock.
package device
