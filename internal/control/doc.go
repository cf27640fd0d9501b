// Package control keeps devices converging on operator intent.
//
// Nothing in the device protocol is acknowledged, so no single command is
// trusted. Instead three timers share one goroutine:
//
//	┌──────────── Scheduler goroutine ─────────────┐
//	│ poll (1s)      Listener.Drain → Registry     │
//	│ reconcile (3s) Reconciler → Dispatcher.Submit│
//	│ sweep (1s)     Sweeper → Registry.Tick       │
//	└──────────────────────────────────────────────┘
//	                      │ Submit (never blocks)
//	                      ▼
//	          Dispatcher worker (one send at a time)
//
// The Reconciler re-submits lock or unlock for every selected device on
// every pass. A device that missed a command, rebooted, or was unplugged
// and reconnected is corrected on the next pass. The Sweeper releases lock
// intent for devices that stop announcing so a machine that leaves the
// network is not locked when it comes back.
//
// Controller is the operator surface. It is used by the HTTP API, the MQTT
// remote command handler and the CLI, and it records dispatcher results back
// onto the registry.
package control
