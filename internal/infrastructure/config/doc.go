// Package config handles loading and validating FleetLock configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (FLEETLOCK_*)
//   - Validation of required fields
//   - Default value handling
//
// The protocol defaults (discovery port 37020, command port 5005, 200ms
// connect and reply timeouts, 1024 byte buffers, 3s reconcile, 1s sweep,
// 30 tick stale threshold) match what deployed devices expect. Change them
// only when the device side changes too.
//
// Security Considerations:
//   - Sensitive values (MQTT password, InfluxDB token, JWT secret) should be
//     set via environment variables
//   - The device protocol itself is unauthenticated
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Commands.Port)
package config
