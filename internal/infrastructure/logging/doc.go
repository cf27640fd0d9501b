// Package logging provides structured logging for FleetLock.
//
// It wraps log/slog so every component logs with the same shape:
//
//   - JSON output for production, text for development
//   - Default fields (service, version) on all entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Component("discovery").Info("listening", "port", 37020)
//
// Malformed announcements and command failures are routine on a LAN.
// They are logged at debug and warn respectively, never at error.
package logging
