// Package influxdb records FleetLock command outcomes as time series.
//
// It wraps the official influxdb-client-go v2 library. InfluxDB is optional;
// when enabled, every dispatcher result becomes a fleetlock_command point
// and each reconcile pass writes a fleetlock_fleet snapshot.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without time series
//	}
//	defer client.Close()
//
//	dispatcher.OnResult(client.HandleResult)
package influxdb
