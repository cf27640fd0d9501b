package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/fleetlock/internal/command"
	"github.com/nerrad567/fleetlock/internal/device"
)

// Measurement names.
const (
	MeasurementCommand = "fleetlock_command"
	MeasurementFleet   = "fleetlock_fleet"
)

// CommandPoint converts a dispatcher result into a point tagged by device,
// code, source and outcome.
func CommandPoint(r command.Result) *write.Point {
	fields := map[string]interface{}{
		"duration_ms": r.Duration().Milliseconds(),
		"delivered":   r.Outcome.OK(),
	}
	if r.Outcome.OK() && len(r.Outcome.Reply) > 0 {
		fields["reply"] = string(r.Outcome.Reply)
	}

	return write.NewPoint(
		MeasurementCommand,
		map[string]string{
			"device":  r.Command.Device,
			"code":    r.Command.Code.Name(),
			"source":  string(r.Command.Source),
			"outcome": string(r.Outcome.Kind),
		},
		fields,
		r.Finished,
	)
}

// FleetPoint converts registry aggregates into a point.
func FleetPoint(s device.Stats, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementFleet,
		map[string]string{},
		map[string]interface{}{
			"total":    s.Total,
			"selected": s.Selected,
			"locked":   s.Locked,
			"stale":    s.Stale,
		},
		at,
	)
}

// HandleResult writes one command outcome. Register it with
// Dispatcher.OnResult. The write is non-blocking.
func (c *Client) HandleResult(r command.Result) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(CommandPoint(r))
}

// WriteFleetStats writes a snapshot of registry aggregates.
func (c *Client) WriteFleetStats(s device.Stats) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(FleetPoint(s, time.Now().UTC()))
}
