package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementActivity holds one point per domain event.
const MeasurementActivity = "activity"

// WriteActivity records a domain event, e.g. ("game.ownership_changed", "added").
// Each point carries count=1 so activity can be summed per window.
func (c *Client) WriteActivity(eventType, action string, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(activityPoint(eventType, action, at))
}

// WritePoint writes a custom point timestamped now.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

func activityPoint(eventType, action string, at time.Time) *write.Point {
	tags := map[string]string{"event": eventType}
	if action != "" {
		tags["action"] = action
	}
	return write.NewPoint(MeasurementActivity, tags, map[string]any{"count": 1}, at)
}
