package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// measurementEnergyReading is the measurement written for every check.
const measurementEnergyReading = "energy_reading"

// EnergyReading is one overload check, as exported to InfluxDB.
type EnergyReading struct {
	SiteID        string
	UsageKWh      float64
	DailyLimitKWh float64
	ActiveDevices int
	Overloaded    bool
	CheckedAt     time.Time
}

// WriteEnergyReading queues a reading for the next batch.
// Readings are dropped silently while disconnected.
func (c *Client) WriteEnergyReading(r EnergyReading) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(newEnergyPoint(r))
}

func newEnergyPoint(r EnergyReading) *write.Point {
	at := r.CheckedAt
	if at.IsZero() {
		at = time.Now()
	}

	return write.NewPoint(
		measurementEnergyReading,
		map[string]string{
			"site_id": r.SiteID,
		},
		map[string]interface{}{
			"usage_kwh":       r.UsageKWh,
			"daily_limit_kwh": r.DailyLimitKWh,
			"active_devices":  r.ActiveDevices,
			"overloaded":      r.Overloaded,
		},
		at,
	)
}
