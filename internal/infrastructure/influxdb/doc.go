// Package influxdb exports energy readings to InfluxDB v2.
//
// Each overload check becomes one point in the energy_reading measurement,
// tagged by site. Writes are batched by the official client and never block
// the caller.
//
// Usage:
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteEnergyReading(influxdb.EnergyReading{SiteID: "site-001", UsageKWh: 3.5})
package influxdb
