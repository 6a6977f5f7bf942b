// Package energy monitors aggregate power draw against the daily limit of
// the current energy plan and raises an alert when the limit is exceeded.
//
// Usage is an approximation: the summed wattage of every device that is on,
// divided by 1000, as if the present load ran for one hour. Readings are
// compared with the plan limit using a strict greater-than, so usage equal
// to the limit does not alert.
//
// The Monitor reaches devices, plans and alert delivery only through the
// DeviceLister, PlanRepository and Notifier interfaces. The Watcher runs
// checks on a fixed interval and hands each Reading to its sinks (Prometheus
// collector, InfluxDB export).
//
// # Alert format
//
//	Overload detected: 3,5 kWh used!
//
// The usage is rendered in its shortest exact decimal form. The decimal
// separator defaults to a comma and can be switched to a period with
// SetDecimalSeparator.
package energy
