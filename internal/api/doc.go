// Package api implements the HTTP REST API for Gray Logic Energy.
//
// This package provides:
//   - Device endpoints for listing devices, querying active ones and toggling state
//   - Energy endpoints for current usage, on-demand overload checks and the daily limit
//   - An audit trail endpoint backed by the audit repository
//   - Prometheus metrics at /metrics
//   - Middleware stack (request ID, logging, recovery, CORS, body size limit)
//
// # Architecture
//
// The server is a thin HTTP layer over device.Registry and energy.Monitor.
// State-changing requests are recorded in the audit log after they succeed.
// Audit writes are queued and written serially once the server is started.
//
// # Graceful Degradation
//
// Audit logging and metrics are optional. Without an audit repository the
// audit endpoint reports an internal error and mutations are not recorded.
package api
