package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metricsHandler serves the Prometheus exposition format for s.gatherer.
// Collection errors are logged and the remaining metrics are still served.
func (s *Server) metricsHandler() http.Handler {
	return promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{
		ErrorLog:      promErrorLogger{s},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// promErrorLogger adapts the server logger to promhttp.Logger.
type promErrorLogger struct {
	s *Server
}

func (l promErrorLogger) Println(v ...any) {
	l.s.logger.Error("metrics collection error", "detail", v)
}
