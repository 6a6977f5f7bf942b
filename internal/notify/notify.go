package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AlertType identifies overload alerts in structured payloads.
const AlertType = "energy_overload"

// Logger is the subset of logging.Logger the notifiers need.
type Logger interface {
	Warn(msg string, args ...any)
}

// Notifier delivers one alert message.
type Notifier interface {
	SendAlert(ctx context.Context, message string) error
}

// Alert is the structured form of an alert sent over MQTT.
type Alert struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	SiteID    string    `json:"site_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// LogNotifier writes alerts to the log at warn level.
type LogNotifier struct {
	logger Logger
}

// NewLogNotifier creates a notifier that logs through logger.
func NewLogNotifier(logger Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// SendAlert logs message. It never fails.
func (n *LogNotifier) SendAlert(_ context.Context, message string) error {
	n.logger.Warn("energy alert", "type", AlertType, "message", message)
	return nil
}

// Fanout sends each alert to every wrapped notifier in order.
type Fanout struct {
	notifiers []Notifier
}

// NewFanout combines notifiers. Nil entries are skipped.
func NewFanout(notifiers ...Notifier) *Fanout {
	f := &Fanout{}
	for _, n := range notifiers {
		if n != nil {
			f.notifiers = append(f.notifiers, n)
		}
	}
	return f
}

// Len returns the number of wrapped notifiers.
func (f *Fanout) Len() int {
	return len(f.notifiers)
}

// SendAlert delivers message to every notifier, even after a failure.
// The returned error joins all failures.
func (f *Fanout) SendAlert(ctx context.Context, message string) error {
	var errs []error
	for i, n := range f.notifiers {
		if err := n.SendAlert(ctx, message); err != nil {
			errs = append(errs, fmt.Errorf("notifier %d (%T): %w", i, n, err))
		}
	}
	return errors.Join(errs...)
}
