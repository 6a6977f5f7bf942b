package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-energy/internal/infrastructure/mqtt"
)

// Publisher publishes JSON payloads. *mqtt.Client satisfies it.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// MQTTNotifier publishes alerts to graylogic/core/alert/energy-overload.
type MQTTNotifier struct {
	publisher Publisher
	topic     string
	siteID    string
	now       func() time.Time
}

// NewMQTTNotifier creates a notifier publishing through publisher.
func NewMQTTNotifier(publisher Publisher, siteID string) *MQTTNotifier {
	return &MQTTNotifier{
		publisher: publisher,
		topic:     mqtt.Topics{}.CoreAlert(mqtt.AlertEnergyOverload),
		siteID:    siteID,
		now:       time.Now,
	}
}

// SendAlert publishes message as a non-retained Alert.
func (n *MQTTNotifier) SendAlert(_ context.Context, message string) error {
	alert := Alert{
		Type:      AlertType,
		Message:   message,
		SiteID:    n.siteID,
		Timestamp: n.now().UTC(),
	}
	if err := n.publisher.PublishJSON(n.topic, alert, false); err != nil {
		return fmt.Errorf("publishing alert to %s: %w", n.topic, err)
	}
	return nil
}
