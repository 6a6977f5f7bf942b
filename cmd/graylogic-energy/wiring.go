package main

import (
	"context"

	"github.com/nerrad567/gray-logic-energy/internal/energy"
	"github.com/nerrad567/gray-logic-energy/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-energy/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-energy/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-energy/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-energy/internal/notify"
)

// buildNotifier assembles the alert chain. Alerts are always logged; MQTT
// and webhook delivery are added when configured.
func buildNotifier(cfg *config.Config, log *logging.Logger, mqttClient *mqtt.Client) *notify.Fanout {
	notifiers := []notify.Notifier{notify.NewLogNotifier(log)}

	if cfg.Notify.MQTT.Enabled && mqttClient != nil {
		notifiers = append(notifiers, notify.NewMQTTNotifier(mqttClient, cfg.Site.ID))
	}
	if cfg.Notify.Webhook.Enabled {
		notifiers = append(notifiers, notify.NewWebhookNotifier(
			cfg.Notify.Webhook.URL, cfg.Site.ID, cfg.GetWebhookTimeout()))
	}

	return notify.NewFanout(notifiers...)
}

// buildSinks returns the watcher sinks: Prometheus always, InfluxDB and the
// retained MQTT reading when those clients are connected.
func buildSinks(cfg *config.Config, metrics *energy.MetricsCollector, influxClient *influxdb.Client, mqttClient *mqtt.Client) []energy.Sink {
	sinks := []energy.Sink{metrics}

	if influxClient != nil {
		sinks = append(sinks, influxSink(influxClient, cfg.Site.ID))
	}
	if mqttClient != nil {
		sinks = append(sinks, mqttReadingSink(mqttClient, cfg.Site.ID))
	}

	return sinks
}

func influxSink(client *influxdb.Client, siteID string) energy.Sink {
	return energy.SinkFunc(func(_ context.Context, r energy.Reading) error {
		client.WriteEnergyReading(influxdb.EnergyReading{
			SiteID:        siteID,
			UsageKWh:      r.UsageKWh,
			DailyLimitKWh: r.DailyLimitKWh,
			ActiveDevices: r.ActiveDevices,
			Overloaded:    r.Overloaded,
			CheckedAt:     r.CheckedAt,
		})
		return nil
	})
}

// readingPublisher is satisfied by *mqtt.Client.
type readingPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

func mqttReadingSink(pub readingPublisher, siteID string) energy.Sink {
	topic := mqtt.Topics{}.EnergyReading(siteID)
	return energy.SinkFunc(func(_ context.Context, r energy.Reading) error {
		return pub.PublishJSON(topic, r, true)
	})
}
