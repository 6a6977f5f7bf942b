// Package notify delivers energy alerts.
//
// Every notifier implements energy.Notifier. LogNotifier writes the alert to
// the structured log, MQTTNotifier publishes it on the Gray Logic bus and
// WebhookNotifier POSTs it to an HTTP endpoint. Fanout sends one alert to
// several notifiers and reports every failure.
package notify
