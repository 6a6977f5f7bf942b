// Package mqtt connects Gray Logic Energy to the site MQTT broker.
//
// The service only publishes: overload alerts go to
// graylogic/core/alert/energy-overload and the client announces itself on
// graylogic/system/status/{client_id}, with a retained Last Will so other
// services notice a crash.
//
// Usage:
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.CoreAlert(mqtt.AlertEnergyOverload)
//	err = client.PublishJSON(topic, alert, false)
package mqtt
