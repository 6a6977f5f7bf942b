package mqtt

import "fmt"

// Topic prefixes shared with the rest of the Gray Logic bus.
const (
	// TopicPrefixCore is the base for all core topics.
	TopicPrefixCore = "graylogic/core"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "graylogic/system"
)

// AlertEnergyOverload is the alert ID used for overload alerts.
const AlertEnergyOverload = "energy-overload"

// Topics provides builders for the MQTT topics this service publishes to.
//
//	topic := mqtt.Topics{}.CoreAlert(mqtt.AlertEnergyOverload)
//	// Returns: "graylogic/core/alert/energy-overload"
type Topics struct{}

// CoreAlert returns the topic for a system alert.
//
// Example: graylogic/core/alert/energy-overload
func (Topics) CoreAlert(alertID string) string {
	return fmt.Sprintf("%s/alert/%s", TopicPrefixCore, alertID)
}

// EnergyReading returns the topic for periodic energy readings of a site.
//
// Example: graylogic/core/energy/site-001/reading
func (Topics) EnergyReading(siteID string) string {
	return fmt.Sprintf("%s/energy/%s/reading", TopicPrefixCore, siteID)
}

// SystemStatus returns the topic carrying online/offline status (and the LWT).
//
// Example: graylogic/system/status/graylogic-energy
func (Topics) SystemStatus(clientID string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefixSystem, clientID)
}

// AllCoreAlerts returns a wildcard pattern matching every alert topic.
func (Topics) AllCoreAlerts() string {
	return TopicPrefixCore + "/alert/+"
}
