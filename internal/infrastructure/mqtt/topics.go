package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for FleetLock MQTT traffic.
const (
	// TopicPrefix is the root of every FleetLock topic.
	TopicPrefix = "fleetlock"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "fleetlock/system"
)

// Topics provides builders for FleetLock MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.Event("device.updated")   // fleetlock/events/device.updated
//	topics.Command("lab-pc-07")      // fleetlock/command/lab-pc-07
type Topics struct{}

// SystemStatus returns the retained online/offline status topic.
//
// Example: fleetlock/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// Event returns the topic an event channel is published on.
//
// Example: fleetlock/events/command.completed
func (Topics) Event(channel string) string {
	return fmt.Sprintf("%s/events/%s", TopicPrefix, channel)
}

// Command returns the remote command topic for one device.
//
// Example: fleetlock/command/lab-pc-07
func (Topics) Command(deviceName string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, deviceName)
}

// AllCommands returns a pattern matching remote commands for every device.
//
// Pattern: fleetlock/command/+
func (Topics) AllCommands() string {
	return fmt.Sprintf("%s/command/+", TopicPrefix)
}

// AllEvents returns a pattern matching every event channel.
//
// Pattern: fleetlock/events/#
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/events/#", TopicPrefix)
}

// DeviceFromCommandTopic extracts the device name from a command topic.
// Returns false if topic is not a single-level command topic.
func DeviceFromCommandTopic(topic string) (string, bool) {
	prefix := TopicPrefix + "/command/"
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(topic, prefix)
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}
