package mqtt

import "fmt"

// Topic prefixes for the irrigation MQTT hierarchy.
//
// Command/ack topics use the scheme: irrigation/{category}/{valve_id}
const (
	// TopicPrefix is the base for all irrigation topics.
	TopicPrefix = "irrigation"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "irrigation/system"
)

// Topics provides builders for irrigation MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	cmdTopic := topics.ValveCommand("valve-01")
//	// Returns: "irrigation/command/valve-01"
type Topics struct{}

// ValveCommand returns the topic for commands to a valve controller.
//
// Example: irrigation/command/valve-01
func (Topics) ValveCommand(valveID string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, valveID)
}

// ValveAck returns the topic for command acknowledgements from a valve
// controller. The last segment is the command ID being acknowledged.
//
// Example: irrigation/ack/valve-01/cmd-abc123
func (Topics) ValveAck(valveID, commandID string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefix, valveID, commandID)
}

// ValveState returns the topic for state updates from a valve controller.
//
// Example: irrigation/state/valve-01
func (Topics) ValveState(valveID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, valveID)
}

// SystemStatus returns the system status topic.
//
// Example: irrigation/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllValveAcks returns a pattern matching all acknowledgements from a valve.
//
// Pattern: irrigation/ack/valve-01/+
func (Topics) AllValveAcks(valveID string) string {
	return fmt.Sprintf("%s/ack/%s/+", TopicPrefix, valveID)
}

// AllValveStates returns a pattern matching all valve state updates.
//
// Pattern: irrigation/state/+
func (Topics) AllValveStates() string {
	return fmt.Sprintf("%s/state/+", TopicPrefix)
}
