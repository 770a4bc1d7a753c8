// Package actuation bridges the scheduler to the physical valve
// controller over MQTT.
//
// Commands are published to irrigation/command/{valve_id} with a unique
// ID; the controller acknowledges on irrigation/ack/{valve_id}/{id}.
// The gateway correlates acks to in-flight commands so callers get a
// definitive success, rejection, or timeout for every command.
//
// Acknowledgement waiting is optional: with a zero AckTimeout the
// gateway is fire-and-forget, which suits controllers that only report
// state changes.
package actuation
