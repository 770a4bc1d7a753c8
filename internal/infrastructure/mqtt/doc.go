// Package mqtt provides MQTT client connectivity for Irrigation Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// MQTT is the transport between Core and the physical valve controller.
// Core publishes start/stop commands and the controller acknowledges them
// on a per-command topic:
//
//	Irrigation Core ↔ MQTT Broker ↔ Valve Controller
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.ValveCommand("valve-01")
//	client.Publish(topic, []byte(`{"command":"start"}`), 1, false)
package mqtt
