// Package mqtt provides the optional MQTT mirror for PowerSync.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The primary output channel of the worker is the JSON-lines stream on
// stdout; MQTT is a best-effort mirror so dashboards and home automation
// can consume readings without tapping the supervisor pipe. The worker
// only publishes, it never subscribes.
//
//	PowerSync Worker → MQTT Broker → Dashboards / Automations
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.PowerReading()
//	client.Publish(topic, payload, 1, false)
package mqtt
