// Package mqtt provides MQTT client connectivity for the DE1 simulator.
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
// The simulator uses MQTT as its operator surface: telemetry (machine
// state, shot samples, water levels) flows out on de1sim/* topics, and
// operator commands arrive on de1sim/control/* topics. BLE clients
// connected via the peripheral daemon see the same machine; MQTT gives
// test rigs and dashboards a second, broker-decoupled view of it.
//
//	BLE clients ↔ peripheral daemon ↔ simulator ↔ MQTT Broker ↔ operators
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all operator commands
//	err = client.Subscribe(mqtt.Topics{}.AllControl(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish state
//	topic := mqtt.Topics{}.State()
//	client.Publish(topic, []byte(`{"state":"idle"}`), 1, true)
package mqtt
