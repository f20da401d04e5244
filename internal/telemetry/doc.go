// Package telemetry fans simulator events out to the operator surfaces.
//
// The simulation engine raises callbacks on its own goroutine for state
// changes, live samples, water levels, and operation endings. This
// package is the single consumer of those callbacks and forwards each
// event to whichever sinks are configured:
//
//	            ┌──────────────┐
//	 engine ───►│   Service    │───► MQTT broker   (state, samples, water)
//	 callbacks  │   fan-out    │───► InfluxDB      (time-series points)
//	            │              │───► SQLite        (shot history rows)
//	            └──────▲───────┘
//	                   │
//	        de1sim/control/#  (operator commands back into the engine)
//
// All sinks are optional; a nil broker, metrics client, or repository
// simply skips that sink. The MQTT control subscription turns inbound
// operator commands (request a state, set the GHC level, set the tank
// level) into engine calls, giving test rigs a way to drive the machine
// without a BLE client.
package telemetry
