// Package influxdb provides InfluxDB connectivity for the DE1 simulator.
//
// It wraps the official influxdb-client-go v2 library with simulator-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Shot telemetry samples (pressure, flow, temperatures)
//   - Machine state transitions
//   - Water tank level history
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "de1sim",
//	    Bucket: "shots",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Write a shot sample
//	client.WriteShotSample(shotID, "espresso", 7.2, 8.4, 2.1, 93.0, 93.2, 1)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for high-frequency telemetry data.
package influxdb
