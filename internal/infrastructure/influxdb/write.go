package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteShotSample writes a single shot telemetry sample to InfluxDB.
//
// This is the primary method for recording shot data during active
// operations. The write is non-blocking; data is batched and sent
// asynchronously.
//
// Parameters:
//   - shotID: Unique identifier for the shot this sample belongs to
//   - state: Machine state name (e.g., "espresso", "steam")
//   - elapsed: Seconds since the operation started
//   - pressure: Group pressure in bar
//   - flow: Flow rate in ml/s
//   - mixTemp: Mix temperature in °C
//   - headTemp: Group head temperature in °C
//   - frame: Active profile frame number
//
// Example:
//
//	client.WriteShotSample(shotID, "espresso", 7.2, 8.4, 2.1, 93.0, 93.2, 1)
func (c *Client) WriteShotSample(shotID, state string, elapsed, pressure, flow, mixTemp, headTemp float64, frame uint8) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"shot_samples",
		map[string]string{
			"shot_id": shotID,
			"state":   state,
		},
		map[string]interface{}{
			"elapsed_s":   elapsed,
			"pressure":    pressure,
			"flow":        flow,
			"mix_temp_c":  mixTemp,
			"head_temp_c": headTemp,
			"frame":       int(frame),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteWaterLevel writes a tank level measurement.
//
// Parameters:
//   - percent: Fill level as a percentage (0-100)
//   - millimetres: Level above the sensor in mm as reported over BLE
func (c *Client) WriteWaterLevel(percent, millimetres float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"water_level",
		nil,
		map[string]interface{}{
			"percent": percent,
			"mm":      millimetres,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteStateChange records a machine state transition.
//
// Used for reconstructing machine activity timelines alongside the
// high-rate shot sample series.
//
// Parameters:
//   - state: New machine state name
//   - substate: New substate name
func (c *Client) WriteStateChange(state, substate string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"machine_state",
		map[string]string{
			"state": state,
		},
		map[string]interface{}{
			"substate": substate,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

