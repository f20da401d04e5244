package mqtt

import "fmt"

// Topic prefixes for the simulator's MQTT surface.
//
// All topics live under a single root: de1sim/{category}/...
// Telemetry flows outward on state/shot/water topics; operator commands
// arrive on control topics.
const (
	// TopicPrefix is the root for all simulator topics.
	TopicPrefix = "de1sim"

	// TopicPrefixControl is the base for inbound operator commands.
	TopicPrefixControl = "de1sim/control"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "de1sim/system"
)

// Topics provides builders for simulator MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.State()
//	// Returns: "de1sim/state"
type Topics struct{}

// =============================================================================
// Telemetry Topics (outbound, published by the simulator)
// =============================================================================

// State returns the topic for machine state updates.
// Published retained so new subscribers see the current state immediately.
//
// Example: de1sim/state
func (Topics) State() string {
	return fmt.Sprintf("%s/state", TopicPrefix)
}

// ShotSample returns the topic for shot telemetry samples.
// High-rate during active operations; not retained.
//
// Example: de1sim/shot/sample
func (Topics) ShotSample() string {
	return fmt.Sprintf("%s/shot/sample", TopicPrefix)
}

// ShotEnd returns the topic for completed shot summaries.
//
// Example: de1sim/shot/end
func (Topics) ShotEnd() string {
	return fmt.Sprintf("%s/shot/end", TopicPrefix)
}

// WaterLevel returns the topic for tank level updates.
// Published retained so dashboards see the current level immediately.
//
// Example: de1sim/water
func (Topics) WaterLevel() string {
	return fmt.Sprintf("%s/water", TopicPrefix)
}

// =============================================================================
// Control Topics (inbound, operator commands to the simulator)
// =============================================================================

// ControlState returns the topic for requesting a machine state.
// Payload is a JSON command naming the target state (espresso, stop, sleep...).
//
// Example: de1sim/control/state
func (Topics) ControlState() string {
	return fmt.Sprintf("%s/state", TopicPrefixControl)
}

// ControlGHC returns the topic for setting the group head controller level.
//
// Example: de1sim/control/ghc
func (Topics) ControlGHC() string {
	return fmt.Sprintf("%s/ghc", TopicPrefixControl)
}

// ControlWaterLevel returns the topic for setting the simulated tank level.
//
// Example: de1sim/control/water_level
func (Topics) ControlWaterLevel() string {
	return fmt.Sprintf("%s/water_level", TopicPrefixControl)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the system status topic.
// Carries online/offline payloads including the LWT crash message.
//
// Example: de1sim/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllControl returns a pattern matching every operator command topic.
//
// Pattern: de1sim/control/#
func (Topics) AllControl() string {
	return fmt.Sprintf("%s/#", TopicPrefixControl)
}

// AllTopics returns a pattern matching all simulator topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: de1sim/#
func (Topics) AllTopics() string {
	return "de1sim/#"
}
