package sim

import "fmt"

// State is the machine's top-level operating state as carried on the
// wire.
type State uint8

// Machine states.
const (
	StateSleep         State = 0x00
	StateGoingToSleep  State = 0x01
	StateIdle          State = 0x02
	StateBusy          State = 0x03
	StateEspresso      State = 0x04
	StateSteam         State = 0x05
	StateHotWater      State = 0x06
	StateShortCal      State = 0x07
	StateSelfTest      State = 0x08
	StateLongCal       State = 0x09
	StateDescale       State = 0x0A
	StateFatalError    State = 0x0B
	StateInit          State = 0x0C
	StateNoRequest     State = 0x0D
	StateSkipToNext    State = 0x0E
	StateHotWaterRinse State = 0x0F
	StateSteamRinse    State = 0x10
	StateRefill        State = 0x11
	StateClean         State = 0x12
	StateInBootLoader  State = 0x13
	StateAirPurge      State = 0x14
	StateSchedIdle     State = 0x15
)

var stateNames = map[State]string{
	StateSleep:         "sleep",
	StateGoingToSleep:  "going_to_sleep",
	StateIdle:          "idle",
	StateBusy:          "busy",
	StateEspresso:      "espresso",
	StateSteam:         "steam",
	StateHotWater:      "hot_water",
	StateShortCal:      "short_cal",
	StateSelfTest:      "self_test",
	StateLongCal:       "long_cal",
	StateDescale:       "descale",
	StateFatalError:    "fatal_error",
	StateInit:          "init",
	StateNoRequest:     "no_request",
	StateSkipToNext:    "skip_to_next",
	StateHotWaterRinse: "hot_water_rinse",
	StateSteamRinse:    "steam_rinse",
	StateRefill:        "refill",
	StateClean:         "clean",
	StateInBootLoader:  "in_boot_loader",
	StateAirPurge:      "air_purge",
	StateSchedIdle:     "sched_idle",
}

// String returns the state's log-friendly name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state_0x%02X", uint8(s))
}

// SubState refines the top-level state while an operation runs.
type SubState uint8

// Operation substates.
const (
	SubReady        SubState = 0
	SubHeating      SubState = 1
	SubFinalHeating SubState = 2
	SubStabilising  SubState = 3
	SubPreinfusion  SubState = 4
	SubPouring      SubState = 5
	SubEnding       SubState = 6
	SubSteaming     SubState = 7
)

var subStateNames = map[SubState]string{
	SubReady:        "ready",
	SubHeating:      "heating",
	SubFinalHeating: "final_heating",
	SubStabilising:  "stabilising",
	SubPreinfusion:  "preinfusion",
	SubPouring:      "pouring",
	SubEnding:       "ending",
	SubSteaming:     "steaming",
}

// String returns the substate's log-friendly name.
func (s SubState) String() string {
	if name, ok := subStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("substate_%d", uint8(s))
}

// IsOperation reports whether a state is one of the four runnable
// operations.
func (s State) IsOperation() bool {
	switch s {
	case StateEspresso, StateSteam, StateHotWater, StateHotWaterRinse:
		return true
	default:
		return false
	}
}
