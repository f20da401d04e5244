package sim

import "time"

// phase is one step of an operation's substate sequence.
type phase struct {
	sub      SubState
	duration time.Duration
}

// phaseTable drives every operation: each state walks its phase list
// in order, then the machine returns to idle. Changing an operation's
// shape is a table edit, not a code change.
var phaseTable = map[State][]phase{
	StateEspresso: {
		{SubHeating, 2 * time.Second},
		{SubPreinfusion, 5 * time.Second},
		{SubPouring, 25 * time.Second},
		{SubEnding, 2 * time.Second},
	},
	StateSteam: {
		{SubSteaming, 45 * time.Second},
	},
	StateHotWater: {
		{SubPouring, 30 * time.Second},
	},
	StateHotWaterRinse: {
		{SubPouring, 10 * time.Second},
	},
}
