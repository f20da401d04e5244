package mmr

import "fmt"

// Address is a 24-bit memory-mapped register address.
type Address uint32

// Known register addresses.
const (
	// AddrCPUBoardModel identifies the CPU board revision.
	AddrCPUBoardModel Address = 0x800008

	// AddrMachineModel identifies the machine model (2 = Plus).
	AddrMachineModel Address = 0x80000C

	// AddrFirmwareVersion holds the four firmware version bytes.
	AddrFirmwareVersion Address = 0x800010

	// AddrFanThreshold is the case fan activation temperature.
	AddrFanThreshold Address = 0x803808

	// AddrGHCInfo reports the group head controller install level.
	AddrGHCInfo Address = 0x80381C

	// AddrGHCMode selects the group head controller operating mode.
	AddrGHCMode Address = 0x803820

	// AddrSteamFlow is the steam valve flow rate setting.
	AddrSteamFlow Address = 0x803828

	// AddrSerialNumber holds the machine serial number.
	AddrSerialNumber Address = 0x803830

	// AddrHeaterVoltage is the configured mains voltage.
	AddrHeaterVoltage Address = 0x803834

	// AddrUSBCharger controls the front USB charging port.
	AddrUSBCharger Address = 0x803854

	// AddrRefillKit reports refill kit presence.
	AddrRefillKit Address = 0x80385C
)

// ghcBlockingLevel is the install level at which the group head
// controller takes over operation start and remote requests are refused.
const ghcBlockingLevel = 3

// addressNames maps known registers to human-readable names for logs.
var addressNames = map[Address]string{
	AddrCPUBoardModel:   "cpu_board_model",
	AddrMachineModel:    "machine_model",
	AddrFirmwareVersion: "firmware_version",
	AddrFanThreshold:    "fan_threshold",
	AddrGHCInfo:         "ghc_info",
	AddrGHCMode:         "ghc_mode",
	AddrSteamFlow:       "steam_flow",
	AddrSerialNumber:    "serial_number",
	AddrHeaterVoltage:   "heater_voltage",
	AddrUSBCharger:      "usb_charger",
	AddrRefillKit:       "refill_kit",
}

// Name returns the register's log-friendly name, or "unknown" for
// unmapped addresses.
func (a Address) Name() string {
	if name, ok := addressNames[a]; ok {
		return name
	}
	return "unknown"
}

// String formats the address as a 6-digit hex literal.
func (a Address) String() string {
	return fmt.Sprintf("0x%06X", uint32(a))
}
