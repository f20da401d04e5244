package mmr

import (
	"fmt"
	"sync"
)

// Register layout constants.
const (
	// addressOffset is the byte offset of the big-endian address in a
	// request or reply.
	addressOffset = 1

	// valueOffset is the byte offset of the little-endian value in a
	// write request or read reply.
	valueOffset = 4

	// replyLen is the total length of a read reply payload.
	replyLen = 8

	// readRequestMin is the minimum length of a read request (length
	// byte plus 3-byte address).
	readRequestMin = 4

	// writeRequestMin is the minimum length of a write request (header
	// plus 4-byte value).
	writeRequestMin = 8

	// ghcMaxLevel is the highest valid group head controller level.
	ghcMaxLevel = 4

	// byteShift is the bit shift for byte extraction.
	byteShift = 8
)

// Logger is the minimal logging interface the bank needs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
}

// Defaults configure the factory values of identity registers.
type Defaults struct {
	// MachineModel is reported at AddrMachineModel (2 = Plus).
	MachineModel uint32

	// SerialNumber is reported at AddrSerialNumber.
	SerialNumber uint32

	// HeaterVoltage is reported at AddrHeaterVoltage (e.g. 230).
	HeaterVoltage uint32

	// GHCLevel is the initial group head controller install level (0-4).
	GHCLevel uint32
}

// Bank is the thread-safe register store.
//
// All registers are 32-bit words keyed by 24-bit address. Unknown
// addresses read as zero; every write is accepted and recorded.
type Bank struct {
	mu     sync.RWMutex
	regs   map[Address]uint32
	logger Logger
}

// NewBank creates a register bank seeded with identity registers.
//
// Parameters:
//   - defaults: Factory register values
//   - logger: Destination for register traffic logs
//
// Returns:
//   - *Bank: Ready-to-use bank
func NewBank(defaults Defaults, logger Logger) *Bank {
	b := &Bank{
		regs:   make(map[Address]uint32),
		logger: logger,
	}

	b.regs[AddrCPUBoardModel] = 1
	b.regs[AddrMachineModel] = defaults.MachineModel
	// Version bytes 1.0.0.0, major in the low byte.
	b.regs[AddrFirmwareVersion] = 0x00000001
	b.regs[AddrSerialNumber] = defaults.SerialNumber
	b.regs[AddrHeaterVoltage] = defaults.HeaterVoltage
	b.regs[AddrUSBCharger] = 1
	b.setGHC(defaults.GHCLevel)

	return b
}

// Read returns the value of a register, zero if the address is unknown.
func (b *Bank) Read(addr Address) uint32 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.regs[addr]
}

// Write stores a register value. Writes never fail; unknown addresses
// are created on the fly so clients can round-trip their own settings.
func (b *Bank) Write(addr Address, value uint32) {
	b.mu.Lock()
	b.regs[addr] = value
	b.mu.Unlock()

	b.logInfo("register write", "address", addr.String(), "name", addr.Name(), "value", value)
}

// GHCLevel returns the current group head controller install level.
func (b *Bank) GHCLevel() uint32 {
	return b.Read(AddrGHCInfo)
}

// SetGHCLevel sets the group head controller install level, clamped
// to the valid range.
func (b *Bank) SetGHCLevel(level uint32) {
	b.mu.Lock()
	b.setGHC(level)
	b.mu.Unlock()

	b.logInfo("ghc level set", "level", b.GHCLevel())
}

// GHCBlocksRemote reports whether the controller level refuses
// remotely requested operations.
func (b *Bank) GHCBlocksRemote() bool {
	return b.GHCLevel() == ghcBlockingLevel
}

func (b *Bank) setGHC(level uint32) {
	if level > ghcMaxLevel {
		level = ghcMaxLevel
	}
	b.regs[AddrGHCInfo] = level
}

// ParseReadRequest extracts the target address from a read request
// payload (length byte followed by a big-endian 3-byte address).
//
// Parameters:
//   - data: Request payload (at least 4 bytes)
//
// Returns:
//   - Address: Requested register address
//   - error: If the payload is too short
func ParseReadRequest(data []byte) (Address, error) {
	if len(data) < readRequestMin {
		return 0, fmt.Errorf("%w: read request requires %d bytes, got %d", ErrMalformedRequest, readRequestMin, len(data))
	}
	return decodeAddress(data[addressOffset:]), nil
}

// ParseWriteRequest extracts the target address and little-endian
// 32-bit value from a write request payload.
//
// Parameters:
//   - data: Request payload (at least 8 bytes)
//
// Returns:
//   - Address: Target register address
//   - uint32: Value to store
//   - error: If the payload is too short
func ParseWriteRequest(data []byte) (Address, uint32, error) {
	if len(data) < writeRequestMin {
		return 0, 0, fmt.Errorf("%w: write request requires %d bytes, got %d", ErrMalformedRequest, writeRequestMin, len(data))
	}
	addr := decodeAddress(data[addressOffset:])
	value := uint32(data[valueOffset]) |
		uint32(data[valueOffset+1])<<byteShift |
		uint32(data[valueOffset+2])<<(2*byteShift) |
		uint32(data[valueOffset+3])<<(3*byteShift)
	return addr, value, nil
}

// ReadReply builds the 8-byte read reply for an address: the address
// echoed as a big-endian 32-bit word, then the value little-endian.
// Addresses are 24-bit, so the leading byte is always zero.
//
// Parameters:
//   - addr: Register address to read
//
// Returns:
//   - []byte: Reply payload ready to notify
func (b *Bank) ReadReply(addr Address) []byte {
	value := b.Read(addr)

	if addr.Name() == "unknown" {
		b.logDebug("read of unknown register", "address", addr.String())
	}

	reply := make([]byte, replyLen)
	reply[0] = byte(addr >> (3 * byteShift))
	reply[addressOffset] = byte(addr >> (2 * byteShift))
	reply[addressOffset+1] = byte(addr >> byteShift)
	reply[addressOffset+2] = byte(addr)
	reply[valueOffset] = byte(value)
	reply[valueOffset+1] = byte(value >> byteShift)
	reply[valueOffset+2] = byte(value >> (2 * byteShift))
	reply[valueOffset+3] = byte(value >> (3 * byteShift))
	return reply
}

// decodeAddress reads a big-endian 3-byte address.
func decodeAddress(data []byte) Address {
	return Address(uint32(data[0])<<(2*byteShift) | uint32(data[1])<<byteShift | uint32(data[2]))
}

func (b *Bank) logInfo(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Info(msg, keysAndValues...)
	}
}

func (b *Bank) logDebug(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, keysAndValues...)
	}
}
