// Package mmr implements the DE1 memory-mapped register bank.
//
// Clients read and write machine configuration through two
// characteristics that carry register requests: a read request names a
// 24-bit address and a word count, a write request names an address and
// a little-endian 32-bit value. The bank answers reads with an 8-byte
// reply echoing the address big-endian followed by the register value,
// and accepts every write (logging it) so client test suites never see
// a configuration failure.
//
// Reads of unknown addresses return a zero value rather than an error,
// matching real firmware behaviour for unpopulated regions.
package mmr
