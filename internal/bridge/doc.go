// Package bridge connects the behaviour model to the BLE peripheral
// daemon.
//
// The daemon owns the radio: it advertises the GATT service, accepts a
// central, and relays characteristic traffic over a TCP socket as
// newline-delimited JSON. This package provides two pieces:
//
//   - Client: the socket transport. Dials the daemon, performs the
//     ready handshake, starts advertising, reads events, and sends
//     commands. Reconnects with exponential backoff when the daemon
//     restarts. Events are delivered to a single callback goroutine so
//     observers see daemon order.
//
//   - Handler: the protocol logic. Decodes characteristic writes and
//     routes them to the register bank, the profile store or the
//     engine, answers reads, and turns engine callbacks into notify
//     commands.
//
// A malformed payload is logged and dropped; it never disturbs the
// machine state or the connection.
package bridge
