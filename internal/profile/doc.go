// Package profile stores the shot profile uploaded by a client.
//
// A profile upload is a header write followed by a sequence of frame
// writes. The header names how many frames follow and resets any
// previously stored profile. Frame writes carry an index byte that
// selects one of three meanings:
//
//   - index < frameCount: a primary frame (setpoints, duration, exit
//     condition)
//   - 32 <= index < 32+frameCount: an extension of frame index-32
//     (flow/pressure limiter)
//   - index == frameCount: the tail frame closing the upload
//     (maximum total volume), which marks the profile complete
//
// Anything else is out of range and ignored with a warning, never an
// upload failure, so a buggy client sees the same tolerance real
// firmware shows.
package profile
