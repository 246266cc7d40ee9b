// Package qspnerrors defines the engine's error taxonomy: sentinel values
// recognized with errors.Is, wrapped with stack context at the boundary
// that detects them.
package qspnerrors

import "github.com/teranos/netsukuku/errors"

// Sentinel classes. Use errors.Is(err, ErrStaleRound) etc. to classify.
var (
	// ErrMalformedPacket: wire parse inconsistency. Drop silently, log DEBUG.
	ErrMalformedPacket = errors.New("malformed packet")
	// ErrStaleRound: packet qspn_id older than local. Drop.
	ErrStaleRound = errors.New("stale round")
	// ErrLoopDetected: tracer originator equals self within current round. Drop.
	ErrLoopDetected = errors.New("loop detected")
	// ErrBufferFull: tracer hops at MAX_TRACER_HOPS when building.
	ErrBufferFull = errors.New("tracer buffer full")
	// ErrLinkDown: a single transport send failure. Log, continue flood.
	ErrLinkDown = errors.New("link down")
	// ErrMapInconsistency: assertion-class, unreachable by design.
	ErrMapInconsistency = errors.New("map inconsistency")
	// ErrRadarStarve: no ECHO_REPLY received across two scans.
	ErrRadarStarve = errors.New("radar starve")
)

// MalformedPacket wraps ErrMalformedPacket with a reason, for use in wire
// decoders where the exact framing problem is worth keeping around.
func MalformedPacket(reason string) error {
	return errors.Wrap(ErrMalformedPacket, reason)
}

// StaleRound wraps ErrStaleRound with round identifiers for diagnostics.
func StaleRound(localID, pktID uint32) error {
	return errors.Wrapf(ErrStaleRound, "local qspn_id=%d pkt qspn_id=%d", localID, pktID)
}

// LoopDetected wraps ErrLoopDetected with the originator position.
func LoopDetected(originator uint16) error {
	return errors.Wrapf(ErrLoopDetected, "originator pos=%d is self", originator)
}

// BufferFull wraps ErrBufferFull with the hop count that overflowed.
func BufferFull(hops, max int) error {
	return errors.Wrapf(ErrBufferFull, "hops=%d exceeds max=%d", hops, max)
}

// MapInconsistency wraps ErrMapInconsistency with context, carrying a stack
// trace since it is an assertion-class condition that should not occur.
func MapInconsistency(reason string) error {
	return errors.WithStack(errors.Wrap(ErrMapInconsistency, reason))
}
