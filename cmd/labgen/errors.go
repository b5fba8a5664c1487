package main

import "net/netip"

// StructuralError reports a malformed topology graph. Detected while the
// model is built, before any allocation work starts.
type StructuralError struct {
	Detail string
}

func (e *StructuralError) Error() string {
	return "topology: " + e.Detail
}

// CapacityError reports a segment whose degree exceeds the usable hosts of
// the largest permitted block. The input topology itself must change.
type CapacityError struct {
	Segment  string
	Degree   int
	MaxBlock int
}

func (e *CapacityError) Error() string {
	return "segment " + e.Segment + ": degree " + itoa(e.Degree) +
		" exceeds capacity of /" + itoa(e.MaxBlock)
}

// PinConflictError reports a pinned address that cannot be honored: outside
// the pool, colliding with another pin, or unsatisfiable block sizing.
type PinConflictError struct {
	Detail string
}

func (e *PinConflictError) Error() string {
	return "pin conflict: " + e.Detail
}

// PoolExhaustionError reports that the root pool ran out of space before
// every segment received a block.
type PoolExhaustionError struct {
	Segment string
	Pool    netip.Prefix
}

func (e *PoolExhaustionError) Error() string {
	return "pool " + e.Pool.String() + " exhausted allocating segment " + e.Segment
}
