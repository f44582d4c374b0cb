// Package record defines the reusable message shapes carried on a
// channel.Channel slot: a default-constructible, in-place-resettable
// record contract, and the two concrete record types this module ships,
// Binary and Audio.
package record

// Record is the contract every type carried on a channel.Channel slot must
// satisfy: default-constructible in a well-defined empty state, and
// in-place resettable to that state without releasing any heap capacity
// the record has already grown into.
type Record interface {
	// Reset returns the record to its empty state in place. Implementations
	// must preserve any backing array capacity so repeated reset-then-refill
	// cycles do not reallocate once a slot has grown to its steady-state size.
	Reset()
}
