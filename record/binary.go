package record

// Binary is a reusable record carrying a raw byte chunk plus a terminal flag.
// Exactly one record in a stream has Terminal set, and it is always the
// last one; an empty Data slice on a terminal record is a valid
// zero-length stream.
type Binary struct {
	Data     []byte
	Terminal bool
}

// Reset empties Data and clears Terminal without releasing Data's backing
// array, so the next Fill call into the same slot can reuse its capacity.
func (b *Binary) Reset() {
	b.Data = b.Data[:0]
	b.Terminal = false
}

// Fill replaces the record's payload and terminal flag. It grows Data's
// backing array by append semantics, never reallocating to exact length, so
// repeated Fill calls against a slot that has already grown to its
// steady-state size allocate nothing.
func (b *Binary) Fill(payload []byte, terminal bool) {
	b.Data = append(b.Data[:0], payload...)
	b.Terminal = terminal
}
