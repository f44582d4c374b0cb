// Package bytestream adapts a channel.Consumer of Binary records into a
// byte-oriented blocking read/skip interface, plus typed integer reads
// (spec.md §4.2). Blocking is inherited entirely from the underlying
// channel: every primitive here that pulls a new record blocks exactly as
// long as channel.Consumer.Read does.
package bytestream

import (
	"errors"
	"fmt"

	"github.com/drgolem/go-audiopipe/channel"
	"github.com/drgolem/go-audiopipe/record"
)

// ErrUnexpectedEOF is returned by an exact-length read or skip that reaches
// end of stream before satisfying the requested length.
var ErrUnexpectedEOF = errors.New("bytestream: unexpected EOF")

// ErrNoProgress is returned when a read primitive yields zero bytes
// without having reached EOF — every Binary record but the terminal one is
// non-empty, so this indicates a bug or a malformed producer.
var ErrNoProgress = errors.New("bytestream: no progress")

// ErrArgumentError is returned for out-of-range arguments: an n-byte
// integer read outside [1, 8], or a BitReader width outside [1, 32].
var ErrArgumentError = errors.New("bytestream: argument error")

// Reader pulls records from a Binary consumer endpoint and presents them
// as a flat byte stream with typed integer reads layered on top.
type Reader struct {
	consumer *channel.Consumer[*record.Binary]

	buf      []byte
	pos      int
	length   int
	terminal bool

	// scratch backs the n-byte integer reads below. Per-Reader, not
	// package-level: each pipeline stage runs its own Reader on its own
	// goroutine (spec.md §5), and a shared buffer would let two of them
	// race on the same bytes.
	scratch [8]byte
}

// NewReader wraps consumer in a Reader. consumer is owned by the Reader
// from this point on; closing it is the caller's responsibility once the
// Reader is done.
func NewReader(consumer *channel.Consumer[*record.Binary]) *Reader {
	return &Reader{consumer: consumer}
}

// fill pulls the next record from the channel into the internal buffer,
// growing buf's capacity by append semantics (never to exact length) so a
// long-lived Reader amortizes to zero allocations once it has seen its
// largest record.
func (r *Reader) fill() error {
	var terminal bool
	err := r.consumer.Read(func(rec *record.Binary) {
		// Must copy rec.Data here, inside the closure: Read releases the
		// slot back to the producer as soon as it returns, and the
		// producer is free to Reset/Fill it again before this function's
		// caller sees the result.
		r.buf = append(r.buf[:0], rec.Data...)
		terminal = rec.Terminal
	})
	if err != nil {
		return err
	}
	r.pos = 0
	r.length = len(r.buf)
	r.terminal = terminal
	return nil
}

// TryRead copies up to len(out) bytes into out, pulling a new record from
// the channel if the internal buffer is exhausted. It returns the number
// of bytes copied and ok == true, or ok == false at end of stream. A
// channel error (e.g. channel.ErrPeerGone) is returned as err.
func (r *Reader) TryRead(out []byte) (n int, ok bool, err error) {
	if r.pos == r.length {
		if r.terminal {
			return 0, false, nil
		}
		if err := r.fill(); err != nil {
			return 0, false, err
		}
		if r.pos == r.length && r.terminal {
			return 0, false, nil
		}
	}

	n = copy(out, r.buf[r.pos:r.length])
	r.pos += n
	return n, true, nil
}

// TrySkip behaves like TryRead but discards the bytes instead of copying
// them out, advancing the stream position by up to amount bytes.
func (r *Reader) TrySkip(amount int) (n int, ok bool, err error) {
	if r.pos == r.length {
		if r.terminal {
			return 0, false, nil
		}
		if err := r.fill(); err != nil {
			return 0, false, err
		}
		if r.pos == r.length && r.terminal {
			return 0, false, nil
		}
	}

	n = amount
	if remaining := r.length - r.pos; n > remaining {
		n = remaining
	}
	r.pos += n
	return n, true, nil
}

// ReadExact fills out completely, blocking on as many underlying channel
// reads as necessary. It fails with ErrUnexpectedEOF if the stream ends
// before out is full, and with ErrNoProgress if a TryRead call yields
// zero bytes without reaching EOF.
func (r *Reader) ReadExact(out []byte) error {
	filled := 0
	for filled < len(out) {
		n, ok, err := r.TryRead(out[filled:])
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnexpectedEOF
		}
		if n == 0 {
			return ErrNoProgress
		}
		filled += n
	}
	return nil
}

// SkipExact discards exactly amount bytes, with the same EOF/no-progress
// semantics as ReadExact.
func (r *Reader) SkipExact(amount int) error {
	skipped := 0
	for skipped < amount {
		n, ok, err := r.TrySkip(amount - skipped)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnexpectedEOF
		}
		if n == 0 {
			return ErrNoProgress
		}
		skipped += n
	}
	return nil
}

// readBEUintN reads n bytes (1 <= n <= 8) as an unsigned 64-bit integer,
// most-significant byte first.
func (r *Reader) readBEUintN(n int) (uint64, error) {
	if n < 1 || n > 8 {
		return 0, fmt.Errorf("%w: n-byte read out of range [1,8]: %d", ErrArgumentError, n)
	}
	buf := r.scratch[:n]
	if err := r.ReadExact(buf); err != nil {
		return 0, err
	}
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// readLEUintN reads n bytes (1 <= n <= 8) as an unsigned 64-bit integer,
// least-significant byte first.
func (r *Reader) readLEUintN(n int) (uint64, error) {
	if n < 1 || n > 8 {
		return 0, fmt.Errorf("%w: n-byte read out of range [1,8]: %d", ErrArgumentError, n)
	}
	buf := r.scratch[:n]
	if err := r.ReadExact(buf); err != nil {
		return 0, err
	}
	var v uint64
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v, nil
}

// ReadBEUintN reads an arbitrary 1-to-8-byte big-endian unsigned integer.
func (r *Reader) ReadBEUintN(n int) (uint64, error) { return r.readBEUintN(n) }

// ReadLEUintN reads an arbitrary 1-to-8-byte little-endian unsigned integer.
func (r *Reader) ReadLEUintN(n int) (uint64, error) { return r.readLEUintN(n) }

// ReadBEIntN reads an arbitrary 1-to-8-byte big-endian integer and sign
// extends it from bit n*8-1, the top bit of the n-byte value (not of the
// underlying 64-bit word).
func (r *Reader) ReadBEIntN(n int) (int64, error) {
	u, err := r.readBEUintN(n)
	if err != nil {
		return 0, err
	}
	return signExtend(u, n*8), nil
}

// ReadLEIntN is the little-endian counterpart of ReadBEIntN.
func (r *Reader) ReadLEIntN(n int) (int64, error) {
	u, err := r.readLEUintN(n)
	if err != nil {
		return 0, err
	}
	return signExtend(u, n*8), nil
}

// signExtend treats v as meaningful in its low k bits and sign extends it
// to a full int64: shift left by (64-k), then arithmetic shift right by
// (64-k).
func signExtend(v uint64, k int) int64 {
	shift := uint(64 - k)
	return int64(v<<shift) >> shift
}

func (r *Reader) ReadU8() (uint8, error) {
	u, err := r.readBEUintN(1)
	return uint8(u), err
}

func (r *Reader) ReadI8() (int8, error) {
	v, err := r.ReadBEIntN(1)
	return int8(v), err
}

func (r *Reader) ReadBEU16() (uint16, error) {
	u, err := r.readBEUintN(2)
	return uint16(u), err
}

func (r *Reader) ReadLEU16() (uint16, error) {
	u, err := r.readLEUintN(2)
	return uint16(u), err
}

func (r *Reader) ReadBEI16() (int16, error) {
	v, err := r.ReadBEIntN(2)
	return int16(v), err
}

func (r *Reader) ReadLEI16() (int16, error) {
	v, err := r.ReadLEIntN(2)
	return int16(v), err
}

func (r *Reader) ReadBEU32() (uint32, error) {
	u, err := r.readBEUintN(4)
	return uint32(u), err
}

func (r *Reader) ReadLEU32() (uint32, error) {
	u, err := r.readLEUintN(4)
	return uint32(u), err
}

func (r *Reader) ReadBEI32() (int32, error) {
	v, err := r.ReadBEIntN(4)
	return int32(v), err
}

func (r *Reader) ReadLEI32() (int32, error) {
	v, err := r.ReadLEIntN(4)
	return int32(v), err
}

func (r *Reader) ReadBEU64() (uint64, error) { return r.readBEUintN(8) }
func (r *Reader) ReadLEU64() (uint64, error) { return r.readLEUintN(8) }

func (r *Reader) ReadBEI64() (int64, error) { return r.ReadBEIntN(8) }
func (r *Reader) ReadLEI64() (int64, error) { return r.ReadLEIntN(8) }
