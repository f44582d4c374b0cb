// Package channel implements the bounded, zero-per-message-allocation
// shared-buffer channel spec.md §3/§4.1 describes: a fixed-length ring of
// pre-constructed record slots shared between exactly one producer and
// exactly one consumer, coordinated by a pair of counting semaphores and
// two monotonic indices.
//
// Producers and consumers never move or copy a record between slots; they
// mutate or observe a slot in place through the closures passed to
// Producer.Write and Consumer.Read. This is what lets a slot's backing
// storage amortize across messages instead of being reallocated per send,
// the same "reuse the storage, never move it" discipline
// drgolem/musictools's audioframeringbuffer and fileplayer use for their
// lock-free SPSC buffers, generalized here to blocking semaphores because
// stages are expected to block rather than poll.
package channel

import (
	"errors"
	"sync/atomic"

	"github.com/drgolem/go-audiopipe/record"
)

// ErrPeerGone is returned by Write when the consumer endpoint has been
// destroyed, or by Read when the producer endpoint has been destroyed and
// no buffered records remain to drain.
var ErrPeerGone = errors.New("channel: peer gone")

// ErrCapacityZero is returned by New when asked to create a channel with
// capacity less than 1.
var ErrCapacityZero = errors.New("channel: capacity must be >= 1")

// Channel is the shared state behind a Producer/Consumer endpoint pair. It
// is never referenced directly by calling code outside this package; New
// returns the two endpoints that wrap it.
type Channel[T record.Record] struct {
	slots []T
	n     uint64

	writeIdx atomic.Uint64
	readIdx  atomic.Uint64

	// notEmpty carries one token per slot written but not yet read, plus
	// possibly one extra "wake" token pushed by a dropped producer (see
	// Producer.Close). notFull carries one token per slot free to write
	// into. Using buffered channels as counting semaphores, rather than a
	// dedicated semaphore type, lets endpoint teardown wake a blocked peer
	// with a non-blocking, saturating send (select-with-default) instead of
	// risking an over-release panic — see DESIGN.md.
	notEmpty chan struct{}
	notFull  chan struct{}

	producerAlive atomic.Int32
	consumerAlive atomic.Int32
}

// Producer is the unique write endpoint of a Channel.
type Producer[T record.Record] struct {
	ch     *Channel[T]
	closed bool
}

// Consumer is the unique read endpoint of a Channel.
type Consumer[T record.Record] struct {
	ch     *Channel[T]
	closed bool
}

// New creates a channel of the given capacity paired with its producer and
// consumer endpoints. newRecord is invoked N times to pre-construct every
// slot to its empty state; it is typically a record type's zero value
// constructor, e.g. func() *record.Audio { return &record.Audio{} }.
func New[T record.Record](capacity int, newRecord func() T) (*Producer[T], *Consumer[T], error) {
	if capacity < 1 {
		return nil, nil, ErrCapacityZero
	}

	n := uint64(capacity)
	slots := make([]T, n)
	for i := range slots {
		slots[i] = newRecord()
		slots[i].Reset()
	}

	ch := &Channel[T]{
		slots: slots,
		n:     n,
		// notEmpty is sized n+1: up to n tokens track real unread writes,
		// plus exactly one extra slot of headroom reserved for the single
		// teardown wake-up a dropped producer sends (Producer.Close). That
		// extra token must never be dropped by a full buffer, or a consumer
		// that has drained every real record could block forever instead
		// of observing ErrPeerGone — see DESIGN.md.
		notEmpty: make(chan struct{}, n+1),
		notFull:  make(chan struct{}, n),
	}
	for i := uint64(0); i < n; i++ {
		ch.notFull <- struct{}{}
	}
	ch.producerAlive.Store(1)
	ch.consumerAlive.Store(1)

	return &Producer[T]{ch: ch}, &Consumer[T]{ch: ch}, nil
}

// Write acquires exclusive access to the next slot in FIFO order and
// invokes mutate with it. mutate is expected to populate the record's
// payload and set its terminal flag; it must not retain the pointer past
// its call. Write blocks if the channel is full. It returns ErrPeerGone if
// the consumer endpoint has already been closed.
func (p *Producer[T]) Write(mutate func(rec T)) error {
	if p.closed || p.ch.consumerAlive.Load() == 0 {
		return ErrPeerGone
	}

	<-p.ch.notFull

	if p.ch.consumerAlive.Load() == 0 {
		return ErrPeerGone
	}

	idx := p.ch.writeIdx.Add(1) - 1
	slot := p.ch.slots[idx%p.ch.n]
	slot.Reset()
	mutate(slot)

	p.ch.notEmpty <- struct{}{}
	return nil
}

// Close destroys the producer endpoint. Calling it again is a no-op. A
// blocked or future Read on the paired consumer observes ErrPeerGone once
// all buffered records have been drained.
func (p *Producer[T]) Close() {
	if p.closed {
		return
	}
	p.closed = true
	p.ch.producerAlive.Store(0)

	// Wake a consumer that may be blocked waiting for a record that will
	// never come. notEmpty has one slot of headroom beyond the capacity
	// (see New), so this send always finds room; the select only
	// guarantees Close itself never blocks.
	select {
	case p.ch.notEmpty <- struct{}{}:
	default:
	}
}

// Read acquires shared access to the next slot in FIFO order, in the exact
// order the producer wrote it, and invokes observe with it. observe must
// not retain the pointer past its call. Read blocks if the channel is
// empty and the producer is still alive. It returns ErrPeerGone if the
// producer endpoint has been closed and no buffered records remain to
// drain.
func (c *Consumer[T]) Read(observe func(rec T)) error {
	if c.closed {
		return ErrPeerGone
	}
	if c.ch.producerAlive.Load() == 0 && c.ch.readIdx.Load() == c.ch.writeIdx.Load() {
		return ErrPeerGone
	}

	for {
		<-c.ch.notEmpty

		read := c.ch.readIdx.Load()
		write := c.ch.writeIdx.Load()
		if read == write {
			// This token did not correspond to a real write: it is either
			// the producer's teardown wake-up, or (defensively) a spurious
			// token. Either way there is nothing to observe.
			if c.ch.producerAlive.Load() == 0 {
				return ErrPeerGone
			}
			continue
		}

		c.ch.readIdx.Add(1)
		slot := c.ch.slots[read%c.ch.n]
		observe(slot)

		c.ch.notFull <- struct{}{}
		return nil
	}
}

// Close destroys the consumer endpoint. Calling it again is a no-op. A
// blocked or future Write on the paired producer observes ErrPeerGone.
func (c *Consumer[T]) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.ch.consumerAlive.Store(0)

	select {
	case c.ch.notFull <- struct{}{}:
	default:
	}
}
