package source

import (
	"errors"

	"github.com/drgolem/go-audiopipe/channel"
	"github.com/drgolem/go-audiopipe/record"
)

// BufferReader emits successive slices of an in-memory byte sequence, each
// of length at most ChunkSize; the final record carries the remainder and
// Terminal = true. An empty Data yields a single terminal record with an
// empty payload.
type BufferReader struct {
	Data      []byte
	ChunkSize int
}

// Run drives producer until it has emitted exactly one terminal record.
func (b *BufferReader) Run(producer *channel.Producer[*record.Binary]) error {
	if b.ChunkSize <= 0 {
		return errors.New("source: chunk size must be positive")
	}

	remaining := b.Data
	for {
		chunk := remaining
		terminal := true
		if len(chunk) > b.ChunkSize {
			chunk = remaining[:b.ChunkSize]
			terminal = false
		}
		remaining = remaining[len(chunk):]

		if err := producer.Write(func(rec *record.Binary) {
			rec.Fill(chunk, terminal)
		}); err != nil {
			return err
		}

		if terminal {
			return nil
		}
	}
}
