// Package source implements the two Binary-producing stages spec.md §6
// describes: a file reader and an in-memory buffer reader. Both fill a
// channel.Producer[*record.Binary] by chunks and set the terminal flag on
// exactly one record, the last.
package source

import (
	"errors"
	"io"
	"log/slog"

	"github.com/drgolem/go-audiopipe/channel"
	"github.com/drgolem/go-audiopipe/record"
)

// FileReader reads a file in fixed-size chunks and emits each chunk as a
// Binary record. Per spec.md §9's "Open question — partial reads", a read
// error is treated the same as clean EOF: the current chunk (if any) is
// emitted as the terminal record and the stage returns nil. Set
// PropagateErrors to instead surface the I/O error to the caller.
type FileReader struct {
	File      io.Reader
	ChunkSize int

	// PropagateErrors, when true, returns the underlying read error instead
	// of treating it as end of stream.
	PropagateErrors bool
}

// Run drives producer until it has emitted exactly one terminal record.
func (f *FileReader) Run(producer *channel.Producer[*record.Binary]) error {
	if f.ChunkSize <= 0 {
		return errors.New("source: chunk size must be positive")
	}

	buf := make([]byte, f.ChunkSize)
	for {
		n, err := f.File.Read(buf)
		terminal := false
		if err != nil {
			if err != io.EOF && f.PropagateErrors {
				slog.Error("source: file read failed", "error", err)
				return err
			}
			if err != io.EOF {
				slog.Warn("source: file read error treated as end of stream", "error", err)
			}
			terminal = true
		}

		writeErr := producer.Write(func(rec *record.Binary) {
			rec.Fill(buf[:n], terminal)
		})
		if writeErr != nil {
			slog.Error("source: write failed", "error", writeErr)
			return writeErr
		}

		if terminal {
			return nil
		}
	}
}
