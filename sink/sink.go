// Package sink implements the two Binary-consuming stages spec.md §6
// describes: a file writer and a standard-output writer. Both drain a
// channel.Consumer[*record.Binary] until they observe a terminal record.
package sink

import (
	"io"
	"log/slog"
	"os"

	"github.com/drgolem/go-audiopipe/channel"
	"github.com/drgolem/go-audiopipe/record"
)

// Writer drains a Binary consumer endpoint, writing each record's full
// payload to Out, and stops after observing the terminal record. An I/O
// failure while writing is fatal, per spec.md §7.
type Writer struct {
	Out io.Writer
}

// NewFileWriter returns a Writer over an already-opened file handle.
func NewFileWriter(f *os.File) *Writer {
	return &Writer{Out: f}
}

// NewStdoutWriter returns a Writer over os.Stdout.
func NewStdoutWriter() *Writer {
	return &Writer{Out: os.Stdout}
}

// Run drives consumer until it observes a terminal record, writing every
// record's payload to Out along the way.
func (w *Writer) Run(consumer *channel.Consumer[*record.Binary]) error {
	for {
		var terminal bool
		var writeErr error

		readErr := consumer.Read(func(rec *record.Binary) {
			terminal = rec.Terminal
			if len(rec.Data) == 0 {
				return
			}
			if _, err := w.Out.Write(rec.Data); err != nil {
				writeErr = err
			}
		})

		if readErr != nil {
			slog.Error("sink: read failed", "error", readErr)
			return readErr
		}
		if writeErr != nil {
			slog.Error("sink: write failed", "error", writeErr)
			return writeErr
		}

		if terminal {
			return nil
		}
	}
}
