// Package wavsource implements the WAV file source stage SPEC_FULL.md §4.4
// adds: a concrete, uncompressed Audio producer that feeds the CAF muxer
// (caf.Muxer) with real PCM data, using github.com/go-audio/wav and
// github.com/go-audio/riff to parse the RIFF/WAV container and hand back
// its data chunk as a plain io.Reader.
package wavsource

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-audio/wav"

	"github.com/drgolem/go-audiopipe/channel"
	"github.com/drgolem/go-audiopipe/record"
)

// Reader reads a WAV file and emits its PCM payload as Audio records,
// byte for byte, without re-decoding samples: the file's data chunk is
// already little-endian PCM, the layout the CAF data chunk wants. The
// first record declares the format (channels, sample rate,
// little-endian, signed PCM at the file's bit depth); subsequent records
// repeat it unchanged, satisfying the Audio record invariant (spec.md
// §3).
type Reader struct {
	File *os.File

	// ChunkSize bounds how many raw PCM bytes are forwarded per record.
	ChunkSize int
}

// Run drives producer until it has emitted exactly one terminal record.
func (r *Reader) Run(producer *channel.Producer[*record.Audio]) error {
	if r.ChunkSize <= 0 {
		return errors.New("wavsource: chunk size must be positive")
	}

	dec := wav.NewDecoder(r.File)
	if !dec.IsValidFile() {
		return errors.New("wavsource: not a valid WAV file")
	}
	dec.ReadInfo()
	if dec.Err() != nil {
		return fmt.Errorf("wavsource: reading WAV header: %w", dec.Err())
	}
	if err := dec.FwdToPCM(); err != nil {
		return fmt.Errorf("wavsource: seeking to PCM data: %w", err)
	}

	channels := int(dec.NumChans)
	sampleRate := float64(dec.SampleRate)
	bitDepth := int(dec.BitDepth)
	sampleType := record.SampleType{Kind: record.SignedInt, Bits: bitDepth}

	slog.Info("wavsource: opened WAV file",
		"channels", channels, "sample_rate", sampleRate, "bit_depth", bitDepth)

	buf := make([]byte, r.ChunkSize)
	for {
		n, err := dec.PCMChunk.Read(buf)
		terminal := false
		if err != nil {
			if err != io.EOF {
				slog.Warn("wavsource: PCM read error treated as end of stream", "error", err)
			}
			terminal = true
		}

		writeErr := producer.Write(func(rec *record.Audio) {
			rec.Fill(buf[:n], channels, sampleRate, record.LittleEndian, sampleType, terminal)
		})
		if writeErr != nil {
			slog.Error("wavsource: write failed", "error", writeErr)
			return writeErr
		}

		if terminal {
			return nil
		}
	}
}
