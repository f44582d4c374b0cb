// Package caf implements the Core Audio Format muxer spec.md §6 describes:
// it consumes a channel.Consumer[*record.Audio] and drives a
// channel.Producer[*record.Binary], emitting a fixed CAF header/desc/data
// framing on the first input record and forwarding payload thereafter.
package caf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/drgolem/go-audiopipe/channel"
	"github.com/drgolem/go-audiopipe/record"
)

// ErrFormatUndeclared is returned when the first Audio record received by
// the muxer has SampleType.Kind == record.Unknown: the producer never
// declared a format, and CAF's desc chunk has nothing to write.
var ErrFormatUndeclared = errors.New("caf: sample type not declared on first record")

// ErrFormatChanged is returned if a record after the first declares a
// different (channels, sample_rate, endian, sample_type) tuple than the
// first record did. spec.md §3 requires a producer hold the format fixed
// for the life of the stream; this is the muxer's defensive check of that
// invariant, not a spec.md §7 failure class of its own.
var ErrFormatChanged = errors.New("caf: audio format changed mid-stream")

// Muxer reads an Audio stream and writes CAF-framed Binary records.
type Muxer struct{}

// Run consumes from audioIn and produces CAF-framed records on binOut
// until it forwards a terminal record, or fails.
func (Muxer) Run(audioIn *channel.Consumer[*record.Audio], binOut *channel.Producer[*record.Binary]) error {
	framed := false
	var declared record.Audio

	for {
		var payload []byte
		var terminal bool
		var format record.Audio
		var readErr error

		readErr = audioIn.Read(func(rec *record.Audio) {
			payload = append([]byte(nil), rec.Data...)
			terminal = rec.Terminal
			format = *rec
		})
		if readErr != nil {
			slog.Error("caf: read failed", "error", readErr)
			return readErr
		}

		if !framed {
			if format.Type.Kind == record.Unknown {
				slog.Error("caf: first record has no declared sample type")
				return ErrFormatUndeclared
			}
			if err := emitFraming(binOut, &format); err != nil {
				return err
			}
			declared = format
			framed = true
		} else if !format.SameFormat(&declared) {
			slog.Error("caf: format changed mid-stream",
				"declared", declared.Type, "got", format.Type)
			return ErrFormatChanged
		}

		if err := binOut.Write(func(rec *record.Binary) {
			rec.Fill(payload, terminal)
		}); err != nil {
			slog.Error("caf: write failed", "error", err)
			return err
		}

		if terminal {
			return nil
		}
	}
}

func emitFraming(binOut *channel.Producer[*record.Binary], format *record.Audio) error {
	header := fileHeader()
	if err := binOut.Write(func(rec *record.Binary) { rec.Fill(header, false) }); err != nil {
		return err
	}

	desc, err := descChunk(format)
	if err != nil {
		return err
	}
	if err := binOut.Write(func(rec *record.Binary) { rec.Fill(desc, false) }); err != nil {
		return err
	}

	data := dataChunkHeader()
	return binOut.Write(func(rec *record.Binary) { rec.Fill(data, false) })
}

// fileHeader lays out the 8-byte CAF file header: ASCII "caff", u16be
// version = 1, u16be flags = 0.
func fileHeader() []byte {
	buf := make([]byte, 8)
	copy(buf[0:4], "caff")
	binary.BigEndian.PutUint16(buf[4:6], 1)
	binary.BigEndian.PutUint16(buf[6:8], 0)
	return buf
}

// descChunk lays out the 44-byte Audio Description chunk.
func descChunk(format *record.Audio) ([]byte, error) {
	bits := format.Type.Size()
	if bits <= 0 || format.Channels <= 0 {
		return nil, fmt.Errorf("caf: invalid format for desc chunk: channels=%d bits=%d", format.Channels, bits)
	}

	var formatFlags uint32
	if format.Type.Kind == record.Float {
		formatFlags |= 1 << 0
	}
	if format.Endian == record.LittleEndian {
		formatFlags |= 1 << 1
	}

	bytesPerPacket := uint32(bits*format.Channels) / 8

	buf := make([]byte, 44)
	copy(buf[0:4], "desc")
	binary.BigEndian.PutUint64(buf[4:12], uint64(32))
	binary.BigEndian.PutUint64(buf[12:20], math.Float64bits(format.SampleRate))
	copy(buf[20:24], "lpcm")
	binary.BigEndian.PutUint32(buf[24:28], formatFlags)
	binary.BigEndian.PutUint32(buf[28:32], bytesPerPacket)
	binary.BigEndian.PutUint32(buf[32:36], 1) // frames per packet
	binary.BigEndian.PutUint32(buf[36:40], uint32(format.Channels))
	binary.BigEndian.PutUint32(buf[40:44], uint32(bits))
	return buf, nil
}

// dataChunkHeader lays out the 12-byte Data chunk header: ASCII "data"
// followed by 8 bytes of 0xFF, CAF's "unknown chunk size" sentinel.
func dataChunkHeader() []byte {
	buf := make([]byte, 12)
	copy(buf[0:4], "data")
	for i := 4; i < 12; i++ {
		buf[i] = 0xFF
	}
	return buf
}
