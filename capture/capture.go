// Package capture implements the live microphone source stage SPEC_FULL.md
// §4.5 adds: an Audio producer driven by the system's default input device
// via github.com/gordonklaus/portaudio, so the pipeline can mux a live
// capture to CAF the same way it muxes a WAV file.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"

	"github.com/drgolem/go-audiopipe/channel"
	"github.com/drgolem/go-audiopipe/record"
)

// Recorder streams 16-bit signed little-endian PCM from the default input
// device until ctx is cancelled, then emits one final terminal record.
type Recorder struct {
	SampleRate      float64
	Channels        int
	FramesPerBuffer int
}

// Run initializes PortAudio, opens the default input stream, and copies
// captured frames into Audio records until ctx is cancelled or a PortAudio
// call fails.
func (r *Recorder) Run(ctx context.Context, producer *channel.Producer[*record.Audio]) error {
	if r.Channels <= 0 || r.SampleRate <= 0 || r.FramesPerBuffer <= 0 {
		return errors.New("capture: sample rate, channels and frames per buffer must be positive")
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("capture: portaudio init: %w", err)
	}
	defer portaudio.Terminate()

	in := make([]int16, r.FramesPerBuffer*r.Channels)
	stream, err := portaudio.OpenDefaultStream(r.Channels, 0, r.SampleRate, len(in), in)
	if err != nil {
		return fmt.Errorf("capture: open default stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("capture: start stream: %w", err)
	}
	defer stream.Stop()

	sampleType := record.SampleType{Kind: record.SignedInt, Bits: 16}
	payload := make([]byte, 0, len(in)*2)

	slog.Info("capture: streaming from default input device",
		"channels", r.Channels, "sample_rate", r.SampleRate)

	for {
		terminal := false
		select {
		case <-ctx.Done():
			terminal = true
		default:
		}

		if !terminal {
			if err := stream.Read(); err != nil {
				slog.Warn("capture: stream read error treated as end of stream", "error", err)
				terminal = true
			}
		}

		payload = payload[:0]
		if !terminal {
			for _, s := range in {
				payload = append(payload, byte(uint16(s)), byte(uint16(s)>>8))
			}
		}

		writeErr := producer.Write(func(rec *record.Audio) {
			rec.Fill(payload, r.Channels, r.SampleRate, record.LittleEndian, sampleType, terminal)
		})
		if writeErr != nil {
			slog.Error("capture: write failed", "error", writeErr)
			return writeErr
		}

		if terminal {
			return nil
		}
	}
}
