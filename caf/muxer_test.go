package caf_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drgolem/go-audiopipe/caf"
	"github.com/drgolem/go-audiopipe/channel"
	"github.com/drgolem/go-audiopipe/record"
)

func newChannels(t *testing.T) (*channel.Producer[*record.Audio], *channel.Consumer[*record.Audio], *channel.Producer[*record.Binary], *channel.Consumer[*record.Binary]) {
	t.Helper()
	audioProd, audioCons, err := channel.New(4, func() *record.Audio { return &record.Audio{} })
	require.NoError(t, err)
	binProd, binCons, err := channel.New(8, func() *record.Binary { return &record.Binary{} })
	require.NoError(t, err)
	return audioProd, audioCons, binProd, binCons
}

func drainBinary(t *testing.T, consumer *channel.Consumer[*record.Binary]) [][]byte {
	t.Helper()
	var got [][]byte
	for {
		var payload []byte
		var terminal bool
		err := consumer.Read(func(rec *record.Binary) {
			payload = append([]byte(nil), rec.Data...)
			terminal = rec.Terminal
		})
		require.NoError(t, err)
		got = append(got, payload)
		if terminal {
			return got
		}
	}
}

// TestMuxerFirstRecordFraming is spec.md's scenario 5: a stereo, 44100Hz,
// little-endian signed-16 stream must produce the fixed 64-byte CAF
// header/desc/data framing ahead of the payload.
func TestMuxerFirstRecordFraming(t *testing.T) {
	audioProd, audioCons, binProd, binCons := newChannels(t)

	sampleType := record.SampleType{Kind: record.SignedInt, Bits: 16}
	payload := []byte{0x01, 0x02, 0x03, 0x04}

	go func() {
		defer audioProd.Close()
		require.NoError(t, audioProd.Write(func(rec *record.Audio) {
			rec.Fill(payload, 2, 44100.0, record.LittleEndian, sampleType, true)
		}))
	}()

	go func() {
		defer binProd.Close()
		defer audioCons.Close()
		require.NoError(t, (caf.Muxer{}).Run(audioCons, binProd))
	}()

	records := drainBinary(t, binCons)
	require.Len(t, records, 4) // file header, desc, data header, payload

	fileHeader := records[0]
	require.Len(t, fileHeader, 8)
	assert.Equal(t, "caff", string(fileHeader[0:4]))
	assert.Equal(t, uint16(1), binary.BigEndian.Uint16(fileHeader[4:6]))
	assert.Equal(t, uint16(0), binary.BigEndian.Uint16(fileHeader[6:8]))

	desc := records[1]
	require.Len(t, desc, 44)
	assert.Equal(t, "desc", string(desc[0:4]))
	assert.Equal(t, uint64(32), binary.BigEndian.Uint64(desc[4:12]))
	assert.Equal(t, 44100.0, math.Float64frombits(binary.BigEndian.Uint64(desc[12:20])))
	assert.Equal(t, "lpcm", string(desc[20:24]))
	assert.Equal(t, uint32(0x00000002), binary.BigEndian.Uint32(desc[24:28])) // little-endian, not float
	assert.Equal(t, uint32(4), binary.BigEndian.Uint32(desc[28:32]))          // bytes per packet = 16*2/8
	assert.Equal(t, uint32(1), binary.BigEndian.Uint32(desc[32:36]))
	assert.Equal(t, uint32(2), binary.BigEndian.Uint32(desc[36:40]))
	assert.Equal(t, uint32(16), binary.BigEndian.Uint32(desc[40:44]))

	dataHeader := records[2]
	require.Len(t, dataHeader, 12)
	assert.Equal(t, "data", string(dataHeader[0:4]))
	for _, b := range dataHeader[4:12] {
		assert.Equal(t, byte(0xFF), b)
	}

	assert.Equal(t, payload, records[3])
}

// drainBinaryIgnoreErr drains a Binary consumer in the background without
// asserting, since a muxer failure test expects the stream to end in
// channel.ErrPeerGone rather than a clean terminal record.
func drainBinaryIgnoreErr(consumer *channel.Consumer[*record.Binary]) {
	for {
		err := consumer.Read(func(rec *record.Binary) {})
		if err != nil {
			return
		}
	}
}

func TestMuxerRejectsUndeclaredFormat(t *testing.T) {
	audioProd, audioCons, binProd, binCons := newChannels(t)

	go func() {
		defer audioProd.Close()
		require.NoError(t, audioProd.Write(func(rec *record.Audio) {
			rec.Fill([]byte{0x00}, 1, 8000, record.BigEndian, record.SampleType{}, true)
		}))
	}()

	errCh := make(chan error, 1)
	go func() {
		defer binProd.Close()
		defer audioCons.Close()
		errCh <- (caf.Muxer{}).Run(audioCons, binProd)
	}()

	// Drain whatever partial output exists so the muxer goroutine isn't
	// stuck trying to write past a full channel.
	go drainBinaryIgnoreErr(binCons)

	err := <-errCh
	assert.ErrorIs(t, err, caf.ErrFormatUndeclared)
}

func TestMuxerRejectsFormatChangeMidStream(t *testing.T) {
	audioProd, audioCons, binProd, binCons := newChannels(t)

	sampleType := record.SampleType{Kind: record.SignedInt, Bits: 16}

	go func() {
		defer audioProd.Close()
		require.NoError(t, audioProd.Write(func(rec *record.Audio) {
			rec.Fill([]byte{0x01, 0x02}, 2, 44100.0, record.LittleEndian, sampleType, false)
		}))
		require.NoError(t, audioProd.Write(func(rec *record.Audio) {
			rec.Fill([]byte{0x01, 0x02}, 1, 44100.0, record.LittleEndian, sampleType, true)
		}))
	}()

	errCh := make(chan error, 1)
	go func() {
		defer binProd.Close()
		defer audioCons.Close()
		errCh <- (caf.Muxer{}).Run(audioCons, binProd)
	}()
	go drainBinaryIgnoreErr(binCons)

	err := <-errCh
	assert.ErrorIs(t, err, caf.ErrFormatChanged)
}
