package coordinator

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brew-lab/thaumic-cast-sub003/internal/policy"
)

func TestValidateHandshake_ResolvesExtension(t *testing.T) {
	h := Handshake{EncoderConfig: EncoderConfig{Codec: "mp3", FrameDurationMs: 26}}
	ext, err := validateHandshake(h)
	require.NoError(t, err)
	require.Equal(t, "mp3", ext)

	h.EncoderConfig.Codec = "pcm"
	ext, err = validateHandshake(h)
	require.NoError(t, err)
	require.Equal(t, "wav", ext)
}

func TestValidateHandshake_RejectsUnsupportedCodec(t *testing.T) {
	h := Handshake{EncoderConfig: EncoderConfig{Codec: "opus", FrameDurationMs: 20}}
	_, err := validateHandshake(h)
	require.Error(t, err)
}

func TestValidateHandshake_RejectsFrameDurationOutOfBounds(t *testing.T) {
	h := Handshake{EncoderConfig: EncoderConfig{Codec: "mp3", FrameDurationMs: 4}}
	_, err := validateHandshake(h)
	require.Error(t, err)

	h.EncoderConfig.FrameDurationMs = 151
	_, err = validateHandshake(h)
	require.Error(t, err)

	h.EncoderConfig.FrameDurationMs = 5
	_, err = validateHandshake(h)
	require.NoError(t, err)
}

func TestResolvePolicy_DefaultsToQuality(t *testing.T) {
	require.Equal(t, policy.For(policy.ModeQuality), resolvePolicy(""))
	require.Equal(t, policy.For(policy.ModeQuality), resolvePolicy("bogus"))
	require.Equal(t, policy.For(policy.ModeRealtime), resolvePolicy("realtime"))
}

func TestWAVHeader_Layout(t *testing.T) {
	header := wavHeader(EncoderConfig{SampleRate: 48000, Channels: 2, BitsPerDepth: 16})

	require.Len(t, header, 44)
	require.Equal(t, "RIFF", string(header[0:4]))
	require.Equal(t, "WAVE", string(header[8:12]))
	require.Equal(t, "fmt ", string(header[12:16]))
	require.Equal(t, "data", string(header[36:40]))

	// Both chunk sizes carry the synthetic "infinite" length.
	require.Equal(t, uint32(0xFFFFFFFF), binary.LittleEndian.Uint32(header[4:8]))
	require.Equal(t, uint32(0xFFFFFFFF), binary.LittleEndian.Uint32(header[40:44]))

	require.Equal(t, uint16(2), binary.LittleEndian.Uint16(header[22:24]))
	require.Equal(t, uint32(48000), binary.LittleEndian.Uint32(header[24:28]))
	// byteRate = sampleRate * channels * bitsPerSample/8
	require.Equal(t, uint32(48000*2*2), binary.LittleEndian.Uint32(header[28:32]))
	require.Equal(t, uint16(16), binary.LittleEndian.Uint16(header[34:36]))
}

func TestWAVHeader_DefaultsForUnsetFields(t *testing.T) {
	header := wavHeader(EncoderConfig{})
	require.Equal(t, uint16(2), binary.LittleEndian.Uint16(header[22:24]))
	require.Equal(t, uint32(44100), binary.LittleEndian.Uint32(header[24:28]))
	require.Equal(t, uint16(16), binary.LittleEndian.Uint16(header[34:36]))
}

func TestSilenceFrame_SizedByBitrateAndDuration(t *testing.T) {
	// 192 kbit/s = 24000 bytes/s = 24 bytes/ms; a 26 ms frame is 624 bytes.
	frame := silenceFrame(EncoderConfig{Bitrate: 192, FrameDurationMs: 26})
	require.Len(t, frame, 624)

	// A degenerate config still yields a non-empty frame.
	require.NotEmpty(t, silenceFrame(EncoderConfig{}))
}
