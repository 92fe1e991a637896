// Package coordinator is the single externally called orchestrator: it
// drives the cadence streamer, playback sessions, sync groups, volume
// routing, and latency monitoring on behalf of one boundary connection per
// stream. Subcomponents are owned children; the boundary is handed an event
// sink interface rather than a concrete type, so calls flow one way and
// events flow back.
package coordinator

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/brew-lab/thaumic-cast-sub003/internal/apperrors"
	"github.com/brew-lab/thaumic-cast-sub003/internal/policy"
)

// EncoderConfig is the producer's negotiated encoding, carried in the
// HANDSHAKE message.
type EncoderConfig struct {
	Codec             string
	Bitrate           int
	SampleRate        int
	Channels          int
	BitsPerDepth      int
	LatencyMode       string
	StreamingBufferMs int
	FrameDurationMs   int
}

// Handshake is the first message a producer must send on the ingest
// WebSocket.
type Handshake struct {
	EncoderConfig EncoderConfig
	Title         string
}

// minFrameDurationMs and maxFrameDurationMs bound a HANDSHAKE's
// frameDurationMs.
const (
	minFrameDurationMs = 5
	maxFrameDurationMs = 150
)

var codecExtensions = map[string]string{
	"mp3":    "mp3",
	"aac":    "aac",
	"ogg":    "ogg",
	"vorbis": "ogg",
	"flac":   "flac",
	"pcm":    "wav",
	"wav":    "wav",
}

var codecContentTypes = map[string]string{
	"mp3":  "audio/mpeg",
	"aac":  "audio/aac",
	"ogg":  "audio/ogg",
	"flac": "audio/flac",
	"wav":  "audio/wav",
}

// extensionForCodec maps a negotiated codec to the stream URL extension
// Sonos will see (wav, mp3, aac, ogg, or flac).
func extensionForCodec(codec string) (string, bool) {
	ext, ok := codecExtensions[strings.ToLower(codec)]
	return ext, ok
}

// ContentTypeForExtension returns the HTTP Content-Type for a stream
// extension, used by the boundary's GET handler.
func ContentTypeForExtension(ext string) string {
	if ct, ok := codecContentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// validateHandshake rejects unsupported codecs and out-of-bounds frame
// durations, returning the resolved stream extension on success. A rejected
// HANDSHAKE creates no stream.
func validateHandshake(h Handshake) (string, error) {
	ext, ok := extensionForCodec(h.EncoderConfig.Codec)
	if !ok {
		return "", apperrors.NewValidationError(fmt.Sprintf("unsupported codec %q", h.EncoderConfig.Codec))
	}
	fd := h.EncoderConfig.FrameDurationMs
	if fd < minFrameDurationMs || fd > maxFrameDurationMs {
		return "", apperrors.NewValidationError(fmt.Sprintf("frameDurationMs %d out of range [%d,%d]", fd, minFrameDurationMs, maxFrameDurationMs))
	}
	return ext, nil
}

// resolvePolicy maps a HANDSHAKE's latencyMode string to its Policy profile,
// defaulting to quality for an unrecognized or empty mode.
func resolvePolicy(latencyMode string) policy.Policy {
	switch policy.Mode(latencyMode) {
	case policy.ModeRealtime:
		return policy.For(policy.ModeRealtime)
	default:
		return policy.For(policy.ModeQuality)
	}
}

// wavHeaderSize is the fixed byte length of the canonical 44-byte
// RIFF/WAVE header this package writes ahead of a PCM stream's first frame.
const wavHeaderSize = 44

// wavMaxChunkSize is the synthetic "infinite" size written into the RIFF
// and data chunk size fields: a live stream has no known total length, so
// both sizes are set to the largest value a 32-bit chunk size can hold
// rather than the true (unknowable) byte count. Sonos, like most players,
// reads PCM samples from the data chunk until the connection closes rather
// than trusting the declared size.
const wavMaxChunkSize = 0xFFFFFFFF

// wavHeader builds the synthetic-length RIFF/WAVE header a PCM stream is
// framed with. cfg's SampleRate/Channels/BitsPerDepth feed the fmt
// subchunk; anything unset falls back to CD-quality stereo so a malformed
// HANDSHAKE still produces a parseable header.
func wavHeader(cfg EncoderConfig) []byte {
	channels := cfg.Channels
	if channels <= 0 {
		channels = 2
	}
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	bitsPerSample := cfg.BitsPerDepth
	if bitsPerSample <= 0 {
		bitsPerSample = 16
	}
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	buf := make([]byte, wavHeaderSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], wavMaxChunkSize)
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // fmt subchunk size, PCM
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // PCM format tag
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bitsPerSample))
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], wavMaxChunkSize)
	return buf
}

// silenceFrame builds the payload the cadence streamer substitutes on ring
// underrun. For PCM it is true digital silence (all-zero samples, which a
// WAV container decodes as silence); for compressed codecs this is a
// reasonable approximation documented as such, since a codec-accurate
// silence frame would require embedding an encoder.
func silenceFrame(cfg EncoderConfig) []byte {
	bytesPerMs := float64(cfg.Bitrate) * 1000 / 8 / 1000
	size := int(bytesPerMs * float64(cfg.FrameDurationMs))
	if size <= 0 {
		size = 1
	}
	return make([]byte, size)
}
