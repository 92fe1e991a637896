package cadence

import (
	"fmt"
	"io"
	"time"
)

// IdleWriteTimeout is how long WriteBody waits for a frame before giving up
// and dropping the connection.
const IdleWriteTimeout = 30 * time.Second

// WriteOptions configures ICY metadata interleaving for one HTTP body
// stream.
type WriteOptions struct {
	ICYMetaInt int // bytes between metadata blocks; 0 disables ICY
	Metadata   func() string
}

// WriteBody pulls paced frames from the streamer and writes them to w until
// the context is done, the connection errors, or the idle timeout elapses.
// When opts.ICYMetaInt > 0, a metadata block is interleaved every
// ICYMetaInt bytes of audio per the Shoutcast/Icecast convention.
func (s *Streamer) WriteBody(done <-chan struct{}, w io.Writer, opts WriteOptions) error {
	bytesSinceMeta := 0

	for {
		select {
		case <-done:
			return nil
		default:
		}

		frame, ok := s.ReadFrame(IdleWriteTimeout)
		if !ok {
			return fmt.Errorf("cadence: idle timeout waiting for frame")
		}

		data := frame.Data
		if opts.ICYMetaInt <= 0 {
			if _, err := w.Write(data); err != nil {
				return err
			}
			continue
		}

		for len(data) > 0 {
			remaining := opts.ICYMetaInt - bytesSinceMeta
			chunk := data
			if len(chunk) > remaining {
				chunk = chunk[:remaining]
			}
			if _, err := w.Write(chunk); err != nil {
				return err
			}
			bytesSinceMeta += len(chunk)
			data = data[len(chunk):]

			if bytesSinceMeta >= opts.ICYMetaInt {
				if err := writeICYMetaBlock(w, opts.Metadata); err != nil {
					return err
				}
				bytesSinceMeta = 0
			}
		}
	}
}

// writeICYMetaBlock writes one ICY metadata block: a single length byte
// (in 16-byte units) followed by a StreamTitle= entry padded to that
// length, per the Shoutcast in-band metadata convention.
func writeICYMetaBlock(w io.Writer, metadata func() string) error {
	title := ""
	if metadata != nil {
		title = metadata()
	}

	var payload string
	if title != "" {
		payload = fmt.Sprintf("StreamTitle='%s';", title)
	}

	padded := len(payload)
	if rem := padded % 16; rem != 0 {
		padded += 16 - rem
	}
	lengthByte := byte(padded / 16)

	buf := make([]byte, 1+padded)
	buf[0] = lengthByte
	copy(buf[1:], payload)

	_, err := w.Write(buf)
	return err
}
