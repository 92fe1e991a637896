package cadence

import (
	"errors"
	"time"
)

// ErrReaderAlreadyAttached is returned by AttachReader when a stream already
// has an active HTTP reader. Spec requires exactly one HTTP reader per
// stream; slaves never issue their own GET, so a second concurrent request
// is always a bug or an attack and gets rejected with 409.
var ErrReaderAlreadyAttached = errors.New("cadence: stream already has an active reader")

// AttachReader claims the single-reader slot for the stream, returning a
// release function the caller must defer. Call sites map
// ErrReaderAlreadyAttached to an HTTP 409.
func (s *Streamer) AttachReader() (func(), error) {
	if !s.readerAttached.CompareAndSwap(false, true) {
		return nil, ErrReaderAlreadyAttached
	}
	return func() { s.readerAttached.Store(false) }, nil
}

// ReadFrame blocks until the next paced frame is available or idleTimeout
// elapses, returning ok=false on timeout. A non-positive idleTimeout does not
// wait. Stop closes doneCh but not out, so a stopped streamer shows up here
// only as a timeout.
func (s *Streamer) ReadFrame(idleTimeout time.Duration) (Frame, bool) {
	timer := time.NewTimer(idleTimeout)
	defer timer.Stop()
	select {
	case f, ok := <-s.out:
		return f, ok
	case <-timer.C:
		return Frame{}, false
	}
}
