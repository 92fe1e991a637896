// Package cadence buffers frames pushed by a WebSocket producer into a
// time-addressed ring, paces them out on a fixed clock regardless of
// producer jitter, injects silence on starvation, and exposes a pull-based
// reader for the HTTP stream surface.
package cadence

import "sync"

// Frame is one unit of paced output: opaque encoded (or PCM) audio bytes
// tagged with the epoch active when it was enqueued and its nominal
// duration.
type Frame struct {
	Data       []byte
	EpochID    uint64
	DurationMs int
	Silence    bool
}

// RingBuffer is a single-producer/single-consumer time-addressed queue of
// Frames. Push appends at the head; Pop removes from the tail. Depth is
// tracked in milliseconds, not frame count, since frame duration can vary
// slightly across codecs (PCM frames are fixed-duration, compressed frames
// are declared via frameDurationMs at handshake and assumed constant for the
// life of the stream).
type RingBuffer struct {
	mu      sync.Mutex
	frames  []Frame
	depthMs int
}

// NewRingBuffer creates an empty ring buffer.
func NewRingBuffer() *RingBuffer {
	return &RingBuffer{}
}

// Push appends a frame at the head.
func (r *RingBuffer) Push(f Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
	r.depthMs += f.DurationMs
}

// Pop removes and returns the tail frame, if any.
func (r *RingBuffer) Pop() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return Frame{}, false
	}
	f := r.frames[0]
	r.frames = r.frames[1:]
	r.depthMs -= f.DurationMs
	if r.depthMs < 0 {
		r.depthMs = 0
	}
	return f, true
}

// DropOldestUntil discards frames from the tail until the remaining depth is
// at or below targetMs. Returns the number of frames dropped.
func (r *RingBuffer) DropOldestUntil(targetMs int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	dropped := 0
	for r.depthMs > targetMs && len(r.frames) > 0 {
		f := r.frames[0]
		r.frames = r.frames[1:]
		r.depthMs -= f.DurationMs
		dropped++
	}
	if r.depthMs < 0 {
		r.depthMs = 0
	}
	return dropped
}

// DepthMs returns the current buffered duration in milliseconds.
func (r *RingBuffer) DepthMs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.depthMs
}

// Reset drops every buffered frame. Called on epoch change: frames tagged
// with the old epoch are never valid again.
func (r *RingBuffer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = nil
	r.depthMs = 0
}

// DropStaleEpoch discards tail frames tagged with an epoch older than
// currentEpoch. Frames can only be behind, never ahead, since the producer
// side stamps the epoch active at push time.
func (r *RingBuffer) DropStaleEpoch(currentEpoch uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := 0
	for i < len(r.frames) && r.frames[i].EpochID < currentEpoch {
		r.depthMs -= r.frames[i].DurationMs
		i++
	}
	if i > 0 {
		r.frames = r.frames[i:]
	}
	if r.depthMs < 0 {
		r.depthMs = 0
	}
}
