package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/brew-lab/thaumic-cast-sub003/internal/cadence"
	"github.com/brew-lab/thaumic-cast-sub003/internal/latency"
	"github.com/brew-lab/thaumic-cast-sub003/internal/policy"
	"github.com/brew-lab/thaumic-cast-sub003/internal/syncgroup"
)

// State is a Stream's lifecycle state.
type State string

const (
	StateNegotiating State = "negotiating"
	StateBuffering   State = "buffering"
	StateReady       State = "ready"
	StateServing     State = "serving"
	StateDraining    State = "draining"
	StateEnded       State = "ended"
)

// producerStallGrace is how often the stall watchdog checks for a silent
// producer; producerTimeoutAfter is how long the cadence streamer emits
// silence before a stalled producer ends the stream.
const (
	producerStallGrace   = 2 * time.Second
	producerTimeoutAfter = 15 * time.Second
)

// prebufferFraction is the portion of the ring buffer's nominal capacity
// the cadence streamer must hold before StartPlayback proceeds.
const prebufferFraction = 0.5

// Sink is how a Stream reports back to its one owning client connection.
// internal/boundary implements this per WebSocket connection.
type Sink interface {
	latency.Sink
	StreamReady(bufferSizeMs int)
	EmitStreamEvent(kind string, payload map[string]any)
	EmitSonosEvent(kind string, payload map[string]any)
	EmitMetadataUpdate(title string)
	EmitError(message string)
	PauseProducer()
	ResumeProducer()
	Close()
}

// Stream is one HANDSHAKE-to-teardown lifecycle: exactly one cadence task,
// zero or more playback sessions, optional latency monitoring.
type Stream struct {
	ID        string
	Ext       string
	Title     string
	Handshake Handshake
	Policy    policy.Policy

	Streamer *cadence.Streamer
	Sink     Sink

	OriginMono time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu                sync.Mutex
	state             State
	plan              syncgroup.Plan
	hasPlan           bool
	videoSyncEnabled  bool
	lastFrameAt       time.Time
	paused            bool
	stallWatchdogOnce sync.Once
}

func newStream(id string, h Handshake, ext string, p policy.Policy, streamer *cadence.Streamer, sink Sink) *Stream {
	ctx, cancel := context.WithCancel(context.Background())
	return &Stream{
		ID:          id,
		Ext:         ext,
		Title:       h.Title,
		Handshake:   h,
		Policy:      p,
		Streamer:    streamer,
		Sink:        sink,
		OriginMono:  time.Now(),
		ctx:         ctx,
		cancel:      cancel,
		state:       StateNegotiating,
		lastFrameAt: time.Now(),
	}
}

// State returns the current lifecycle state.
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Stream) setState(next State) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
}

func (s *Stream) touchProducer() {
	s.mu.Lock()
	s.lastFrameAt = time.Now()
	s.mu.Unlock()
}

func (s *Stream) idleSince() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastFrameAt)
}

// setPaused marks the producer side as intentionally paused: the stall
// watchdog stops counting idle time while paused, and the idle clock resets
// the moment it's unpaused so a long pause never reads as a stall.
func (s *Stream) setPaused(paused bool) {
	s.mu.Lock()
	s.paused = paused
	if !paused {
		s.lastFrameAt = time.Now()
	}
	s.mu.Unlock()
}

func (s *Stream) isPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Stream) setPlan(plan syncgroup.Plan) {
	s.mu.Lock()
	s.plan = plan
	s.hasPlan = true
	s.mu.Unlock()
}

func (s *Stream) getPlan() (syncgroup.Plan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan, s.hasPlan
}

func (s *Stream) setVideoSync(enabled bool) {
	s.mu.Lock()
	s.videoSyncEnabled = enabled
	s.mu.Unlock()
}

func (s *Stream) videoSync() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videoSyncEnabled
}

// prebufferThresholdMs is the ring depth StartPlayback waits for before
// issuing SOAP joins.
func (s *Stream) prebufferThresholdMs() int {
	return int(float64(s.Policy.RingBufferDuration().Milliseconds()) * prebufferFraction)
}

// watchStall launches (once) the goroutine that ends the stream after
// producerTimeoutAfter of producer silence.
func (s *Stream) watchStall(onTimeout func()) {
	s.stallWatchdogOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(producerStallGrace)
			defer ticker.Stop()
			for {
				select {
				case <-s.ctx.Done():
					return
				case <-ticker.C:
					if s.isPaused() {
						continue
					}
					if s.idleSince() >= producerTimeoutAfter {
						onTimeout()
						return
					}
				}
			}
		}()
	})
}
