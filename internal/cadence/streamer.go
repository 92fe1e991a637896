package cadence

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brew-lab/thaumic-cast-sub003/internal/policy"
)

// Hooks lets the cadence task signal the boundary layer without depending on
// it directly: backpressure hints go out over the producer's WebSocket,
// epoch changes are announced once a latency session exists.
type Hooks struct {
	PauseProducer  func()
	ResumeProducer func()
	EpochChanged   func(epochID uint64)
}

// Stats is a snapshot of cadence counters, exposed for diagnostics.
type Stats struct {
	EpochID           uint64
	DepthMs           int
	FramesEmitted     uint64
	SilenceEmitted    uint64
	BackpressureDrops uint64
}

// Streamer is the cadence engine for a single stream. Exactly one
// pace-clock goroutine runs per Streamer.
type Streamer struct {
	ring            *RingBuffer
	policy          policy.Policy
	frameDurationMs int
	silenceFrame    []byte
	hooks           Hooks

	epoch atomic.Uint64

	framesEmitted     atomic.Uint64
	silenceEmitted    atomic.Uint64
	backpressureDrops atomic.Uint64

	out chan Frame

	pausedForBackpressure atomic.Bool
	readerAttached        atomic.Bool

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// New creates a Streamer. silenceFrame is the pre-built payload emitted
// whenever the ring underruns; its size should approximate one frame of the
// negotiated codec so bitrate stays roughly constant across silence.
func New(p policy.Policy, frameDurationMs int, silenceFrame []byte, hooks Hooks) *Streamer {
	return &Streamer{
		ring:            NewRingBuffer(),
		policy:          p,
		frameDurationMs: frameDurationMs,
		silenceFrame:    silenceFrame,
		hooks:           hooks,
		out:             make(chan Frame, 1),
		stopCh:          make(chan struct{}),
		doneCh:          make(chan struct{}),
	}
}

// EpochID returns the current epoch.
func (s *Streamer) EpochID() uint64 { return s.epoch.Load() }

// Push enqueues a frame from the producer, tagging it with the current
// epoch. It applies backpressure: in quality mode it emits pause/resume
// hints via hysteresis; in realtime mode over-capacity frames are dropped
// from the tail immediately.
func (s *Streamer) Push(data []byte, durationMs int) {
	s.ring.Push(Frame{Data: data, EpochID: s.epoch.Load(), DurationMs: durationMs})
	s.applyBackpressure()
}

func (s *Streamer) applyBackpressure() {
	capMs := s.policy.RingBufferDuration().Milliseconds()
	depth := s.ring.DepthMs()

	switch s.policy.Backpressure {
	case policy.BackpressureDropOldest:
		if depth > int(capMs) {
			dropped := s.ring.DropOldestUntil(int(capMs))
			if dropped > 0 {
				s.backpressureDrops.Add(uint64(dropped))
			}
		}
	case policy.BackpressurePauseProducer:
		high := int(float64(capMs) * s.policy.HighWaterRatio)
		low := int(float64(capMs) * s.policy.LowWaterRatio)
		if !s.pausedForBackpressure.Load() && depth >= high {
			s.pausedForBackpressure.Store(true)
			if s.hooks.PauseProducer != nil {
				s.hooks.PauseProducer()
			}
		} else if s.pausedForBackpressure.Load() && depth <= low {
			s.pausedForBackpressure.Store(false)
			if s.hooks.ResumeProducer != nil {
				s.hooks.ResumeProducer()
			}
		}
	}
}

// ResetEpoch bumps the epoch, drops all buffered frames, and notifies hooks.
// Called on a fresh HANDSHAKE's resume, a detected producer discontinuity,
// or explicit resume after pause.
func (s *Streamer) ResetEpoch() uint64 {
	next := s.epoch.Add(1)
	s.ring.Reset()
	if s.hooks.EpochChanged != nil {
		s.hooks.EpochChanged(next)
	}
	return next
}

// Start launches the pace-clock goroutine. It paces emission from an
// absolute anchor time rather than repeated sleep(dt), so cumulative
// rounding error in the sleep call never accumulates into clock drift.
func (s *Streamer) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.run(ctx)
	})
}

// Stop halts the pace clock and waits for it to exit.
func (s *Streamer) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
}

func (s *Streamer) run(ctx context.Context) {
	defer close(s.doneCh)

	frameDur := time.Duration(s.frameDurationMs) * time.Millisecond
	anchor := time.Now()
	var tickCount int64

	for {
		tickCount++
		target := anchor.Add(time.Duration(tickCount) * frameDur)
		wait := time.Until(target)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}

		s.tick()
	}
}

func (s *Streamer) tick() {
	currentEpoch := s.epoch.Load()
	s.ring.DropStaleEpoch(currentEpoch)

	if s.policy.CatchUpEnabled && s.ring.DepthMs() > s.policy.CatchUpMaxMs {
		dropped := s.ring.DropOldestUntil(s.policy.CatchUpTargetMs)
		if dropped > 0 {
			s.backpressureDrops.Add(uint64(dropped))
		}
	}

	frame, ok := s.ring.Pop()
	if !ok || frame.EpochID != currentEpoch {
		frame = Frame{Data: s.silenceFrame, EpochID: currentEpoch, DurationMs: s.frameDurationMs, Silence: true}
		s.silenceEmitted.Add(1)
	} else {
		s.framesEmitted.Add(1)
	}

	s.emit(frame)
}

// emit hands the frame to the single active HTTP reader. Non-blocking: if no
// reader is attached, or the reader is behind, the previous buffered frame is
// replaced so the channel never backs up the pace clock.
func (s *Streamer) emit(f Frame) {
	select {
	case s.out <- f:
	default:
		select {
		case <-s.out:
		default:
		}
		select {
		case s.out <- f:
		default:
		}
	}
}

// Frames returns the channel the single HTTP reader pulls paced frames from.
func (s *Streamer) Frames() <-chan Frame { return s.out }

// Stats returns a snapshot of cadence counters.
func (s *Streamer) Stats() Stats {
	return Stats{
		EpochID:           s.epoch.Load(),
		DepthMs:           s.ring.DepthMs(),
		FramesEmitted:     s.framesEmitted.Load(),
		SilenceEmitted:    s.silenceEmitted.Load(),
		BackpressureDrops: s.backpressureDrops.Load(),
	}
}
