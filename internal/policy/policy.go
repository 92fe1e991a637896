// Package policy holds the per-stream tuning profiles derived from a
// stream's latencyMode, plus optional operator overrides loaded from YAML.
package policy

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode is the client-selected latency/quality tradeoff for a stream.
type Mode string

const (
	ModeQuality  Mode = "quality"
	ModeRealtime Mode = "realtime"
)

// Policy is the resolved tuning profile for a stream.
type Policy struct {
	RingBufferSeconds int
	CatchUpEnabled    bool
	CatchUpTargetMs   int
	CatchUpMaxMs      int
	Backpressure      Backpressure
	QueueCapMs        int
	HighWaterRatio    float64
	LowWaterRatio     float64
}

// Backpressure names how the cadence streamer reacts when the ring buffer
// fills faster than a coordinator drains it.
type Backpressure string

const (
	BackpressurePauseProducer Backpressure = "pause_producer"
	BackpressureDropOldest    Backpressure = "drop_oldest"
)

// defaults mirrors the table: ring buffer duration, catch-up behavior,
// backpressure strategy, and queue cap per latencyMode.
var defaults = map[Mode]Policy{
	ModeQuality: {
		RingBufferSeconds: 10,
		CatchUpEnabled:    false,
		Backpressure:      BackpressurePauseProducer,
		QueueCapMs:        2000,
		HighWaterRatio:    1.0,
		LowWaterRatio:     0.67,
	},
	ModeRealtime: {
		RingBufferSeconds: 3,
		CatchUpEnabled:    true,
		CatchUpTargetMs:   200,
		CatchUpMaxMs:      1000,
		Backpressure:      BackpressureDropOldest,
		QueueCapMs:        500,
		HighWaterRatio:    1.0,
		LowWaterRatio:     0.67,
	},
}

// For returns the default Policy for a latency mode, falling back to
// quality for an unrecognized mode.
func For(mode Mode) Policy {
	if p, ok := defaults[mode]; ok {
		return p
	}
	return defaults[ModeQuality]
}

// RingBufferDuration returns the ring buffer size as a duration.
func (p Policy) RingBufferDuration() time.Duration {
	return time.Duration(p.RingBufferSeconds) * time.Second
}

// overrideFile is the YAML shape an operator can drop at
// POLICY_OVERRIDES_PATH to tune defaults without a rebuild.
type overrideFile struct {
	Quality  *overrideEntry `yaml:"quality"`
	Realtime *overrideEntry `yaml:"realtime"`
}

type overrideEntry struct {
	RingBufferSeconds *int     `yaml:"ringBufferSeconds"`
	CatchUpTargetMs   *int     `yaml:"catchUpTargetMs"`
	CatchUpMaxMs      *int     `yaml:"catchUpMaxMs"`
	QueueCapMs        *int     `yaml:"queueCapMs"`
	HighWaterRatio    *float64 `yaml:"highWaterRatio"`
	LowWaterRatio     *float64 `yaml:"lowWaterRatio"`
}

// LoadOverrides reads a YAML overrides file and mutates the package-level
// defaults in place. Intended to be called once at startup, before any
// stream is created.
func LoadOverrides(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read policy overrides: %w", err)
	}

	var f overrideFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse policy overrides: %w", err)
	}

	applyOverride(ModeQuality, f.Quality)
	applyOverride(ModeRealtime, f.Realtime)
	return nil
}

func applyOverride(mode Mode, entry *overrideEntry) {
	if entry == nil {
		return
	}
	p := defaults[mode]
	if entry.RingBufferSeconds != nil {
		p.RingBufferSeconds = *entry.RingBufferSeconds
	}
	if entry.CatchUpTargetMs != nil {
		p.CatchUpTargetMs = *entry.CatchUpTargetMs
	}
	if entry.CatchUpMaxMs != nil {
		p.CatchUpMaxMs = *entry.CatchUpMaxMs
	}
	if entry.QueueCapMs != nil {
		p.QueueCapMs = *entry.QueueCapMs
	}
	if entry.HighWaterRatio != nil {
		p.HighWaterRatio = *entry.HighWaterRatio
	}
	if entry.LowWaterRatio != nil {
		p.LowWaterRatio = *entry.LowWaterRatio
	}
	defaults[mode] = p
}
