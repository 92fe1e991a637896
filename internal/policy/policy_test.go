package policy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFor_QualityDefaults(t *testing.T) {
	p := For(ModeQuality)
	require.Equal(t, 10, p.RingBufferSeconds)
	require.False(t, p.CatchUpEnabled)
	require.Equal(t, BackpressurePauseProducer, p.Backpressure)
	require.Equal(t, 2000, p.QueueCapMs)
}

func TestFor_RealtimeDefaults(t *testing.T) {
	p := For(ModeRealtime)
	require.Equal(t, 3, p.RingBufferSeconds)
	require.True(t, p.CatchUpEnabled)
	require.Equal(t, 200, p.CatchUpTargetMs)
	require.Equal(t, 1000, p.CatchUpMaxMs)
	require.Equal(t, BackpressureDropOldest, p.Backpressure)
	require.Equal(t, 500, p.QueueCapMs)
}

func TestFor_UnknownModeFallsBackToQuality(t *testing.T) {
	require.Equal(t, For(ModeQuality), For(Mode("bogus")))
}

func TestRingBufferDuration(t *testing.T) {
	require.Equal(t, 3*time.Second, For(ModeRealtime).RingBufferDuration())
}

func TestLoadOverrides_EmptyPathIsNoop(t *testing.T) {
	require.NoError(t, LoadOverrides(""))
}

func TestLoadOverrides_MissingFileErrors(t *testing.T) {
	require.Error(t, LoadOverrides(filepath.Join(t.TempDir(), "absent.yaml")))
}

func TestLoadOverrides_AppliesPartialOverride(t *testing.T) {
	prior := defaults[ModeRealtime]
	t.Cleanup(func() { defaults[ModeRealtime] = prior })

	path := filepath.Join(t.TempDir(), "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte("realtime:\n  catchUpTargetMs: 300\n"), 0o644))

	require.NoError(t, LoadOverrides(path))

	p := For(ModeRealtime)
	require.Equal(t, 300, p.CatchUpTargetMs)
	// Untouched fields keep their defaults.
	require.Equal(t, prior.RingBufferSeconds, p.RingBufferSeconds)
	require.Equal(t, prior.QueueCapMs, p.QueueCapMs)
}
