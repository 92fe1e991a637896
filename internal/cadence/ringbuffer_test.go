package cadence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingBuffer_PushPop(t *testing.T) {
	r := NewRingBuffer()
	r.Push(Frame{Data: []byte("a"), DurationMs: 20})
	r.Push(Frame{Data: []byte("b"), DurationMs: 20})
	require.Equal(t, 40, r.DepthMs())

	f, ok := r.Pop()
	require.True(t, ok)
	require.Equal(t, "a", string(f.Data))
	require.Equal(t, 20, r.DepthMs())
}

func TestRingBuffer_PopEmpty(t *testing.T) {
	r := NewRingBuffer()
	_, ok := r.Pop()
	require.False(t, ok)
}

func TestRingBuffer_DropOldestUntil(t *testing.T) {
	r := NewRingBuffer()
	for i := 0; i < 5; i++ {
		r.Push(Frame{Data: []byte("x"), DurationMs: 100})
	}
	dropped := r.DropOldestUntil(200)
	require.Equal(t, 3, dropped)
	require.Equal(t, 200, r.DepthMs())
}

func TestRingBuffer_Reset(t *testing.T) {
	r := NewRingBuffer()
	r.Push(Frame{Data: []byte("x"), DurationMs: 100})
	r.Reset()
	require.Equal(t, 0, r.DepthMs())
	_, ok := r.Pop()
	require.False(t, ok)
}

func TestRingBuffer_DropStaleEpoch(t *testing.T) {
	r := NewRingBuffer()
	r.Push(Frame{Data: []byte("old1"), EpochID: 0, DurationMs: 20})
	r.Push(Frame{Data: []byte("old2"), EpochID: 0, DurationMs: 20})
	r.Push(Frame{Data: []byte("new"), EpochID: 1, DurationMs: 20})

	r.DropStaleEpoch(1)

	f, ok := r.Pop()
	require.True(t, ok)
	require.Equal(t, "new", string(f.Data))
	require.Equal(t, 0, r.DepthMs())
}
