package streamregistry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegistry_CreateAndLookup(t *testing.T) {
	r := New(10, time.Millisecond)
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, r.Create("s1", "value", cancel))

	e, err := r.Lookup("s1")
	require.NoError(t, err)
	require.Equal(t, "value", e.Value)
}

func TestRegistry_LookupNotFound(t *testing.T) {
	r := New(10, time.Millisecond)
	_, err := r.Lookup("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_AdmissionCap(t *testing.T) {
	r := New(2, time.Millisecond)
	_, cancel1 := context.WithCancel(context.Background())
	_, cancel2 := context.WithCancel(context.Background())
	defer cancel1()
	defer cancel2()

	require.NoError(t, r.Create("s1", nil, cancel1))
	require.NoError(t, r.Create("s2", nil, cancel2))

	err := r.Create("s3", nil, func() {})
	require.ErrorIs(t, err, ErrTooManyStreams)
}

func TestRegistry_DropWaitsGracePeriodThenCancels(t *testing.T) {
	r := New(10, 30*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Create("s1", nil, cancel))

	r.Drop("s1")

	select {
	case <-ctx.Done():
		t.Fatal("context cancelled before grace period elapsed")
	case <-time.After(10 * time.Millisecond):
	}

	select {
	case <-ctx.Done():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("context not cancelled after grace period")
	}

	_, err := r.Lookup("s1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_DropImmediatelyCancelsNow(t *testing.T) {
	r := New(10, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Create("s1", nil, cancel))

	r.DropImmediately("s1")

	select {
	case <-ctx.Done():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("context not cancelled immediately")
	}
}
