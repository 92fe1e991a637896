package latency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestSession() *session {
	return &session{
		streamID:  "stream1",
		speakerIP: "10.0.0.9",
		epochFn:   func() uint64 { return 0 },
		lastState: StateNoData,
	}
}

func TestMonitor_RecordFailureFiresOnUnreachableAfterRetryBudget(t *testing.T) {
	m := &Monitor{sessions: make(map[string]*session)}
	sess := newTestSession()

	fired := 0
	sess.onUnreachable = func() { fired++ }

	m.recordFailure(sess)
	require.Equal(t, 0, fired, "retry budget has not elapsed yet")
	require.False(t, sess.firstFailureAt.IsZero())

	// Backdate the failure streak's start past the retry budget instead of
	// sleeping 12s in a test.
	sess.mu.Lock()
	sess.firstFailureAt = time.Now().Add(-(reachabilityRetryBudget + time.Second))
	sess.mu.Unlock()

	m.recordFailure(sess)
	require.Equal(t, 1, fired)

	// Further failures don't re-fire once already reported.
	m.recordFailure(sess)
	require.Equal(t, 1, fired)
}

func TestMonitor_ClearFailureResetsStreak(t *testing.T) {
	m := &Monitor{sessions: make(map[string]*session)}
	sess := newTestSession()

	m.recordFailure(sess)
	require.False(t, sess.firstFailureAt.IsZero())

	m.clearFailure(sess)
	require.True(t, sess.firstFailureAt.IsZero())

	// A fresh failure streak starts timing over, so a near-immediate success
	// in between two failures never crosses the retry budget.
	fired := 0
	sess.onUnreachable = func() { fired++ }
	m.recordFailure(sess)
	require.Equal(t, 0, fired)
	require.False(t, sess.firstFailureAt.IsZero())
}
