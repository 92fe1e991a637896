package gena

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSubscriptionLostListener struct {
	calls []string
}

func (f *fakeSubscriptionLostListener) SubscriptionLost(deviceIP, serviceType string) {
	f.calls = append(f.calls, deviceIP+"|"+serviceType)
}

func TestManager_RecordFailureNotifiesListenerOnceAfterThreshold(t *testing.T) {
	listener := &fakeSubscriptionLostListener{}
	cfg := DefaultManagerConfig()
	cfg.SubscribeLostAfter = 10 * time.Millisecond
	m := NewManager(cfg, NewClient(time.Second), listener)

	k := key("10.0.0.5", AVTransportEndpoint.NT)

	m.recordFailure(k, "10.0.0.5", AVTransportEndpoint.NT)
	require.Empty(t, listener.calls, "threshold has not elapsed yet")

	time.Sleep(15 * time.Millisecond)
	m.recordFailure(k, "10.0.0.5", AVTransportEndpoint.NT)
	require.Equal(t, []string{"10.0.0.5|" + AVTransportEndpoint.NT}, listener.calls)

	m.recordFailure(k, "10.0.0.5", AVTransportEndpoint.NT)
	require.Len(t, listener.calls, 1, "listener notified only once per device/service pair")
}

func TestManager_RecordFailureWithinThresholdKeepsRetrying(t *testing.T) {
	listener := &fakeSubscriptionLostListener{}
	cfg := DefaultManagerConfig()
	cfg.SubscribeLostAfter = time.Minute
	m := NewManager(cfg, NewClient(time.Second), listener)

	k := key("10.0.0.6", RenderingControlEndpoint.NT)
	for i := 0; i < 5; i++ {
		m.recordFailure(k, "10.0.0.6", RenderingControlEndpoint.NT)
	}

	require.Empty(t, listener.calls)

	m.mu.Lock()
	b := m.backoff[k]
	m.mu.Unlock()
	require.False(t, b.lost)
	require.True(t, b.nextAttempt.After(time.Now()))
}

func TestManager_EnsureSubscribedRejectsOnceSubscriptionLost(t *testing.T) {
	listener := &fakeSubscriptionLostListener{}
	cfg := DefaultManagerConfig()
	cfg.SubscribeLostAfter = time.Millisecond
	m := NewManager(cfg, NewClient(time.Second), listener)

	k := key("10.0.0.7", AVTransportEndpoint.NT)
	m.recordFailure(k, "10.0.0.7", AVTransportEndpoint.NT)
	time.Sleep(2 * time.Millisecond)
	m.recordFailure(k, "10.0.0.7", AVTransportEndpoint.NT)
	require.Len(t, listener.calls, 1)

	err := m.EnsureSubscribed(context.Background(), "uuid:device7", "10.0.0.7", AVTransportEndpoint)
	require.Error(t, err)
}
