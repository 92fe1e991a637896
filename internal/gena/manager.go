package gena

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

type deviceBackoff struct {
	failures       int
	nextAttempt    time.Time
	firstFailureAt time.Time
	lost           bool
}

// SubscriptionLostListener is notified when a device/service pair's
// SUBSCRIBE/RENEW backoff has retried past its terminal threshold. The
// subscription is no longer attempted; the listener should treat the
// speaker as SubscriptionLost until rediscovered. internal/eventrouter.Router
// implements this.
type SubscriptionLostListener interface {
	SubscriptionLost(deviceIP, serviceType string)
}

// Manager owns the full set of active subscriptions for a set of (device,
// service) pairs and keeps them renewed. Subscribe failures are retried with
// exponential backoff per device rather than hammering an unreachable
// speaker every renewal tick.
type Manager struct {
	cfg      ManagerConfig
	client   *Client
	listener SubscriptionLostListener

	mu              sync.Mutex
	subscriptions   map[string]*Subscription  // by SID
	byToken         map[string]*Subscription  // by opaque callback token
	byDeviceService map[string]*Subscription  // by deviceIP|serviceType
	backoff         map[string]*deviceBackoff // by deviceIP|serviceType

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewManager creates a subscription manager. cfg.CallbackHost must be reachable
// from the Sonos devices on the LAN (not 0.0.0.0 or localhost). listener may
// be nil in tests that don't care about the terminal-failure path.
func NewManager(cfg ManagerConfig, client *Client, listener SubscriptionLostListener) *Manager {
	return &Manager{
		cfg:             cfg,
		client:          client,
		listener:        listener,
		subscriptions:   make(map[string]*Subscription),
		byToken:         make(map[string]*Subscription),
		byDeviceService: make(map[string]*Subscription),
		backoff:         make(map[string]*deviceBackoff),
		stopCh:          make(chan struct{}),
	}
}

func key(deviceIP, serviceType string) string { return deviceIP + "|" + serviceType }

// EnsureSubscribed subscribes a device/service pair if not already
// subscribed and not in backoff. Safe to call repeatedly, e.g. once per
// discovery rescan.
func (m *Manager) EnsureSubscribed(ctx context.Context, deviceUUID, deviceIP string, endpoint ServiceEndpoint) error {
	k := key(deviceIP, endpoint.NT)

	m.mu.Lock()
	if _, ok := m.byDeviceService[k]; ok {
		m.mu.Unlock()
		return nil
	}
	if b, ok := m.backoff[k]; ok {
		if b.lost {
			m.mu.Unlock()
			return fmt.Errorf("gena: subscription to %s %s permanently lost", deviceIP, endpoint.NT)
		}
		if time.Now().Before(b.nextAttempt) {
			m.mu.Unlock()
			return nil
		}
	}
	m.mu.Unlock()

	// The callback path carries an opaque per-subscription token rather than
	// anything the device could guess; a NOTIFY whose token resolves to no
	// live subscription is answered 412.
	token := uuid.NewString()
	callbackURL := fmt.Sprintf("http://%s/gena/%s", m.cfg.CallbackHost, token)
	sid, granted, err := m.client.Subscribe(ctx, deviceIP, endpoint, callbackURL, m.cfg.SubscriptionTTL)
	if err != nil {
		m.recordFailure(k, deviceIP, endpoint.NT)
		return err
	}

	sub := &Subscription{
		SID:          sid,
		Token:        token,
		DeviceUUID:   deviceUUID,
		DeviceIP:     deviceIP,
		ServiceType:  endpoint.NT,
		ServicePath:  endpoint.EventPath,
		CallbackURL:  callbackURL,
		Timeout:      granted,
		SubscribedAt: time.Now(),
		RenewAt:      time.Now().Add(granted - m.cfg.RenewalBuffer),
	}

	m.mu.Lock()
	m.subscriptions[sid] = sub
	m.byToken[token] = sub
	m.byDeviceService[k] = sub
	delete(m.backoff, k)
	m.mu.Unlock()
	return nil
}

// recordFailure applies exponential backoff to a failed SUBSCRIBE/RENEW and,
// once the failure streak has lasted past cfg.SubscribeLostAfter, marks the
// device/service pair permanently lost and notifies the listener exactly
// once.
func (m *Manager) recordFailure(k, deviceIP, serviceType string) {
	m.mu.Lock()
	b, ok := m.backoff[k]
	if !ok {
		b = &deviceBackoff{firstFailureAt: time.Now()}
		m.backoff[k] = b
	}
	b.failures++
	delay := time.Duration(float64(m.cfg.BackoffBase) * math.Pow(2, float64(b.failures-1)))
	if delay > m.cfg.BackoffCap {
		delay = m.cfg.BackoffCap
	}
	b.nextAttempt = time.Now().Add(delay)

	wentLost := false
	if !b.lost && time.Since(b.firstFailureAt) >= m.cfg.SubscribeLostAfter {
		b.lost = true
		wentLost = true
	}
	m.mu.Unlock()

	if wentLost && m.listener != nil {
		m.listener.SubscriptionLost(deviceIP, serviceType)
	}
}

// BySID looks up the subscription for a received NOTIFY's SID header.
func (m *Manager) BySID(sid string) (*Subscription, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subscriptions[sid]
	return s, ok
}

// ByToken resolves the opaque callback-path token a NOTIFY arrived on.
func (m *Manager) ByToken(token string) (*Subscription, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byToken[token]
	return s, ok
}

// StartRenewalLoop runs a background ticker that renews subscriptions
// nearing expiry and resubscribes any that the device rejected.
func (m *Manager) StartRenewalLoop(ctx context.Context, interval time.Duration) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.renewExpiring(ctx)
			}
		}
	}()
}

// Stop halts the renewal loop and unsubscribes every active subscription.
func (m *Manager) Stop(ctx context.Context) {
	close(m.stopCh)
	m.wg.Wait()

	m.mu.Lock()
	subs := make([]*Subscription, 0, len(m.subscriptions))
	for _, s := range m.subscriptions {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	for _, s := range subs {
		endpoint := ServiceEndpoint{EventPath: s.ServicePath, NT: s.ServiceType}
		if err := m.client.Unsubscribe(ctx, s.DeviceIP, endpoint, s.SID); err != nil {
			log.Printf("gena: unsubscribe %s %s failed: %v", s.DeviceIP, s.ServiceType, err)
		}
	}
}

func (m *Manager) renewExpiring(ctx context.Context) {
	m.mu.Lock()
	due := make([]*Subscription, 0)
	for _, s := range m.subscriptions {
		if s.IsExpiringSoon() {
			due = append(due, s)
		}
	}
	m.mu.Unlock()

	for _, s := range due {
		endpoint := ServiceEndpoint{EventPath: s.ServicePath, NT: s.ServiceType}
		granted, err := m.client.Renew(ctx, s.DeviceIP, endpoint, s.SID, m.cfg.SubscriptionTTL)
		if err != nil {
			log.Printf("gena: renew %s %s failed: %v", s.DeviceIP, s.ServiceType, err)
			m.dropAndRetry(ctx, s)
			continue
		}
		m.mu.Lock()
		s.Timeout = granted
		s.SubscribedAt = time.Now()
		s.RenewAt = time.Now().Add(granted - m.cfg.RenewalBuffer)
		m.mu.Unlock()
	}
}

// dropAndRetry removes a failed subscription and immediately attempts to
// resubscribe, so the next NOTIFY after recovery is treated as the first
// event of a fresh subscription (sequence gating resets on the SID change).
func (m *Manager) dropAndRetry(ctx context.Context, s *Subscription) {
	k := key(s.DeviceIP, s.ServiceType)
	m.mu.Lock()
	delete(m.subscriptions, s.SID)
	delete(m.byToken, s.Token)
	delete(m.byDeviceService, k)
	m.mu.Unlock()

	endpoint := ServiceEndpoint{EventPath: s.ServicePath, NT: s.ServiceType}
	if err := m.EnsureSubscribed(ctx, s.DeviceUUID, s.DeviceIP, endpoint); err != nil {
		log.Printf("gena: resubscribe %s %s failed: %v", s.DeviceIP, s.ServiceType, err)
	}
}
