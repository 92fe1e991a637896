package discovery

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/brew-lab/thaumic-cast-sub003/internal/topology"
)

// Config tunes discovery cadence and timeouts.
type Config struct {
	// CronSpec schedules rescans, default every 30s. Accepts any robfig/cron
	// expression, e.g. "@every 30s" or a standard 5-field spec.
	CronSpec string
	// SSDPPasses is the number of M-SEARCH sends per rescan.
	SSDPPasses int
	// SSDPPassInterval is the delay between M-SEARCH sends.
	SSDPPassInterval time.Duration
	// SSDPTimeout bounds how long a rescan waits for SSDP responses.
	SSDPTimeout time.Duration
	// MDNSBrowseFor bounds how long a rescan browses _sonos._tcp.
	MDNSBrowseFor time.Duration
	// KnownIPs are static fallback addresses probed every rescan regardless
	// of whether SSDP or mDNS found them, covering networks that block
	// multicast.
	KnownIPs []string
}

// DefaultConfig returns the default discovery cadence.
func DefaultConfig() Config {
	return Config{
		CronSpec:         "@every 30s",
		SSDPPasses:       2,
		SSDPPassInterval: 500 * time.Millisecond,
		SSDPTimeout:      3 * time.Second,
		MDNSBrowseFor:    2 * time.Second,
	}
}

// Discoverer periodically runs SSDP and mDNS sweeps and feeds every
// speaker it finds into a topology.Store, then
// asks the store to refresh its ZoneGroup view from whatever speaker
// responds first.
type Discoverer struct {
	cfg   Config
	store *topology.Store

	mu      sync.Mutex
	cronJob *cron.Cron
}

// NewDiscoverer builds a Discoverer that reports into store.
func NewDiscoverer(cfg Config, store *topology.Store) *Discoverer {
	return &Discoverer{cfg: cfg, store: store}
}

// Start launches the periodic rescan loop and performs one rescan
// immediately before returning, so the store isn't empty on first use.
func (d *Discoverer) Start(ctx context.Context) error {
	d.RescanOnce(ctx)

	c := cron.New()
	if _, err := c.AddFunc(d.cfg.CronSpec, func() {
		d.RescanOnce(ctx)
	}); err != nil {
		return err
	}
	c.Start()

	d.mu.Lock()
	d.cronJob = c
	d.mu.Unlock()
	return nil
}

// Stop halts the rescan schedule. Already-running rescans are allowed to
// finish.
func (d *Discoverer) Stop() {
	d.mu.Lock()
	c := d.cronJob
	d.mu.Unlock()
	if c != nil {
		c.Stop()
	}
}

// RescanOnce runs one SSDP+mDNS sweep synchronously and updates the
// topology store. Exported so callers (and tests) can trigger an
// out-of-band rescan, e.g. after a GENA subscription failure suggests a
// speaker dropped off the network.
func (d *Discoverer) RescanOnce(ctx context.Context) {
	var wg sync.WaitGroup
	var ssdpDevices, mdnsDevices []*RawDevice

	wg.Add(2)
	go func() {
		defer wg.Done()
		devices, err := DiscoverDevices(ctx, d.cfg.SSDPPasses, d.cfg.SSDPPassInterval, d.cfg.SSDPTimeout, d.cfg.KnownIPs)
		if err != nil {
			log.Printf("discovery: ssdp sweep error: %v", err)
			return
		}
		ssdpDevices = devices
	}()
	go func() {
		defer wg.Done()
		devices, err := DiscoverMDNS(ctx, d.cfg.MDNSBrowseFor)
		if err != nil {
			log.Printf("discovery: mdns sweep error: %v", err)
			return
		}
		mdnsDevices = devices
	}()
	wg.Wait()

	byUDN := make(map[string]*RawDevice)
	for _, dev := range ssdpDevices {
		byUDN[dev.UDN] = dev
	}
	for _, dev := range mdnsDevices {
		// On a UUID conflict keep the most recently observed record.
		if prior, ok := byUDN[dev.UDN]; ok && prior.DiscoveredAt.After(dev.DiscoveredAt) {
			continue
		}
		byUDN[dev.UDN] = dev
	}

	for _, dev := range byUDN {
		d.store.SpeakerSeen(dev.UDN, dev.IP, dev.RoomName, dev.Model)
	}

	anyIP := d.store.AnyReachableIP()
	if anyIP == "" {
		return
	}
	refreshCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := d.store.Refresh(refreshCtx, anyIP); err != nil {
		log.Printf("discovery: topology refresh failed: %v", err)
	}
}
