// Package config loads the Streaming Coordinator's runtime configuration
// from environment variables, validating at Load() time.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every environment-tunable knob the coordinator needs.
type Config struct {
	Host string
	// PreferredStreamPort and PreferredCallbackPort are the ports the
	// network context tries first before falling back to any free port.
	PreferredStreamPort   int
	PreferredCallbackPort int

	MaxConcurrentStreams int
	TeardownGracePeriod  time.Duration

	SonosTimeoutMs int

	SSDPDiscoveryTimeoutMs int
	SSDPDiscoveryPasses    int
	SSDPPassIntervalMs     int
	DiscoveryCronSpec      string
	MDNSBrowseMs           int
	StaticDeviceIPs        []string

	GENASubscriptionTTLSec int
	GENARenewalBufferSec   int

	LatencyIntervalMs     int
	LatencyStaleAfterMs   int
	AssumedJitterBufferMs int

	// PolicyOverridesPath optionally points at a YAML file overriding the
	// built-in quality/realtime policy profiles (internal/policy).
	PolicyOverridesPath string

	// PairingSecret, when non-empty, requires the ingest WebSocket upgrade
	// to carry a short-lived HS256 pairing token minted by the desktop
	// shell. Empty disables pairing auth entirely.
	PairingSecret string
}

// Load reads configuration from environment variables with defaults.
func Load() (Config, error) {
	cfg := Config{
		Host:                   envString("HOST", "0.0.0.0"),
		PreferredStreamPort:    envInt("STREAM_PORT", 5005),
		PreferredCallbackPort:  envInt("GENA_CALLBACK_PORT", 5006),
		MaxConcurrentStreams:   envInt("MAX_CONCURRENT_STREAMS", 10),
		TeardownGracePeriod:    time.Duration(envInt("TEARDOWN_GRACE_MS", 3000)) * time.Millisecond,
		SonosTimeoutMs:         envInt("SONOS_TIMEOUT_MS", 4000),
		SSDPDiscoveryTimeoutMs: envInt("SSDP_DISCOVERY_TIMEOUT_MS", 3000),
		SSDPDiscoveryPasses:    envInt("SSDP_DISCOVERY_PASSES", 2),
		SSDPPassIntervalMs:     envInt("SSDP_PASS_INTERVAL_MS", 500),
		DiscoveryCronSpec:      envString("DISCOVERY_CRON_SPEC", "@every 30s"),
		MDNSBrowseMs:           envInt("MDNS_BROWSE_MS", 2000),
		StaticDeviceIPs:        envCSV("STATIC_DEVICE_IPS"),
		GENASubscriptionTTLSec: envInt("GENA_SUBSCRIPTION_TTL_SEC", 300),
		GENARenewalBufferSec:   envInt("GENA_RENEWAL_BUFFER_SEC", 60),
		LatencyIntervalMs:      envInt("LATENCY_INTERVAL_MS", 500),
		LatencyStaleAfterMs:    envInt("LATENCY_STALE_AFTER_MS", 3000),
		AssumedJitterBufferMs:  envInt("ASSUMED_JITTER_BUFFER_MS", 150),
		PolicyOverridesPath:    envString("POLICY_OVERRIDES_PATH", ""),
		PairingSecret:          envString("PAIRING_SECRET", ""),
	}

	if cfg.MaxConcurrentStreams <= 0 {
		return Config{}, fmt.Errorf("MAX_CONCURRENT_STREAMS must be positive")
	}
	if cfg.SonosTimeoutMs <= 0 {
		return Config{}, fmt.Errorf("SONOS_TIMEOUT_MS must be positive")
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func envCSV(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return []string{}
	}
	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}
