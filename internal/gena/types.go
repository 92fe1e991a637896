// Package gena implements the UPnP GENA eventing protocol: SUBSCRIBE/RENEW/
// UNSUBSCRIBE requests and the NOTIFY callback server that receives state
// change events from Sonos devices. Parsed events are handed to an external
// router rather than applied to any local state.
package gena

import "time"

// Subscription tracks one active GENA subscription to a device service.
type Subscription struct {
	SID          string
	Token        string // opaque callback-path token, minted at subscribe time
	DeviceUUID   string
	DeviceIP     string
	ServiceType  string // UPnP service type URN
	ServicePath  string // event subscription path, e.g. /MediaRenderer/AVTransport/Event
	CallbackURL  string
	Timeout      time.Duration
	SubscribedAt time.Time
	RenewAt      time.Time
	LastSEQ      int
}

// IsExpiringSoon reports whether the subscription should be renewed now.
func (s *Subscription) IsExpiringSoon() bool {
	return time.Now().After(s.RenewAt)
}

// IsExpired reports whether the subscription has already lapsed.
func (s *Subscription) IsExpired() bool {
	return time.Now().After(s.SubscribedAt.Add(s.Timeout))
}

// NotifyEvent is one parsed NOTIFY request.
type NotifyEvent struct {
	SID         string
	SEQ         int
	ServiceType string
	DeviceIP    string
	RawBody     []byte
}

// ServiceEndpoint names a device service's event subscription path and the
// eventing URN Sonos expects in the NT header.
type ServiceEndpoint struct {
	EventPath string
	NT        string
}

var (
	AVTransportEndpoint = ServiceEndpoint{
		EventPath: "/MediaRenderer/AVTransport/Event",
		NT:        "urn:schemas-upnp-org:service:AVTransport:1",
	}
	RenderingControlEndpoint = ServiceEndpoint{
		EventPath: "/MediaRenderer/RenderingControl/Event",
		NT:        "urn:schemas-upnp-org:service:RenderingControl:1",
	}
	ZoneGroupTopologyEndpoint = ServiceEndpoint{
		EventPath: "/ZoneGroupTopology/Event",
		NT:        "urn:schemas-upnp-org:service:ZoneGroupTopology:1",
	}
)

// ManagerConfig tunes the subscription manager's behavior.
type ManagerConfig struct {
	CallbackHost      string // externally reachable host:port for CALLBACK URLs
	SubscriptionTTL   time.Duration
	RenewalBuffer     time.Duration
	BackoffBase       time.Duration
	BackoffCap        time.Duration
	// SubscribeLostAfter bounds how long SUBSCRIBE/RENEW may keep failing
	// and backing off before the subscription is marked permanently lost.
	SubscribeLostAfter time.Duration
}

// DefaultManagerConfig returns the default subscription timing.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		SubscriptionTTL:    time.Hour,
		RenewalBuffer:      60 * time.Second,
		BackoffBase:        30 * time.Second,
		BackoffCap:         600 * time.Second,
		SubscribeLostAfter: time.Minute,
	}
}
