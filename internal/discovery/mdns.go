package discovery

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

// sonosMDNSService is the Bonjour/mDNS service type Sonos players advertise.
const sonosMDNSService = "_sonos._tcp"

// DiscoverMDNS browses _sonos._tcp for the given duration and probes each
// responder, returning the same RawDevice shape SSDP discovery produces so
// callers can merge both sources without caring which one found a speaker.
func DiscoverMDNS(ctx context.Context, browseFor time.Duration) ([]*RawDevice, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, err
	}

	entries := make(chan *zeroconf.ServiceEntry, 16)
	browseCtx, cancel := context.WithTimeout(ctx, browseFor)
	defer cancel()

	if err := resolver.Browse(browseCtx, sonosMDNSService, "local.", entries); err != nil {
		return nil, err
	}

	var devices []*RawDevice
	seen := make(map[string]struct{})
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return devices, nil
			}
			ip := firstIPv4(entry)
			if ip == "" {
				continue
			}
			if _, dup := seen[ip]; dup {
				continue
			}
			seen[ip] = struct{}{}

			probeCtx, probeCancel := context.WithTimeout(context.Background(), 10*time.Second)
			device, err := ProbeDevice(probeCtx, ip)
			probeCancel()
			if err != nil || device == nil {
				log.Printf("mdns probe failed for %s: %v", ip, err)
				continue
			}
			devices = append(devices, device)
		case <-browseCtx.Done():
			return devices, nil
		}
	}
}

func firstIPv4(entry *zeroconf.ServiceEntry) string {
	for _, addr := range entry.AddrIPv4 {
		s := addr.String()
		if s != "" && !strings.HasPrefix(s, "169.254.") {
			return s
		}
	}
	return ""
}
