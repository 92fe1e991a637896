// Package topology maintains the zone-group model derived from Sonos
// ZoneGroupTopology state: the set of known Speakers and the ZoneGroups
// they belong to. It exposes both a pull snapshot API and a subscribe API
// (fan-out of immutable snapshots) so callers never share a mutable object
// graph with the store.
package topology

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/brew-lab/thaumic-cast-sub003/internal/sonos/soap"
)

// Speaker is a discovered Sonos device identity.
type Speaker struct {
	UUID     string
	IP       string
	ZoneName string
	Model    string
}

// ZoneGroup is one Sonos synchronization group: a coordinator and the
// members following it.
type ZoneGroup struct {
	ID              string
	CoordinatorUUID string
	CoordinatorIP   string
	Members         []string // speaker UUIDs
}

// Snapshot is an immutable view handed to subscribers and pull callers.
type Snapshot struct {
	Speakers map[string]Speaker // by UUID
	Groups   []ZoneGroup
	TakenAt  time.Time
}

// CoordinatorIP returns the coordinator IP for the group containing the given
// speaker UUID, or "" if the speaker is unknown.
func (s Snapshot) CoordinatorIP(speakerUUID string) string {
	for _, g := range s.Groups {
		for _, m := range g.Members {
			if m == speakerUUID {
				return g.CoordinatorIP
			}
		}
	}
	return ""
}

// GroupOf returns the ZoneGroup containing the given speaker IP, if any.
func (s Snapshot) GroupOf(speakerIP string) (ZoneGroup, bool) {
	uuid := ""
	for id, sp := range s.Speakers {
		if sp.IP == speakerIP {
			uuid = id
			break
		}
	}
	if uuid == "" {
		return ZoneGroup{}, false
	}
	for _, g := range s.Groups {
		for _, m := range g.Members {
			if m == uuid {
				return g, true
			}
		}
	}
	return ZoneGroup{}, false
}

type trackedSpeaker struct {
	speaker     Speaker
	missedScans int
}

// Store is the zone-group model's single writer; reads are snapshots.
type Store struct {
	soap *soap.Client

	mu       sync.RWMutex
	speakers map[string]*trackedSpeaker
	groups   []ZoneGroup
	lastGood Snapshot

	subMu       sync.Mutex
	subscribers map[int]chan Snapshot
	nextSubID   int
}

// NewStore creates a Topology Store using the given SOAP client for
// ZoneGroupTopology queries.
func NewStore(soapClient *soap.Client) *Store {
	return &Store{
		soap:        soapClient,
		speakers:    make(map[string]*trackedSpeaker),
		subscribers: make(map[int]chan Snapshot),
	}
}

// SpeakerSeen records a speaker observed by discovery. Prefers the most
// recent IP on conflict.
func (s *Store) SpeakerSeen(uuid, ip, zoneName, model string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.speakers[uuid]
	if !ok {
		t = &trackedSpeaker{}
		s.speakers[uuid] = t
	}
	t.speaker = Speaker{UUID: uuid, IP: ip, ZoneName: zoneName, Model: model}
	t.missedScans = 0
}

// Refresh fetches ZoneGroupTopology from any reachable coordinator IP and
// rebuilds the ZoneGroup set. It emits a new snapshot to subscribers only
// when the set actually differs from the previous one.
func (s *Store) Refresh(ctx context.Context, anyReachableIP string) error {
	state, err := s.soap.GetZoneGroupState(ctx, anyReachableIP)
	if err != nil {
		return fmt.Errorf("fetch zone group state: %w", err)
	}

	newGroups := make([]ZoneGroup, 0, len(state.Groups))
	seen := make(map[string]bool)
	for _, g := range state.Groups {
		zg := ZoneGroup{ID: g.ID, CoordinatorUUID: g.Coordinator}
		for _, m := range g.Members {
			if !m.IsVisible {
				continue
			}
			seen[m.UUID] = true
			zg.Members = append(zg.Members, m.UUID)
			if m.IsCoordinator {
				zg.CoordinatorIP = ipFromLocation(m.Location)
			}
			s.touchSpeakerFromMember(m)
		}
		newGroups = append(newGroups, zg)
	}

	s.mu.Lock()
	for uuid, t := range s.speakers {
		if !seen[uuid] {
			t.missedScans++
		}
	}
	for uuid, t := range s.speakers {
		if t.missedScans >= 2 {
			delete(s.speakers, uuid)
		}
	}
	changed := !sameGroups(s.groups, newGroups)
	s.groups = newGroups
	snap := s.snapshotLocked()
	s.lastGood = snap
	s.mu.Unlock()

	if changed {
		s.broadcast(snap)
	}
	return nil
}

func (s *Store) touchSpeakerFromMember(m soap.ZoneMember) {
	ip := ipFromLocation(m.Location)
	if ip == "" {
		return
	}
	t, ok := s.speakers[m.UUID]
	if !ok {
		t = &trackedSpeaker{}
		s.speakers[m.UUID] = t
	}
	t.speaker = Speaker{UUID: m.UUID, IP: ip, ZoneName: m.ZoneName}
	t.missedScans = 0
}

// Snapshot returns the current read-only view (pull API).
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	speakers := make(map[string]Speaker, len(s.speakers))
	for uuid, t := range s.speakers {
		speakers[uuid] = t.speaker
	}
	groups := make([]ZoneGroup, len(s.groups))
	copy(groups, s.groups)
	return Snapshot{Speakers: speakers, Groups: groups, TakenAt: time.Now()}
}

// Subscribe returns a channel of snapshots (subscribe API / fan-out). The
// channel is buffered by 1 and dropped updates are replaced by the latest on
// the next send; callers must not block the broadcaster indefinitely.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
		close(ch)
	}
	return ch, cancel
}

func (s *Store) broadcast(snap Snapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// drain stale value, keep subscriber current
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// AnyReachableIP returns an arbitrary known speaker IP suitable for issuing a
// ZoneGroupTopology query against, or "" if none are known.
func (s *Store) AnyReachableIP() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.speakers {
		if t.speaker.IP != "" {
			return t.speaker.IP
		}
	}
	return ""
}

func sameGroups(a, b []ZoneGroup) bool {
	if len(a) != len(b) {
		return false
	}
	index := make(map[string]ZoneGroup, len(a))
	for _, g := range a {
		index[g.ID] = g
	}
	for _, g := range b {
		prior, ok := index[g.ID]
		if !ok || prior.CoordinatorUUID != g.CoordinatorUUID || len(prior.Members) != len(g.Members) {
			return false
		}
		memberSet := make(map[string]bool, len(prior.Members))
		for _, m := range prior.Members {
			memberSet[m] = true
		}
		for _, m := range g.Members {
			if !memberSet[m] {
				return false
			}
		}
	}
	return true
}

func ipFromLocation(location string) string {
	// Location is a UPnP device description URL, http://<ip>:1400/...
	const prefix = "http://"
	if len(location) <= len(prefix) || location[:len(prefix)] != prefix {
		return ""
	}
	rest := location[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == ':' || rest[i] == '/' {
			return rest[:i]
		}
	}
	return rest
}
