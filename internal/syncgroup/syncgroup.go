// Package syncgroup selects a Sonos coordinator for a multi-speaker start,
// joins slaves to it via x-rincon:UUID, and restores prior group membership
// on teardown. Actions are issued in parallel across speakers; per-speaker
// ordering is left to the SOAP client's per-IP serialization.
package syncgroup

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/brew-lab/thaumic-cast-sub003/internal/sonos"
	"github.com/brew-lab/thaumic-cast-sub003/internal/sonos/soap"
	"github.com/brew-lab/thaumic-cast-sub003/internal/topology"
)

// RestoreTimeout bounds how long teardown waits per speaker to restore its
// prior group membership.
const RestoreTimeout = 5 * time.Second

// SpeakerResult is one speaker's outcome from a start attempt.
type SpeakerResult struct {
	SpeakerIP string
	Success   bool
	Error     error
}

// Plan is the resolved assignment for a multi-speaker start: who
// coordinates, and every slave's prior group (for restoration on teardown).
type Plan struct {
	CoordinatorIP   string
	CoordinatorUUID string
	Slaves          []SlaveAssignment
	Independent     bool // true when falling back to one stream copy per speaker
}

// SlaveAssignment is one non-coordinator speaker joining the group.
type SlaveAssignment struct {
	SpeakerIP               string
	PriorGroupCoordinatorIP string
}

// TopologyView is the slice of the topology store this package reads:
// a point-in-time snapshot of speakers and zone groups.
type TopologyView interface {
	Snapshot() topology.Snapshot
}

// Manager drives coordinator selection, synchronized joins, and teardown.
type Manager struct {
	soap     *soap.Client
	topology TopologyView
}

// New creates a Sync Group Manager.
func New(soapClient *soap.Client, topologyStore TopologyView) *Manager {
	return &Manager{soap: soapClient, topology: topologyStore}
}

// ResolvePlan implements coordinator selection: prefer a requested speaker
// already coordinating a Sonos group that has other members (a standalone
// speaker does not count); else the first requested speaker by stable UUID
// sort. Falls back to independent playback if UUID lookup fails
// for any requested speaker.
func (m *Manager) ResolvePlan(requestedIPs []string, syncSpeakers bool) Plan {
	if !syncSpeakers || len(requestedIPs) < 2 {
		return Plan{Independent: true}
	}

	snap := m.topology.Snapshot()
	type candidate struct {
		ip   string
		uuid string
	}
	var candidates []candidate
	for _, ip := range requestedIPs {
		uuid := uuidForIP(snap, ip)
		if uuid == "" {
			return Plan{Independent: true}
		}
		candidates = append(candidates, candidate{ip: ip, uuid: uuid})
	}

	coordinatorIdx := -1
	for i, c := range candidates {
		if group, ok := snap.GroupOf(c.ip); ok && group.CoordinatorUUID == c.uuid && len(group.Members) > 1 {
			coordinatorIdx = i
			break
		}
	}
	if coordinatorIdx == -1 {
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].uuid < candidates[j].uuid })
		coordinatorIdx = 0
	}

	coordinator := candidates[coordinatorIdx]
	var slaves []SlaveAssignment
	for i, c := range candidates {
		if i == coordinatorIdx {
			continue
		}
		priorCoordIP := ""
		if group, ok := snap.GroupOf(c.ip); ok {
			priorCoordIP = group.CoordinatorIP
		}
		slaves = append(slaves, SlaveAssignment{SpeakerIP: c.ip, PriorGroupCoordinatorIP: priorCoordIP})
	}

	return Plan{CoordinatorIP: coordinator.ip, CoordinatorUUID: coordinator.uuid, Slaves: slaves}
}

func uuidForIP(snap topology.Snapshot, ip string) string {
	for uuid, sp := range snap.Speakers {
		if sp.IP == ip {
			return uuid
		}
	}
	return ""
}

// Start issues the synchronized join: slaves are stopped and pointed at
// x-rincon:<coordinatorUUID> in parallel with the coordinator being pointed
// at the stream URL and told to Play. All speakers are issued against
// concurrently; per-speaker SOAP ordering is still serialized by the SOAP
// client's per-IP mailbox.
func (m *Manager) Start(ctx context.Context, plan Plan, streamID, streamURL, title, ext string) []SpeakerResult {
	results := make([]SpeakerResult, 1+len(plan.Slaves))
	var wg sync.WaitGroup
	wg.Add(1 + len(plan.Slaves))

	go func() {
		defer wg.Done()
		metadata := sonos.BuildStreamMetadata(streamID, title, streamURL, ext)
		err := m.soap.SetAVTransportURI(ctx, plan.CoordinatorIP, streamURL, metadata)
		if err == nil {
			err = m.soap.Play(ctx, plan.CoordinatorIP)
		}
		results[0] = SpeakerResult{SpeakerIP: plan.CoordinatorIP, Success: err == nil, Error: err}
	}()

	for i, slave := range plan.Slaves {
		i, slave := i, slave
		go func() {
			defer wg.Done()
			_ = m.soap.Stop(ctx, slave.SpeakerIP)
			rincon := sonos.RinconURI(plan.CoordinatorUUID)
			err := m.soap.SetAVTransportURI(ctx, slave.SpeakerIP, rincon, "")
			results[1+i] = SpeakerResult{SpeakerIP: slave.SpeakerIP, Success: err == nil, Error: err}
		}()
	}

	wg.Wait()
	return results
}

// StartIndependent gives every speaker its own coordinator session of a
// single-speaker group, each fetching the stream separately. Used for the
// independent-playback fallback path.
func (m *Manager) StartIndependent(ctx context.Context, speakerIPs []string, streamID, streamURL, title, ext string) []SpeakerResult {
	results := make([]SpeakerResult, len(speakerIPs))
	var wg sync.WaitGroup
	wg.Add(len(speakerIPs))

	metadata := sonos.BuildStreamMetadata(streamID, title, streamURL, ext)
	for i, ip := range speakerIPs {
		i, ip := i, ip
		go func() {
			defer wg.Done()
			_ = m.soap.BecomeCoordinatorOfStandaloneGroup(ctx, ip)
			err := m.soap.SetAVTransportURI(ctx, ip, streamURL, metadata)
			if err == nil {
				err = m.soap.Play(ctx, ip)
			}
			results[i] = SpeakerResult{SpeakerIP: ip, Success: err == nil, Error: err}
		}()
	}

	wg.Wait()
	return results
}

// TeardownSlave stops a slave and restores its prior group membership,
// best-effort with a per-speaker timeout.
func (m *Manager) TeardownSlave(ctx context.Context, slave SlaveAssignment) error {
	stopCtx, cancel := context.WithTimeout(ctx, RestoreTimeout)
	defer cancel()

	if err := m.soap.Stop(stopCtx, slave.SpeakerIP); err != nil {
		return fmt.Errorf("stop slave %s: %w", slave.SpeakerIP, err)
	}
	if slave.PriorGroupCoordinatorIP == "" || slave.PriorGroupCoordinatorIP == slave.SpeakerIP {
		return m.soap.BecomeCoordinatorOfStandaloneGroup(stopCtx, slave.SpeakerIP)
	}

	snap := m.topology.Snapshot()
	coordUUID := ""
	for uuid, sp := range snap.Speakers {
		if sp.IP == slave.PriorGroupCoordinatorIP {
			coordUUID = uuid
			break
		}
	}
	if coordUUID == "" {
		return m.soap.BecomeCoordinatorOfStandaloneGroup(stopCtx, slave.SpeakerIP)
	}
	return m.soap.SetAVTransportURI(stopCtx, slave.SpeakerIP, sonos.RinconURI(coordUUID), "")
}

// TeardownCoordinatorCascade stops every remaining slave when the
// coordinator session ends, rather than promoting one of them.
func (m *Manager) TeardownCoordinatorCascade(ctx context.Context, slaves []SlaveAssignment) []error {
	var mu sync.Mutex
	var errs []error
	var wg sync.WaitGroup
	wg.Add(len(slaves))
	for _, slave := range slaves {
		slave := slave
		go func() {
			defer wg.Done()
			if err := m.TeardownSlave(ctx, slave); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errs
}
