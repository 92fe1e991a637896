package syncgroup

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brew-lab/thaumic-cast-sub003/internal/topology"
)

type fakeTopology struct {
	snap topology.Snapshot
}

func (f *fakeTopology) Snapshot() topology.Snapshot { return f.snap }

func twoSpeakerSnapshot() topology.Snapshot {
	return topology.Snapshot{
		Speakers: map[string]topology.Speaker{
			"RINCON_A": {UUID: "RINCON_A", IP: "192.168.1.10"},
			"RINCON_B": {UUID: "RINCON_B", IP: "192.168.1.11"},
		},
		Groups: []topology.ZoneGroup{
			{ID: "g1", CoordinatorUUID: "RINCON_A", CoordinatorIP: "192.168.1.10", Members: []string{"RINCON_A"}},
			{ID: "g2", CoordinatorUUID: "RINCON_B", CoordinatorIP: "192.168.1.11", Members: []string{"RINCON_B"}},
		},
	}
}

func TestResolvePlan_SingleSpeakerIsIndependent(t *testing.T) {
	m := New(nil, &fakeTopology{snap: twoSpeakerSnapshot()})
	plan := m.ResolvePlan([]string{"192.168.1.10"}, true)
	require.True(t, plan.Independent)
}

func TestResolvePlan_SyncDisabledIsIndependent(t *testing.T) {
	m := New(nil, &fakeTopology{snap: twoSpeakerSnapshot()})
	plan := m.ResolvePlan([]string{"192.168.1.10", "192.168.1.11"}, false)
	require.True(t, plan.Independent)
}

func TestResolvePlan_PrefersExistingGroupCoordinator(t *testing.T) {
	snap := topology.Snapshot{
		Speakers: map[string]topology.Speaker{
			"RINCON_A": {UUID: "RINCON_A", IP: "192.168.1.10"},
			"RINCON_B": {UUID: "RINCON_B", IP: "192.168.1.11"},
		},
		Groups: []topology.ZoneGroup{
			// B already coordinates a group containing both speakers.
			{ID: "g1", CoordinatorUUID: "RINCON_B", CoordinatorIP: "192.168.1.11", Members: []string{"RINCON_A", "RINCON_B"}},
		},
	}
	m := New(nil, &fakeTopology{snap: snap})

	plan := m.ResolvePlan([]string{"192.168.1.10", "192.168.1.11"}, true)

	require.False(t, plan.Independent)
	require.Equal(t, "192.168.1.11", plan.CoordinatorIP)
	require.Equal(t, "RINCON_B", plan.CoordinatorUUID)
	require.Len(t, plan.Slaves, 1)
	require.Equal(t, "192.168.1.10", plan.Slaves[0].SpeakerIP)
}

func TestResolvePlan_FallsBackToStableUUIDSort(t *testing.T) {
	m := New(nil, &fakeTopology{snap: twoSpeakerSnapshot()})

	// Both speakers coordinate their own standalone groups, so neither is
	// preferred; the lowest UUID wins regardless of request order.
	plan := m.ResolvePlan([]string{"192.168.1.11", "192.168.1.10"}, true)

	require.False(t, plan.Independent)
	require.Equal(t, "RINCON_A", plan.CoordinatorUUID)
	require.Equal(t, "192.168.1.10", plan.CoordinatorIP)
	require.Len(t, plan.Slaves, 1)
	require.Equal(t, "192.168.1.11", plan.Slaves[0].SpeakerIP)
}

func TestResolvePlan_UnknownUUIDFallsBackToIndependent(t *testing.T) {
	m := New(nil, &fakeTopology{snap: twoSpeakerSnapshot()})
	plan := m.ResolvePlan([]string{"192.168.1.10", "192.168.1.99"}, true)
	require.True(t, plan.Independent)
}

func TestResolvePlan_RecordsPriorGroupCoordinator(t *testing.T) {
	snap := twoSpeakerSnapshot()
	m := New(nil, &fakeTopology{snap: snap})

	plan := m.ResolvePlan([]string{"192.168.1.10", "192.168.1.11"}, true)

	require.Len(t, plan.Slaves, 1)
	// B coordinated its own group before joining; teardown restores that.
	require.Equal(t, "192.168.1.11", plan.Slaves[0].PriorGroupCoordinatorIP)
}
