package volume

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brew-lab/thaumic-cast-sub003/internal/topology"
)

type fakeTopology struct {
	snap topology.Snapshot
}

func (f *fakeTopology) Snapshot() topology.Snapshot { return f.snap }

func groupedSnapshot() topology.Snapshot {
	return topology.Snapshot{
		Speakers: map[string]topology.Speaker{
			"RINCON_A": {UUID: "RINCON_A", IP: "192.168.1.10"},
			"RINCON_B": {UUID: "RINCON_B", IP: "192.168.1.11"},
		},
		Groups: []topology.ZoneGroup{
			{ID: "g1", CoordinatorUUID: "RINCON_A", CoordinatorIP: "192.168.1.10", Members: []string{"RINCON_A", "RINCON_B"}},
		},
	}
}

func TestSetVolume_RejectsOutOfRange(t *testing.T) {
	r := New(nil, &fakeTopology{snap: groupedSnapshot()})

	err := r.SetVolume(context.Background(), "192.168.1.10", 101, false)
	require.Error(t, err)

	err = r.SetVolume(context.Background(), "192.168.1.10", -1, false)
	require.Error(t, err)
}

func TestTarget_GroupCommandResolvesToCoordinator(t *testing.T) {
	r := New(nil, &fakeTopology{snap: groupedSnapshot()})

	// B is a slave in A's group: a group command against B lands on A.
	require.Equal(t, "192.168.1.10", r.target("192.168.1.11", true))
}

func TestTarget_SpeakerCommandTargetsSpeakerDirectly(t *testing.T) {
	r := New(nil, &fakeTopology{snap: groupedSnapshot()})
	require.Equal(t, "192.168.1.11", r.target("192.168.1.11", false))
}

func TestTarget_UnknownSpeakerFallsBackToRequestedIP(t *testing.T) {
	r := New(nil, &fakeTopology{snap: groupedSnapshot()})
	require.Equal(t, "192.168.1.99", r.target("192.168.1.99", true))
}
