package topology

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_SpeakerSeen(t *testing.T) {
	s := NewStore(nil)
	s.SpeakerSeen("RINCON_1", "10.0.0.1", "Living Room", "One SL")

	snap := s.Snapshot()
	require.Contains(t, snap.Speakers, "RINCON_1")
	require.Equal(t, "10.0.0.1", snap.Speakers["RINCON_1"].IP)
}

func TestStore_SpeakerSeen_PrefersMostRecentIP(t *testing.T) {
	s := NewStore(nil)
	s.SpeakerSeen("RINCON_1", "10.0.0.1", "Living Room", "One SL")
	s.SpeakerSeen("RINCON_1", "10.0.0.2", "Living Room", "One SL")

	snap := s.Snapshot()
	require.Equal(t, "10.0.0.2", snap.Speakers["RINCON_1"].IP)
}

func TestStore_AnyReachableIP_EmptyWhenNoSpeakers(t *testing.T) {
	s := NewStore(nil)
	require.Equal(t, "", s.AnyReachableIP())
}

func TestStore_Subscribe_ReceivesSnapshotOnBroadcast(t *testing.T) {
	s := NewStore(nil)
	ch, cancel := s.Subscribe()
	defer cancel()

	snap := Snapshot{Speakers: map[string]Speaker{"RINCON_1": {UUID: "RINCON_1", IP: "10.0.0.1"}}}
	s.broadcast(snap)

	got := <-ch
	require.Equal(t, "10.0.0.1", got.Speakers["RINCON_1"].IP)
}

func TestSameGroups(t *testing.T) {
	a := []ZoneGroup{{ID: "g1", CoordinatorUUID: "c1", Members: []string{"c1", "m2"}}}
	b := []ZoneGroup{{ID: "g1", CoordinatorUUID: "c1", Members: []string{"m2", "c1"}}}
	require.True(t, sameGroups(a, b))

	c := []ZoneGroup{{ID: "g1", CoordinatorUUID: "c1", Members: []string{"c1"}}}
	require.False(t, sameGroups(a, c))
}

func TestSnapshot_CoordinatorIP(t *testing.T) {
	snap := Snapshot{
		Groups: []ZoneGroup{
			{ID: "g1", CoordinatorUUID: "c1", CoordinatorIP: "10.0.0.1", Members: []string{"c1", "m2"}},
		},
	}
	require.Equal(t, "10.0.0.1", snap.CoordinatorIP("m2"))
	require.Equal(t, "", snap.CoordinatorIP("unknown"))
}

func TestIPFromLocation(t *testing.T) {
	require.Equal(t, "10.0.0.5", ipFromLocation("http://10.0.0.5:1400/xml/device_description.xml"))
	require.Equal(t, "", ipFromLocation("not-a-url"))
}
