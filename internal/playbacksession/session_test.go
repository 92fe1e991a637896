package playbacksession

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_AddCoordinator(t *testing.T) {
	s := New()
	require.NoError(t, s.AddCoordinator("stream1", "10.0.0.1", "http://host:8080/stream/stream1.mp3"))

	sess, ok := s.Coordinator("stream1")
	require.True(t, ok)
	require.Equal(t, RoleCoordinator, sess.Role)
}

func TestStore_AddCoordinator_RejectsSecondCoordinator(t *testing.T) {
	s := New()
	require.NoError(t, s.AddCoordinator("stream1", "10.0.0.1", "url"))

	err := s.AddCoordinator("stream1", "10.0.0.2", "url2")
	var violation *InvariantViolation
	require.ErrorAs(t, err, &violation)
}

func TestStore_AddSlave_TargetURIMatchesCoordinatorUUID(t *testing.T) {
	s := New()
	require.NoError(t, s.AddSlave("stream1", "10.0.0.2", "RINCON_A", "10.0.0.9"))

	sess, ok := s.Get("stream1", "10.0.0.2")
	require.True(t, ok)
	require.Equal(t, "x-rincon:RINCON_A", sess.TargetURI)
	require.Equal(t, "10.0.0.9", sess.PriorGroupCoordinatorIP)
}

func TestStore_AddSlave_RejectsConflictingCoordinator(t *testing.T) {
	s := New()
	require.NoError(t, s.AddSlave("stream1", "10.0.0.2", "RINCON_A", ""))

	err := s.AddSlave("stream1", "10.0.0.3", "RINCON_B", "")
	var violation *InvariantViolation
	require.ErrorAs(t, err, &violation)
}

func TestStore_RemoveAndCount(t *testing.T) {
	s := New()
	require.NoError(t, s.AddCoordinator("stream1", "10.0.0.1", "url"))
	require.NoError(t, s.AddSlave("stream1", "10.0.0.2", "RINCON_A", ""))
	require.Equal(t, 2, s.Count("stream1"))

	s.Remove("stream1", "10.0.0.2")
	require.Equal(t, 1, s.Count("stream1"))

	s.Remove("stream1", "10.0.0.1")
	require.Equal(t, 0, s.Count("stream1"))
}
