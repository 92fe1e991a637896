// Package playbacksession is the source of truth for which role each
// (streamId, speakerIp) pair plays: at most one Coordinator per stream, and
// every Slave's targetUri pinned to that coordinator's UUID.
package playbacksession

import (
	"fmt"
	"sync"
	"time"
)

// Role is a speaker's part in a stream's playback.
type Role string

const (
	RoleCoordinator Role = "coordinator"
	RoleSlave       Role = "slave"
)

// Session is one (streamId, speakerIp) playback assignment.
type Session struct {
	StreamID        string
	SpeakerIP       string
	Role            Role
	TargetURI       string
	CoordinatorUUID string // set for Slave sessions
	StartedAt       time.Time

	// PriorGroupCoordinatorIP records the speaker's zone-group membership
	// immediately before this session started, so teardown can restore it.
	PriorGroupCoordinatorIP string
}

// InvariantViolation is returned when a mutation would break a store
// invariant. This is a programming error: the coordinator aborts its
// current action and does not mutate further.
type InvariantViolation struct {
	Reason string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("playbacksession: invariant violated: %s", e.Reason)
}

// Store holds every active session, keyed by (streamId, speakerIp).
type Store struct {
	mu       sync.Mutex
	sessions map[string]map[string]*Session // streamID -> speakerIP -> Session
}

// New creates an empty session store.
func New() *Store {
	return &Store{sessions: make(map[string]map[string]*Session)}
}

// AddCoordinator registers the coordinator session for a stream. Fails if a
// coordinator already exists for that stream.
func (s *Store) AddCoordinator(streamID, speakerIP, targetURI string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions[streamID] {
		if sess.Role == RoleCoordinator {
			return &InvariantViolation{Reason: fmt.Sprintf("stream %s already has coordinator %s", streamID, sess.SpeakerIP)}
		}
	}

	s.ensureStream(streamID)
	s.sessions[streamID][speakerIP] = &Session{
		StreamID: streamID, SpeakerIP: speakerIP, Role: RoleCoordinator, TargetURI: targetURI, StartedAt: time.Now(),
	}
	return nil
}

// AddSlave registers a slave session with targetUri "x-rincon:" +
// coordinatorUUID. It fails with an InvariantViolation when another slave of
// the stream is pinned to a different coordinator UUID; the UUID is not
// compared against the stream's coordinator session.
func (s *Store) AddSlave(streamID, speakerIP, coordinatorUUID, priorGroupCoordinatorIP string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	targetURI := "x-rincon:" + coordinatorUUID
	for _, sess := range s.sessions[streamID] {
		if sess.Role == RoleSlave && sess.CoordinatorUUID != coordinatorUUID {
			return &InvariantViolation{Reason: fmt.Sprintf("stream %s has slaves pinned to conflicting coordinators", streamID)}
		}
	}

	s.ensureStream(streamID)
	s.sessions[streamID][speakerIP] = &Session{
		StreamID: streamID, SpeakerIP: speakerIP, Role: RoleSlave,
		TargetURI: targetURI, CoordinatorUUID: coordinatorUUID, StartedAt: time.Now(),
		PriorGroupCoordinatorIP: priorGroupCoordinatorIP,
	}
	return nil
}

func (s *Store) ensureStream(streamID string) {
	if s.sessions[streamID] == nil {
		s.sessions[streamID] = make(map[string]*Session)
	}
}

// Get returns the session for (streamId, speakerIp), if any.
func (s *Store) Get(streamID, speakerIP string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.sessions[streamID]
	if !ok {
		return nil, false
	}
	sess, ok := m[speakerIP]
	return sess, ok
}

// Remove deletes a single session.
func (s *Store) Remove(streamID, speakerIP string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.sessions[streamID]; ok {
		delete(m, speakerIP)
		if len(m) == 0 {
			delete(s.sessions, streamID)
		}
	}
}

// ForStream returns every session for a stream.
func (s *Store) ForStream(streamID string) []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.sessions[streamID]
	out := make([]*Session, 0, len(m))
	for _, sess := range m {
		out = append(out, sess)
	}
	return out
}

// Coordinator returns the coordinator session for a stream, if one exists.
func (s *Store) Coordinator(streamID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions[streamID] {
		if sess.Role == RoleCoordinator {
			return sess, true
		}
	}
	return nil, false
}

// Count returns the number of sessions for a stream.
func (s *Store) Count(streamID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions[streamID])
}

// RemoveStream deletes every session for a stream, e.g. on full teardown.
func (s *Store) RemoveStream(streamID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, streamID)
}
