package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brew-lab/thaumic-cast-sub003/internal/apperrors"
	"github.com/brew-lab/thaumic-cast-sub003/internal/cadence"
	"github.com/brew-lab/thaumic-cast-sub003/internal/eventrouter"
	"github.com/brew-lab/thaumic-cast-sub003/internal/latency"
	"github.com/brew-lab/thaumic-cast-sub003/internal/netctx"
	"github.com/brew-lab/thaumic-cast-sub003/internal/playbacksession"
	"github.com/brew-lab/thaumic-cast-sub003/internal/streamregistry"
	"github.com/brew-lab/thaumic-cast-sub003/internal/syncgroup"
	"github.com/brew-lab/thaumic-cast-sub003/internal/topology"
	"github.com/brew-lab/thaumic-cast-sub003/internal/volume"
)

// prebufferWaitTimeout bounds how long StartPlayback waits for the ring to
// reach its prebuffer threshold before giving up.
const prebufferWaitTimeout = 8 * time.Second

// reasonSpeakerUnreachable is the StopSpeaker reason the latency monitor's
// reachability check reports after its retry budget is exhausted.
const reasonSpeakerUnreachable = "speaker_unreachable"

// StartPlaybackRequest is StartPlayback's input, decoded from a
// START_PLAYBACK message.
type StartPlaybackRequest struct {
	SpeakerIP        string
	ExtraSpeakerIPs  []string
	SyncSpeakers     bool
	VideoSyncEnabled bool
}

// SpeakerPlaybackResult is one speaker's outcome, reported back as
// PLAYBACK_RESULTS.
type SpeakerPlaybackResult struct {
	SpeakerIP string
	Success   bool
	StreamURL string
	Error     string
}

// PlaybackResult is the full outcome of a startPlayback call.
type PlaybackResult struct {
	Results []SpeakerPlaybackResult
}

// Coordinator orchestrates the full stream lifecycle on behalf of the
// boundary.
type Coordinator struct {
	registry      *streamregistry.Registry
	sessions      *playbacksession.Store
	syncGroup     *syncgroup.Manager
	topologyStore *topology.Store
	volumeRouter  *volume.Router
	latencyMon    *latency.Monitor
	eventRouter   *eventrouter.Router
	net           netctx.Context

	mu       sync.Mutex
	streams  map[string]*Stream
	ipStream map[string]map[string]bool // speakerIP -> set of streamIDs with a live session there

	stateMu         sync.Mutex
	transportStates map[string]string // speakerIP -> last TransportState seen
	groupVolumes    map[string]int    // speakerIP -> last group volume seen
	groupMutes      map[string]bool   // speakerIP -> last group mute seen
}

// StateSnapshot is the last-known per-speaker playback state accumulated from
// GENA events, handed to new clients in INITIAL_STATE.
type StateSnapshot struct {
	TransportStates map[string]string
	GroupVolumes    map[string]int
	GroupMutes      map[string]bool
}

// New builds a Stream Coordinator wired to every subcomponent it drives.
func New(
	registry *streamregistry.Registry,
	sessions *playbacksession.Store,
	syncGroup *syncgroup.Manager,
	topologyStore *topology.Store,
	volumeRouter *volume.Router,
	latencyMon *latency.Monitor,
	eventRouter *eventrouter.Router,
	net netctx.Context,
) *Coordinator {
	return &Coordinator{
		registry:        registry,
		sessions:        sessions,
		syncGroup:       syncGroup,
		topologyStore:   topologyStore,
		volumeRouter:    volumeRouter,
		latencyMon:      latencyMon,
		eventRouter:     eventRouter,
		net:             net,
		streams:         make(map[string]*Stream),
		ipStream:        make(map[string]map[string]bool),
		transportStates: make(map[string]string),
		groupVolumes:    make(map[string]int),
		groupMutes:      make(map[string]bool),
	}
}

// Run starts the background dispatcher that turns GENA-derived domain
// events into stream-scoped client events and source-stolen teardowns. It
// blocks until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	events, cancel := c.eventRouter.Subscribe()
	defer cancel()
	snaps, cancelSnaps := c.topologyStore.Subscribe()
	defer cancelSnaps()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			c.dispatch(ctx, event)
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			// The store's fan-out only fires when the group set actually
			// changed, so this never spams clients with identical topologies.
			for _, stream := range c.allStreams() {
				stream.Sink.EmitSonosEvent("zoneGroupsUpdated", map[string]any{"groups": snap.Groups})
			}
		}
	}
}

func (c *Coordinator) dispatch(ctx context.Context, event eventrouter.Event) {
	switch event.Kind {
	case eventrouter.KindAVTransport:
		c.dispatchAVTransport(event)
	case eventrouter.KindRenderingControl:
		c.dispatchRenderingControl(event)
	case eventrouter.KindZoneGroupTopology:
		// A ZoneGroupTopology NOTIFY means the canonical description
		// changed; re-fetch it from the device that told us.
		refreshCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_ = c.topologyStore.Refresh(refreshCtx, event.DeviceIP)
		cancel()
	case eventrouter.KindSubscriptionLost:
		c.dispatchSubscriptionLost(event)
	}
}

// dispatchSubscriptionLost surfaces the event router's synthetic
// subscriptionLost signal to every stream with a live session on the
// affected speaker.
func (c *Coordinator) dispatchSubscriptionLost(event eventrouter.Event) {
	for _, streamID := range c.streamsForIP(event.DeviceIP) {
		stream, ok := c.lookupStream(streamID)
		if !ok {
			continue
		}
		stream.Sink.EmitSonosEvent("subscriptionLost", map[string]any{
			"speakerIp":   event.DeviceIP,
			"serviceType": event.ServiceType,
		})
	}
}

func (c *Coordinator) dispatchAVTransport(event eventrouter.Event) {
	if event.Transport == nil {
		return
	}
	if event.Transport.TransportState != "" {
		c.stateMu.Lock()
		c.transportStates[event.DeviceIP] = event.Transport.TransportState
		c.stateMu.Unlock()
	}
	for _, streamID := range c.streamsForIP(event.DeviceIP) {
		stream, ok := c.lookupStream(streamID)
		if !ok {
			continue
		}
		sess, hasSess := c.sessions.Get(streamID, event.DeviceIP)

		if hasSess && event.Transport.AVTransportURI != "" && event.Transport.AVTransportURI != sess.TargetURI {
			stream.Sink.EmitSonosEvent("sourceChanged", map[string]any{"speakerIp": event.DeviceIP})
			_ = c.StopSpeaker(context.Background(), streamID, event.DeviceIP, "source_changed")
			continue
		}

		stream.Sink.EmitSonosEvent("transportState", map[string]any{
			"speakerIp": event.DeviceIP,
			"state":     event.Transport.TransportState,
		})
	}
}

func (c *Coordinator) dispatchRenderingControl(event eventrouter.Event) {
	if event.Rendering == nil {
		return
	}
	c.stateMu.Lock()
	if event.Rendering.HasVolume {
		c.groupVolumes[event.DeviceIP] = event.Rendering.Volume
	}
	if event.Rendering.HasMute {
		c.groupMutes[event.DeviceIP] = event.Rendering.Mute
	}
	c.stateMu.Unlock()
	for _, streamID := range c.streamsForIP(event.DeviceIP) {
		stream, ok := c.lookupStream(streamID)
		if !ok {
			continue
		}
		if event.Rendering.HasVolume {
			stream.Sink.EmitSonosEvent("groupVolume", map[string]any{"speakerIp": event.DeviceIP, "volume": event.Rendering.Volume})
		}
		if event.Rendering.HasMute {
			stream.Sink.EmitSonosEvent("groupMute", map[string]any{"speakerIp": event.DeviceIP, "mute": event.Rendering.Mute})
		}
	}
}

// StartStream creates a Stream from a HANDSHAKE, registers it, and starts
// its cadence task.
func (c *Coordinator) StartStream(h Handshake, sink Sink) (string, error) {
	ext, err := validateHandshake(h)
	if err != nil {
		return "", err
	}

	p := resolvePolicy(h.EncoderConfig.LatencyMode)
	silence := silenceFrame(h.EncoderConfig)

	// An epoch change has no client-facing event of its own: the client
	// observes a new epoch through the epochId carried on the next
	// latency.updated event, so these hooks only cover backpressure hints.
	var streamPtr *Stream
	hooks := cadence.Hooks{
		PauseProducer: func() {
			if streamPtr != nil && streamPtr.Sink != nil {
				streamPtr.Sink.PauseProducer()
			}
		},
		ResumeProducer: func() {
			if streamPtr != nil && streamPtr.Sink != nil {
				streamPtr.Sink.ResumeProducer()
			}
		},
	}
	streamer := cadence.New(p, h.EncoderConfig.FrameDurationMs, silence, hooks)

	id := uuid.NewString()
	streamPtr = newStream(id, h, ext, p, streamer, sink)

	if err := c.registry.Create(id, streamPtr, streamPtr.cancel); err != nil {
		return "", apperrors.NewTooManyStreamsError()
	}

	c.mu.Lock()
	c.streams[id] = streamPtr
	c.mu.Unlock()

	streamer.Start(streamPtr.ctx)
	streamPtr.setState(StateBuffering)
	streamPtr.watchStall(func() {
		streamPtr.Sink.EmitStreamEvent("ended", map[string]any{"reason": "producer_timeout"})
		c.teardownStream(streamPtr, "producer_timeout")
	})

	sink.EmitStreamEvent("created", map[string]any{"streamId": id, "ext": ext})

	return id, nil
}

// Push forwards one producer-supplied frame into a stream's cadence buffer.
func (c *Coordinator) Push(streamID string, data []byte, durationMs int) error {
	stream, ok := c.lookupStream(streamID)
	if !ok {
		return fmt.Errorf("coordinator: unknown stream %s", streamID)
	}
	stream.touchProducer()
	stream.Streamer.Push(data, durationMs)
	return nil
}

// StartPlayback waits for the ring to prebuffer then joins the requested
// speakers, registering a session per speaker and enabling latency
// monitoring when the client opted into video sync.
func (c *Coordinator) StartPlayback(ctx context.Context, streamID string, req StartPlaybackRequest) (PlaybackResult, error) {
	stream, ok := c.lookupStream(streamID)
	if !ok {
		return PlaybackResult{}, fmt.Errorf("coordinator: unknown stream %s", streamID)
	}

	if err := c.awaitPrebuffer(ctx, stream); err != nil {
		return PlaybackResult{}, err
	}
	stream.setState(StateReady)
	if stream.Sink != nil {
		stream.Sink.StreamReady(stream.Streamer.Stats().DepthMs)
	}

	speakerIPs := append([]string{req.SpeakerIP}, req.ExtraSpeakerIPs...)
	streamURL := c.net.StreamURL(streamID, stream.Ext)

	plan := c.syncGroup.ResolvePlan(speakerIPs, req.SyncSpeakers)
	var outcomes []syncgroup.SpeakerResult
	if plan.Independent {
		outcomes = c.syncGroup.StartIndependent(ctx, speakerIPs, streamID, streamURL, stream.Title, stream.Ext)
	} else {
		outcomes = c.syncGroup.Start(ctx, plan, streamID, streamURL, stream.Title, stream.Ext)
	}

	results := c.registerSessions(stream, plan, speakerIPs, streamURL, outcomes, req.VideoSyncEnabled)

	stream.setPlan(plan)
	stream.setVideoSync(req.VideoSyncEnabled)
	if c.sessions.Count(streamID) > 0 {
		stream.setState(StateServing)
		if stream.Sink != nil && stream.Title != "" {
			stream.Sink.EmitMetadataUpdate(stream.Title)
		}
	}

	return PlaybackResult{Results: results}, nil
}

func (c *Coordinator) awaitPrebuffer(ctx context.Context, stream *Stream) error {
	threshold := stream.prebufferThresholdMs()
	if stream.Streamer.Stats().DepthMs >= threshold {
		return nil
	}

	deadline := time.Now().Add(prebufferWaitTimeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if stream.Streamer.Stats().DepthMs >= threshold {
				return nil
			}
			if time.Now().After(deadline) {
				return nil // proceed anyway; Sonos will simply see a short initial buffer
			}
		}
	}
}

func (c *Coordinator) registerSessions(stream *Stream, plan syncgroup.Plan, speakerIPs []string, streamURL string, outcomes []syncgroup.SpeakerResult, videoSync bool) []SpeakerPlaybackResult {
	results := make([]SpeakerPlaybackResult, 0, len(outcomes))

	if plan.Independent {
		for _, o := range outcomes {
			r := SpeakerPlaybackResult{SpeakerIP: o.SpeakerIP, Success: o.Success, StreamURL: streamURL}
			if o.Success {
				if err := c.sessions.AddCoordinator(stream.ID, o.SpeakerIP, streamURL); err != nil {
					r.Success = false
					r.Error = err.Error()
				} else {
					c.trackIP(o.SpeakerIP, stream.ID)
					c.maybeStartLatency(stream, o.SpeakerIP, o.SpeakerIP, videoSync)
					if stream.Sink != nil {
						stream.Sink.EmitStreamEvent("playbackStarted", map[string]any{"speakerIp": o.SpeakerIP})
					}
				}
			} else if o.Error != nil {
				r.Error = o.Error.Error()
			}
			results = append(results, r)
		}
		return results
	}

	for i, o := range outcomes {
		isCoordinator := i == 0
		r := SpeakerPlaybackResult{SpeakerIP: o.SpeakerIP, Success: o.Success}
		if isCoordinator {
			r.StreamURL = streamURL
		}
		if o.Success {
			var err error
			if isCoordinator {
				err = c.sessions.AddCoordinator(stream.ID, o.SpeakerIP, streamURL)
			} else {
				slave := plan.Slaves[i-1]
				err = c.sessions.AddSlave(stream.ID, o.SpeakerIP, plan.CoordinatorUUID, slave.PriorGroupCoordinatorIP)
			}
			if err != nil {
				r.Success = false
				r.Error = err.Error()
			} else {
				c.trackIP(o.SpeakerIP, stream.ID)
				c.maybeStartLatency(stream, o.SpeakerIP, plan.CoordinatorIP, videoSync)
				if stream.Sink != nil {
					stream.Sink.EmitStreamEvent("playbackStarted", map[string]any{"speakerIp": o.SpeakerIP})
				}
			}
		} else if o.Error != nil {
			r.Error = o.Error.Error()
		}
		results = append(results, r)
	}
	return results
}

func (c *Coordinator) maybeStartLatency(stream *Stream, speakerIP, coordinatorIP string, videoSync bool) {
	if !videoSync {
		return
	}
	c.latencyMon.Start(stream.ctx, stream.ID, speakerIP, coordinatorIP, stream.OriginMono,
		stream.Streamer.EpochID, func() time.Duration { return time.Duration(stream.Streamer.Stats().DepthMs) * time.Millisecond },
		stream.Sink,
		func() {
			_ = c.StopSpeaker(context.Background(), stream.ID, speakerIP, reasonSpeakerUnreachable)
		})
}

func (c *Coordinator) trackIP(ip, streamID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.ipStream[ip]
	if !ok {
		set = make(map[string]bool)
		c.ipStream[ip] = set
	}
	set[streamID] = true
}

func (c *Coordinator) untrackIP(ip, streamID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if set, ok := c.ipStream[ip]; ok {
		delete(set, streamID)
		if len(set) == 0 {
			delete(c.ipStream, ip)
		}
	}
}

func (c *Coordinator) streamsForIP(ip string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	set := c.ipStream[ip]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// StopSpeaker removes one speaker's session from a stream and tears down
// its Sonos-side membership.
func (c *Coordinator) StopSpeaker(ctx context.Context, streamID, speakerIP, reason string) error {
	stream, ok := c.lookupStream(streamID)
	if !ok {
		return fmt.Errorf("coordinator: unknown stream %s", streamID)
	}
	sess, ok := c.sessions.Get(streamID, speakerIP)
	if !ok {
		return nil
	}

	if sess.Role == playbacksession.RoleSlave {
		_ = c.syncGroup.TeardownSlave(ctx, syncgroup.SlaveAssignment{SpeakerIP: speakerIP, PriorGroupCoordinatorIP: sess.PriorGroupCoordinatorIP})
	} else if plan, ok := stream.getPlan(); ok && !plan.Independent {
		c.syncGroup.TeardownCoordinatorCascade(ctx, plan.Slaves)
		for _, slave := range plan.Slaves {
			c.sessions.Remove(streamID, slave.SpeakerIP)
			c.untrackIP(slave.SpeakerIP, streamID)
			c.latencyMon.Stop(streamID, slave.SpeakerIP)
		}
	}

	c.sessions.Remove(streamID, speakerIP)
	c.untrackIP(speakerIP, streamID)
	c.latencyMon.Stop(streamID, speakerIP)

	if stream.Sink != nil {
		// speaker_unreachable is the one stop reason that follows a retry
		// budget being exhausted rather than a clean client- or
		// device-initiated stop; it gets its own event kind so a client can
		// distinguish "the speaker hung up" from "we hung up on it".
		kind := "playbackStopped"
		if reason == reasonSpeakerUnreachable {
			kind = "playbackStopFailed"
		}
		stream.Sink.EmitStreamEvent(kind, map[string]any{"speakerIp": speakerIP, "reason": reason})
	}

	if c.sessions.Count(streamID) == 0 {
		c.teardownStream(stream, reason)
	}
	return nil
}

// stopAllSessions is the shared teardown path for an explicit STOP_STREAM or
// a producer disconnect.
func (c *Coordinator) stopAllSessions(ctx context.Context, stream *Stream) {
	for _, sess := range c.sessions.ForStream(stream.ID) {
		if sess.Role == playbacksession.RoleSlave {
			_ = c.syncGroup.TeardownSlave(ctx, syncgroup.SlaveAssignment{SpeakerIP: sess.SpeakerIP, PriorGroupCoordinatorIP: sess.PriorGroupCoordinatorIP})
		}
		c.latencyMon.Stop(stream.ID, sess.SpeakerIP)
		c.untrackIP(sess.SpeakerIP, stream.ID)
	}
	c.sessions.RemoveStream(stream.ID)
}

// StopStream stops every session on a stream and schedules its
// destruction.
func (c *Coordinator) StopStream(ctx context.Context, streamID string) error {
	stream, ok := c.lookupStream(streamID)
	if !ok {
		return fmt.Errorf("coordinator: unknown stream %s", streamID)
	}
	c.stopAllSessions(ctx, stream)
	c.teardownStream(stream, "stop_stream")
	return nil
}

// teardownStream transitions a stream to Draining, asks the registry to
// cancel it after the teardown grace period, and finalizes cleanup once that
// context is cancelled.
func (c *Coordinator) teardownStream(stream *Stream, reason string) {
	stream.setState(StateDraining)
	c.registry.Drop(stream.ID)

	go func() {
		<-stream.ctx.Done()
		stream.Streamer.Stop()
		stream.setState(StateEnded)
		if stream.Sink != nil {
			stream.Sink.EmitStreamEvent("ended", map[string]any{"reason": reason})
			stream.Sink.Close()
		}
		c.mu.Lock()
		delete(c.streams, stream.ID)
		c.mu.Unlock()
	}()
}

// HandleProducerDisconnect tears a stream down immediately (no grace period)
// when the ingest WebSocket itself closes without an explicit STOP_STREAM.
func (c *Coordinator) HandleProducerDisconnect(ctx context.Context, streamID string) {
	stream, ok := c.lookupStream(streamID)
	if !ok {
		return
	}
	c.stopAllSessions(ctx, stream)
	stream.setState(StateDraining)
	c.registry.DropImmediately(streamID)
	go func() {
		<-stream.ctx.Done()
		stream.Streamer.Stop()
		stream.setState(StateEnded)
		c.mu.Lock()
		delete(c.streams, stream.ID)
		c.mu.Unlock()
	}()
}

// Pause marks the stream's producer side as intentionally paused: the
// cadence streamer keeps emitting silence on underrun as usual, but the
// stall watchdog stops treating the producer's silence as a timeout signal
// while paused.
func (c *Coordinator) Pause(streamID string) error {
	stream, ok := c.lookupStream(streamID)
	if !ok {
		return fmt.Errorf("coordinator: unknown stream %s", streamID)
	}
	stream.setPaused(true)
	return nil
}

// Resume clears the pause and increments the stream's epoch, invalidating
// any latency samples taken during the pause.
func (c *Coordinator) Resume(streamID string) error {
	stream, ok := c.lookupStream(streamID)
	if !ok {
		return fmt.Errorf("coordinator: unknown stream %s", streamID)
	}
	stream.setPaused(false)
	stream.touchProducer()
	stream.Streamer.ResetEpoch()
	return nil
}

func (c *Coordinator) lookupStream(streamID string) (*Stream, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.streams[streamID]
	return s, ok
}

func (c *Coordinator) allStreams() []*Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Stream, 0, len(c.streams))
	for _, s := range c.streams {
		out = append(out, s)
	}
	return out
}

// StateSnapshot returns the last-known per-speaker transport, group volume,
// and group mute state, for INITIAL_STATE.
func (c *Coordinator) StateSnapshot() StateSnapshot {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	snap := StateSnapshot{
		TransportStates: make(map[string]string, len(c.transportStates)),
		GroupVolumes:    make(map[string]int, len(c.groupVolumes)),
		GroupMutes:      make(map[string]bool, len(c.groupMutes)),
	}
	for ip, st := range c.transportStates {
		snap.TransportStates[ip] = st
	}
	for ip, v := range c.groupVolumes {
		snap.GroupVolumes[ip] = v
	}
	for ip, m := range c.groupMutes {
		snap.GroupMutes[ip] = m
	}
	return snap
}

// ICYTitleFor returns a callback yielding the current ICY StreamTitle for a
// stream, used by the boundary when a speaker requests in-band metadata.
func (c *Coordinator) ICYTitleFor(streamID string) func() string {
	return func() string {
		stream, ok := c.lookupStream(streamID)
		if !ok {
			return ""
		}
		return stream.Title
	}
}

// StreamerFor returns a stream's cadence Streamer, for the boundary's HTTP
// GET handler.
func (c *Coordinator) StreamerFor(streamID string) (*cadence.Streamer, string, bool) {
	stream, ok := c.lookupStream(streamID)
	if !ok {
		return nil, "", false
	}
	return stream.Streamer, stream.Ext, true
}

// WAVHeaderFor returns the synthetic-length RIFF/WAVE header to write ahead
// of a PCM stream's first frame, or ok=false for any other codec or
// unknown stream.
func (c *Coordinator) WAVHeaderFor(streamID string) ([]byte, bool) {
	stream, ok := c.lookupStream(streamID)
	if !ok || stream.Ext != "wav" {
		return nil, false
	}
	return wavHeader(stream.Handshake.EncoderConfig), true
}

// Stats returns diagnostic counters for a stream.
func (c *Coordinator) Stats(streamID string) (cadence.Stats, bool) {
	stream, ok := c.lookupStream(streamID)
	if !ok {
		return cadence.Stats{}, false
	}
	return stream.Streamer.Stats(), true
}

// TopologySnapshot exposes the current fleet topology for INITIAL_STATE.
func (c *Coordinator) TopologySnapshot() topology.Snapshot {
	return c.topologyStore.Snapshot()
}

// SetVolume routes a per-speaker or per-group volume command.
func (c *Coordinator) SetVolume(ctx context.Context, ip string, level int, group bool) error {
	return c.volumeRouter.SetVolume(ctx, ip, level, group)
}

// GetVolume reads a per-speaker or per-group volume.
func (c *Coordinator) GetVolume(ctx context.Context, ip string, group bool) (int, error) {
	return c.volumeRouter.GetVolume(ctx, ip, group)
}

// SetMute routes a per-speaker or per-group mute command.
func (c *Coordinator) SetMute(ctx context.Context, ip string, mute bool, group bool) error {
	return c.volumeRouter.SetMute(ctx, ip, mute, group)
}

// GetMute reads a per-speaker or per-group mute state.
func (c *Coordinator) GetMute(ctx context.Context, ip string, group bool) (bool, error) {
	return c.volumeRouter.GetMute(ctx, ip, group)
}
