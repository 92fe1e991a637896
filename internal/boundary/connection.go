package boundary

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brew-lab/thaumic-cast-sub003/internal/coordinator"
	"github.com/brew-lab/thaumic-cast-sub003/internal/latency"
	"github.com/brew-lab/thaumic-cast-sub003/internal/topology"
)

// heartbeatInterval paces the keepalive check; maxMissedHeartbeats
// consecutive silent intervals close the connection.
const (
	heartbeatInterval   = 5 * time.Second
	maxMissedHeartbeats = 3
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// connection is one ingest WebSocket's lifecycle: it owns the producer's
// single Stream, dispatches incoming tagged messages, and implements
// coordinator.Sink to push events back out.
type connection struct {
	conn  *websocket.Conn
	coord *coordinator.Coordinator
	topo  *topology.Store

	writeMu sync.Mutex

	mu              sync.Mutex
	streamID        string
	frameDurationMs int
	missedBeats     int
	handshakeDone   bool
	closed          bool
}

func serveConnection(coord *coordinator.Coordinator, topo *topology.Store, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &connection{conn: conn, coord: coord, topo: topo}
	c.run()
}

func (c *connection) run() {
	defer c.shutdown()

	snap := c.topo.Snapshot()
	state := c.coord.StateSnapshot()
	c.writeJSON(initialStateMessage{
		Type:            "INITIAL_STATE",
		Groups:          snap.Groups,
		TransportStates: state.TransportStates,
		GroupVolumes:    state.GroupVolumes,
		GroupMutes:      state.GroupMutes,
	})

	first, err := c.readOne()
	if err != nil {
		return
	}
	if first.Type != "HANDSHAKE" {
		c.writeJSON(errorMessage{Type: "ERROR", Message: "first message must be HANDSHAKE"})
		return
	}
	if !c.handleHandshakeRaw(first.raw) {
		return
	}

	stopHeartbeat := c.watchHeartbeats()
	defer stopHeartbeat()

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		if kind == websocket.BinaryMessage {
			c.handleAudioFrame(data)
			continue
		}

		var env incomingEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		if !c.handle(rawMessage{Type: env.Type, raw: data}) {
			return
		}
	}
}

// handleAudioFrame forwards one binary WS frame to the stream's cadence
// buffer. Frame duration is the negotiated frameDurationMs from HANDSHAKE;
// PCM and compressed codecs alike are treated as fixed-duration.
func (c *connection) handleAudioFrame(data []byte) {
	c.mu.Lock()
	streamID := c.streamID
	frameDurationMs := c.frameDurationMs
	c.mu.Unlock()
	if streamID == "" {
		return
	}
	_ = c.coord.Push(streamID, data, frameDurationMs)
}

type rawMessage struct {
	Type string
	raw  []byte
}

func (c *connection) readOne() (rawMessage, error) {
	kind, data, err := c.conn.ReadMessage()
	if err != nil {
		return rawMessage{}, err
	}
	if kind == websocket.BinaryMessage {
		return rawMessage{Type: "__binary__", raw: data}, nil
	}
	var env incomingEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return rawMessage{}, err
	}
	return rawMessage{Type: env.Type, raw: data}, nil
}

func (c *connection) handleHandshakeRaw(raw []byte) bool {
	var msg handshakeMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.writeJSON(errorMessage{Type: "ERROR", Message: "malformed HANDSHAKE"})
		return false
	}

	h := coordinator.Handshake{
		Title: msg.Title,
		EncoderConfig: coordinator.EncoderConfig{
			Codec:             msg.EncoderConfig.Codec,
			Bitrate:           msg.EncoderConfig.Bitrate,
			SampleRate:        msg.EncoderConfig.SampleRate,
			Channels:          msg.EncoderConfig.Channels,
			BitsPerDepth:      msg.EncoderConfig.BitsPerSample,
			LatencyMode:       msg.EncoderConfig.LatencyMode,
			StreamingBufferMs: msg.EncoderConfig.StreamingBufferMs,
			FrameDurationMs:   msg.EncoderConfig.FrameDurationMs,
		},
	}

	streamID, err := c.coord.StartStream(h, c)
	if err != nil {
		c.writeJSON(errorMessage{Type: "ERROR", Message: err.Error()})
		return false
	}

	c.mu.Lock()
	c.streamID = streamID
	c.frameDurationMs = msg.EncoderConfig.FrameDurationMs
	c.handshakeDone = true
	c.mu.Unlock()

	c.writeJSON(handshakeAckMessage{Type: "HANDSHAKE_ACK", StreamID: streamID})
	return true
}

// handle dispatches every post-HANDSHAKE message type. Returns false when
// the connection should close.
func (c *connection) handle(msg rawMessage) bool {
	ctx := context.Background()
	streamID := c.currentStreamID()

	switch msg.Type {
	case "HEARTBEAT":
		c.mu.Lock()
		c.missedBeats = 0
		c.mu.Unlock()
		c.writeJSON(heartbeatAckMessage{Type: "HEARTBEAT_ACK"})

	case "START_PLAYBACK":
		var sp startPlaybackMessage
		if err := json.Unmarshal(msg.raw, &sp); err != nil {
			c.writeJSON(errorMessage{Type: "ERROR", Message: "malformed START_PLAYBACK"})
			return true
		}
		result, err := c.coord.StartPlayback(ctx, streamID, coordinator.StartPlaybackRequest{
			SpeakerIP:        sp.SpeakerIP,
			ExtraSpeakerIPs:  sp.ExtraSpeakerIPs,
			SyncSpeakers:     sp.SyncSpeakers,
			VideoSyncEnabled: sp.VideoSyncEnabled,
		})
		if err != nil {
			c.writeJSON(errorMessage{Type: "ERROR", Message: err.Error()})
			return true
		}
		entries := make([]playbackResultsEntry, 0, len(result.Results))
		for _, r := range result.Results {
			entries = append(entries, playbackResultsEntry{
				SpeakerIP: r.SpeakerIP, Success: r.Success, StreamURL: r.StreamURL, Error: r.Error,
			})
		}
		c.writeJSON(playbackResultsMessage{Type: "PLAYBACK_RESULTS", Results: entries})

	case "STOP_STREAM":
		_ = c.coord.StopStream(ctx, streamID)
		return false

	case "PAUSE_STREAM":
		if err := c.coord.Pause(streamID); err != nil {
			c.writeJSON(errorMessage{Type: "ERROR", Message: err.Error()})
		}

	case "RESUME_STREAM":
		if err := c.coord.Resume(streamID); err != nil {
			c.writeJSON(errorMessage{Type: "ERROR", Message: err.Error()})
		}

	case "STOP_PLAYBACK_SPEAKER":
		var sps stopPlaybackSpeakerMessage
		if err := json.Unmarshal(msg.raw, &sps); err != nil {
			c.writeJSON(errorMessage{Type: "ERROR", Message: "malformed STOP_PLAYBACK_SPEAKER"})
			return true
		}
		if err := c.coord.StopSpeaker(ctx, streamID, sps.IP, sps.Reason); err != nil {
			c.writeJSON(errorMessage{Type: "ERROR", Message: err.Error()})
		}

	case "SET_VOLUME":
		var v volumeCommandMessage
		_ = json.Unmarshal(msg.raw, &v)
		if err := c.coord.SetVolume(ctx, v.IP, v.Volume, v.Group); err != nil {
			c.writeJSON(errorMessage{Type: "ERROR", Message: err.Error()})
		}

	case "SET_MUTE":
		var v volumeCommandMessage
		_ = json.Unmarshal(msg.raw, &v)
		if err := c.coord.SetMute(ctx, v.IP, v.Mute, v.Group); err != nil {
			c.writeJSON(errorMessage{Type: "ERROR", Message: err.Error()})
		}

	case "GET_VOLUME":
		var v volumeCommandMessage
		_ = json.Unmarshal(msg.raw, &v)
		level, err := c.coord.GetVolume(ctx, v.IP, v.Group)
		if err != nil {
			c.writeJSON(errorMessage{Type: "ERROR", Message: err.Error()})
			return true
		}
		c.writeJSON(map[string]any{"type": "GET_VOLUME", "ip": v.IP, "volume": level})

	case "GET_MUTE":
		var v volumeCommandMessage
		_ = json.Unmarshal(msg.raw, &v)
		muted, err := c.coord.GetMute(ctx, v.IP, v.Group)
		if err != nil {
			c.writeJSON(errorMessage{Type: "ERROR", Message: err.Error()})
			return true
		}
		c.writeJSON(map[string]any{"type": "GET_MUTE", "ip": v.IP, "mute": muted})

	default:
		log.Printf("boundary: unknown message type %q", msg.Type)
	}
	return true
}

func (c *connection) currentStreamID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streamID
}

// watchHeartbeats runs the heartbeat timer; maxMissedHeartbeats consecutive
// missed beats close the connection, treated as producer-ended.
func (c *connection) watchHeartbeats() func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.mu.Lock()
				c.missedBeats++
				missed := c.missedBeats
				c.mu.Unlock()
				if missed >= maxMissedHeartbeats {
					c.conn.Close()
					return
				}
			}
		}
	}()
	return func() { close(done) }
}

func (c *connection) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	streamID := c.streamID
	handshakeDone := c.handshakeDone
	c.mu.Unlock()

	if handshakeDone {
		c.coord.HandleProducerDisconnect(context.Background(), streamID)
	}
	c.conn.Close()
}

func (c *connection) writeJSON(v any) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(v); err != nil {
		log.Printf("boundary: write error: %v", err)
	}
}

// --- coordinator.Sink implementation ---

func (c *connection) StreamReady(bufferSizeMs int) {
	c.writeJSON(streamReadyMessage{Type: "STREAM_READY", BufferSize: bufferSizeMs})
}

func (c *connection) EmitStreamEvent(kind string, payload map[string]any) {
	c.writeJSON(withCategory("stream", kind, payload))
}

func (c *connection) EmitMetadataUpdate(title string) {
	c.writeJSON(metadataUpdateMessage{Type: "METADATA_UPDATE", Title: title})
}

func (c *connection) EmitSonosEvent(kind string, payload map[string]any) {
	c.writeJSON(withCategory("sonos", kind, payload))
}

func (c *connection) EmitError(message string) {
	c.writeJSON(errorMessage{Type: "ERROR", Message: message})
}

func (c *connection) EmitLatency(event latency.Event) {
	c.writeJSON(map[string]any{
		"type":       event.Kind,
		"category":   "latency",
		"streamId":   event.StreamID,
		"speakerIp":  event.SpeakerIP,
		"epochId":    event.EpochID,
		"latencyMs":  event.LatencyMs,
		"jitterMs":   event.JitterMs,
		"confidence": event.Confidence,
		"timestamp":  event.Timestamp,
	})
}

func (c *connection) PauseProducer() {
	c.writeJSON(map[string]any{"type": "PAUSE_PRODUCER"})
}

func (c *connection) ResumeProducer() {
	c.writeJSON(map[string]any{"type": "RESUME_PRODUCER"})
}

func (c *connection) Close() {
	c.conn.Close()
}

func withCategory(category, kind string, payload map[string]any) map[string]any {
	out := map[string]any{"type": kind, "category": category}
	for k, v := range payload {
		out[k] = v
	}
	return out
}
