// Package boundary is the one WebSocket endpoint clients speak to and the
// HTTP endpoint that serves stream bytes to Sonos speakers. Every other
// component is reached only through internal/coordinator.
//
// WS messages are a tagged union: the envelope is decoded first to discover
// a message's concrete type, then the full payload is re-decoded into that
// variant. Internal code only ever sees the typed variants.
package boundary

// incomingEnvelope is decoded first to discover a message's concrete type.
type incomingEnvelope struct {
	Type string `json:"type"`
}

// Incoming (client-to-server) message payloads.
type handshakeMessage struct {
	Type          string        `json:"type"`
	EncoderConfig encoderConfig `json:"encoderConfig"`
	Title         string        `json:"title,omitempty"`
}

type encoderConfig struct {
	Codec             string `json:"codec"`
	Bitrate           int    `json:"bitrate"`
	SampleRate        int    `json:"sampleRate"`
	Channels          int    `json:"channels"`
	BitsPerSample     int    `json:"bitsPerSample"`
	LatencyMode       string `json:"latencyMode"`
	StreamingBufferMs int    `json:"streamingBufferMs"`
	FrameDurationMs   int    `json:"frameDurationMs"`
}

type startPlaybackMessage struct {
	Type             string   `json:"type"`
	SpeakerIP        string   `json:"speakerIp"`
	VideoSyncEnabled bool     `json:"videoSyncEnabled,omitempty"`
	SyncSpeakers     bool     `json:"syncSpeakers,omitempty"`
	ExtraSpeakerIPs  []string `json:"extraSpeakerIps,omitempty"`
}

type stopPlaybackSpeakerMessage struct {
	Type     string `json:"type"`
	StreamID string `json:"streamId"`
	IP       string `json:"ip"`
	Reason   string `json:"reason,omitempty"`
}

type volumeCommandMessage struct {
	Type   string `json:"type"`
	IP     string `json:"ip"`
	Volume int    `json:"volume,omitempty"`
	Mute   bool   `json:"mute,omitempty"`
	Group  bool   `json:"group,omitempty"`
}

// Outgoing (server-to-client) message payloads.
type handshakeAckMessage struct {
	Type     string `json:"type"`
	StreamID string `json:"streamId"`
}

type initialStateMessage struct {
	Type            string `json:"type"`
	Groups          any    `json:"groups"`
	TransportStates any    `json:"transportStates"`
	GroupVolumes    any    `json:"groupVolumes"`
	GroupMutes      any    `json:"groupMutes"`
}

type metadataUpdateMessage struct {
	Type  string `json:"type"`
	Title string `json:"title"`
}

type streamReadyMessage struct {
	Type       string `json:"type"`
	BufferSize int    `json:"bufferSize"`
}

type playbackResultsMessage struct {
	Type    string                    `json:"type"`
	Results []playbackResultsEntry    `json:"results"`
}

type playbackResultsEntry struct {
	SpeakerIP string `json:"speakerIp"`
	Success   bool   `json:"success"`
	StreamURL string `json:"streamUrl,omitempty"`
	Error     string `json:"error,omitempty"`
}

type heartbeatAckMessage struct {
	Type string `json:"type"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
