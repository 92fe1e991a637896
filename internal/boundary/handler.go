package boundary

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/brew-lab/thaumic-cast-sub003/internal/api"
	"github.com/brew-lab/thaumic-cast-sub003/internal/apperrors"
	"github.com/brew-lab/thaumic-cast-sub003/internal/cadence"
	"github.com/brew-lab/thaumic-cast-sub003/internal/coordinator"
	"github.com/brew-lab/thaumic-cast-sub003/internal/topology"
)

// Boundary wires the client-facing HTTP surfaces to a Coordinator.
type Boundary struct {
	coord         *coordinator.Coordinator
	topo          *topology.Store
	pairingSecret string
}

// New builds the Boundary. An empty pairingSecret disables the optional
// HS256 pairing check on the ingest WebSocket.
func New(coord *coordinator.Coordinator, topo *topology.Store, pairingSecret string) *Boundary {
	return &Boundary{coord: coord, topo: topo, pairingSecret: pairingSecret}
}

// RegisterRoutes mounts the ingest WebSocket, the stream HTTP surface, and
// the diagnostics stats endpoint onto router.
func (b *Boundary) RegisterRoutes(router chi.Router) {
	router.HandleFunc("/ws", b.handleWS)
	router.Get("/stream/{streamFile}", b.handleStream)
	router.Head("/stream/{streamFile}", b.handleStream)
	router.Method(http.MethodGet, "/streams/{streamID}/stats", api.Handler(b.handleStats))
}

func (b *Boundary) handleWS(w http.ResponseWriter, r *http.Request) {
	if b.pairingSecret != "" {
		token := r.URL.Query().Get("token")
		if err := verifyPairingToken(b.pairingSecret, token); err != nil {
			http.Error(w, "invalid pairing token", http.StatusUnauthorized)
			return
		}
	}
	serveConnection(b.coord, b.topo, w, r)
}

// handleStream serves /stream/<streamId>.<ext>: only to a requester IP that
// matches a known Sonos speaker (defense in depth), chunked, honoring
// ICY-MetaInt when requested. HEAD returns headers only.
func (b *Boundary) handleStream(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "streamFile")
	streamID, ext, ok := splitStreamFile(file)
	if !ok {
		http.NotFound(w, r)
		return
	}

	requesterIP := requestIP(r)
	if !b.isKnownSpeaker(requesterIP) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	streamer, streamExt, ok := b.coord.StreamerFor(streamID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if streamExt != ext {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", coordinator.ContentTypeForExtension(ext))
	w.Header().Set("Transfer-Encoding", "chunked")
	w.Header().Set("Cache-Control", "no-cache")

	icyRequested := r.Header.Get("Icy-MetaData") == "1"
	icyMetaInt := 0
	if icyRequested {
		icyMetaInt = 8192
		w.Header().Set("icy-metaint", strconv.Itoa(icyMetaInt))
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	release, err := streamer.AttachReader()
	if err != nil {
		http.Error(w, "stream already has an active reader", http.StatusConflict)
		return
	}
	defer release()

	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	out := flushingWriter{w, flusher}

	if ext == "wav" {
		if header, ok := b.coord.WAVHeaderFor(streamID); ok {
			if _, err := out.Write(header); err != nil {
				return
			}
		}
	}

	done := r.Context().Done()
	_ = streamer.WriteBody(done, out, cadence.WriteOptions{
		ICYMetaInt: icyMetaInt,
		Metadata:   b.coord.ICYTitleFor(streamID),
	})
}

func (b *Boundary) handleStats(w http.ResponseWriter, r *http.Request) error {
	streamID := chi.URLParam(r, "streamID")
	stats, ok := b.coord.Stats(streamID)
	if !ok {
		return apperrors.NewNotFoundError("stream not found")
	}
	return api.WriteResource(w, http.StatusOK, map[string]any{
		"streamId":          streamID,
		"epochId":           stats.EpochID,
		"ringDepthMs":       stats.DepthMs,
		"framesEmitted":     stats.FramesEmitted,
		"silenceEmitted":    stats.SilenceEmitted,
		"backpressureDrops": stats.BackpressureDrops,
	})
}

func (b *Boundary) isKnownSpeaker(ip string) bool {
	if ip == "" {
		return false
	}
	snap := b.topo.Snapshot()
	for _, sp := range snap.Speakers {
		if sp.IP == ip {
			return true
		}
	}
	return false
}

func splitStreamFile(file string) (streamID, ext string, ok bool) {
	idx := strings.LastIndex(file, ".")
	if idx <= 0 || idx == len(file)-1 {
		return "", "", false
	}
	return file[:idx], file[idx+1:], true
}

func requestIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type flushingWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (fw flushingWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if err == nil && fw.f != nil {
		fw.f.Flush()
	}
	return n, err
}
