package gena

import (
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Router receives parsed NOTIFY events. internal/eventrouter implements
// this.
type Router interface {
	Route(event NotifyEvent)
}

// CallbackHandler serves NOTIFY requests from Sonos devices. It is a plain
// http.Handler served on its own callback listener rather than through chi,
// since NOTIFY isn't one of chi's known HTTP methods.
type CallbackHandler struct {
	manager *Manager
	router  Router
}

// NewCallbackHandler builds a handler that resolves each NOTIFY's
// callback-path token against manager and forwards parsed events to router.
func NewCallbackHandler(manager *Manager, router Router) *CallbackHandler {
	return &CallbackHandler{manager: manager, router: router}
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != "NOTIFY" {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	nt := r.Header.Get("NT")
	nts := r.Header.Get("NTS")
	if nt != "upnp:event" || nts != "upnp:propchange" {
		http.Error(w, "bad notify", http.StatusBadRequest)
		return
	}

	token := strings.TrimPrefix(r.URL.Path, "/gena/")
	if token == "" || token == r.URL.Path {
		http.Error(w, "unknown token", http.StatusPreconditionFailed)
		return
	}
	sub, ok := h.manager.ByToken(token)
	if !ok {
		// A token that resolves to no live subscription means the device is
		// notifying against a subscription we already dropped (or never
		// issued); 412 tells it to stop, per UPnP GENA.
		http.Error(w, "unknown token", http.StatusPreconditionFailed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	sid := r.Header.Get("SID")
	if sid == "" {
		sid = sub.SID
	}
	seq, _ := strconv.Atoi(r.Header.Get("SEQ"))
	h.router.Route(NotifyEvent{
		SID:         sid,
		SEQ:         seq,
		ServiceType: sub.ServiceType,
		DeviceIP:    sub.DeviceIP,
		RawBody:     body,
	})

	w.WriteHeader(http.StatusOK)
}
