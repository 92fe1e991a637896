package eventrouter

import (
	"sync"
	"time"

	"github.com/brew-lab/thaumic-cast-sub003/internal/gena"
)

type sidState struct {
	lastSeq      int
	haveBaseline bool
}

// Router implements gena.Router: it gates NOTIFY events by strict
// per-subscription sequence ordering and fans the survivors out to
// subscribers.
type Router struct {
	mu   sync.Mutex
	seqs map[string]*sidState // by SID

	subMu       sync.Mutex
	subscribers map[int]chan Event
	nextSubID   int
}

// NewRouter creates an empty event router.
func NewRouter() *Router {
	return &Router{
		seqs:        make(map[string]*sidState),
		subscribers: make(map[int]chan Event),
	}
}

// ResetSubscription clears the sequence baseline for a SID, so the next
// NOTIFY received under it is accepted unconditionally and establishes a new
// baseline. Call this whenever a subscription is (re)established, since a
// fresh SID always starts its own SEQ space at 0.
func (r *Router) ResetSubscription(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.seqs, sid)
}

// Route implements gena.Router. It is invoked synchronously from the NOTIFY
// HTTP handler goroutine; it must not block, so fan-out sends are
// non-blocking best-effort.
func (r *Router) Route(raw gena.NotifyEvent) {
	if !r.accept(raw.SID, raw.SEQ) {
		return
	}

	kind, transport, rendering, topo := parseBody(raw.ServiceType, raw.RawBody)
	if kind == -1 {
		return
	}

	event := Event{
		Kind:       kind,
		DeviceIP:   raw.DeviceIP,
		SID:        raw.SID,
		SEQ:        raw.SEQ,
		ReceivedAt: time.Now(),
		Transport:  transport,
		Rendering:  rendering,
		Topology:   topo,
	}
	r.broadcast(event)
}

// accept applies strict monotonic sequence gating: the first event seen for
// a SID (after startup, or after a ResetSubscription) is always accepted and
// establishes the baseline; every subsequent event for that SID must carry a
// strictly greater SEQ or it is dropped.
func (r *Router) accept(sid string, seq int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.seqs[sid]
	if !ok {
		r.seqs[sid] = &sidState{lastSeq: seq, haveBaseline: true}
		return true
	}
	if seq <= st.lastSeq {
		return false
	}
	st.lastSeq = seq
	return true
}

// SubscriptionLost implements gena.SubscriptionLostListener: it publishes a
// synthetic subscriptionLost event to every subscriber. Unlike Route, this
// bypasses sequence gating entirely since there is no upstream SEQ to check
// against; the subscription manager calls this at most once per terminal
// failure.
func (r *Router) SubscriptionLost(deviceIP, serviceType string) {
	r.broadcast(Event{
		Kind:        KindSubscriptionLost,
		DeviceIP:    deviceIP,
		ServiceType: serviceType,
		ReceivedAt:  time.Now(),
	})
}

// Subscribe returns a channel of gated, parsed events. The channel is
// buffered by 8; a slow subscriber drops the oldest buffered event rather
// than block the NOTIFY handler.
func (r *Router) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)
	r.subMu.Lock()
	id := r.nextSubID
	r.nextSubID++
	r.subscribers[id] = ch
	r.subMu.Unlock()

	cancel := func() {
		r.subMu.Lock()
		delete(r.subscribers, id)
		r.subMu.Unlock()
		close(ch)
	}
	return ch, cancel
}

func (r *Router) broadcast(event Event) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, ch := range r.subscribers {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- event:
			default:
			}
		}
	}
}
