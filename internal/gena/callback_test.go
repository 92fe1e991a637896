package gena

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type capturingRouter struct {
	events []NotifyEvent
}

func (c *capturingRouter) Route(event NotifyEvent) {
	c.events = append(c.events, event)
}

func seededManager(t *testing.T) (*Manager, *Subscription) {
	t.Helper()
	m := NewManager(DefaultManagerConfig(), NewClient(time.Second), nil)
	sub := &Subscription{
		SID:         "uuid:sub-1",
		Token:       "tok-abc",
		DeviceIP:    "10.0.0.5",
		ServiceType: AVTransportEndpoint.NT,
		ServicePath: AVTransportEndpoint.EventPath,
	}
	m.mu.Lock()
	m.subscriptions[sub.SID] = sub
	m.byToken[sub.Token] = sub
	m.byDeviceService[key(sub.DeviceIP, sub.ServiceType)] = sub
	m.mu.Unlock()
	return m, sub
}

func TestCallbackHandler_RoutesKnownToken(t *testing.T) {
	m, sub := seededManager(t)
	router := &capturingRouter{}
	h := NewCallbackHandler(m, router)

	body := `<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0"><e:property><LastChange>x</LastChange></e:property></e:propertyset>`
	r := httptest.NewRequest("NOTIFY", "/gena/tok-abc", strings.NewReader(body))
	r.Header.Set("NT", "upnp:event")
	r.Header.Set("NTS", "upnp:propchange")
	r.Header.Set("SID", sub.SID)
	r.Header.Set("SEQ", "7")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	require.Equal(t, 200, w.Code)
	require.Len(t, router.events, 1)
	require.Equal(t, sub.SID, router.events[0].SID)
	require.Equal(t, 7, router.events[0].SEQ)
	require.Equal(t, "10.0.0.5", router.events[0].DeviceIP)
	require.Equal(t, AVTransportEndpoint.NT, router.events[0].ServiceType)
}

func TestCallbackHandler_UnknownTokenIs412(t *testing.T) {
	m, _ := seededManager(t)
	router := &capturingRouter{}
	h := NewCallbackHandler(m, router)

	r := httptest.NewRequest("NOTIFY", "/gena/tok-bogus", strings.NewReader("<x/>"))
	r.Header.Set("NT", "upnp:event")
	r.Header.Set("NTS", "upnp:propchange")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	require.Equal(t, 412, w.Code)
	require.Empty(t, router.events)
}

func TestCallbackHandler_RejectsNonNotifyMethod(t *testing.T) {
	m, _ := seededManager(t)
	h := NewCallbackHandler(m, &capturingRouter{})

	r := httptest.NewRequest("GET", "/gena/tok-abc", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	require.Equal(t, 405, w.Code)
}

func TestCallbackHandler_RejectsMalformedEventHeaders(t *testing.T) {
	m, _ := seededManager(t)
	h := NewCallbackHandler(m, &capturingRouter{})

	r := httptest.NewRequest("NOTIFY", "/gena/tok-abc", strings.NewReader("<x/>"))
	// Missing NT/NTS headers.
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	require.Equal(t, 400, w.Code)
}
