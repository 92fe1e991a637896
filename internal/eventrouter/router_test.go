package eventrouter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brew-lab/thaumic-cast-sub003/internal/gena"
)

func lastChangeBody(inner string) []byte {
	return []byte(`<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0"><e:property><LastChange>` + inner + `</LastChange></e:property></e:propertyset>`)
}

func avTransportInner(state string) string {
	return `&lt;Event xmlns=&quot;urn:schemas-upnp-org:metadata-1-0/AVT/&quot;&gt;&lt;InstanceID val=&quot;0&quot;&gt;&lt;TransportState val=&quot;` + state + `&quot;/&gt;&lt;/InstanceID&gt;&lt;/Event&gt;`
}

func TestRouter_AcceptsFirstEventForNewSID(t *testing.T) {
	r := NewRouter()
	ch, cancel := r.Subscribe()
	defer cancel()

	r.Route(gena.NotifyEvent{
		SID:         "uuid:sub1",
		SEQ:         0,
		ServiceType: "urn:schemas-upnp-org:service:AVTransport:1",
		DeviceIP:    "10.0.0.5",
		RawBody:     lastChangeBody(avTransportInner("PLAYING")),
	})

	event := <-ch
	require.Equal(t, KindAVTransport, event.Kind)
	require.NotNil(t, event.Transport)
	require.Equal(t, "PLAYING", event.Transport.TransportState)
}

func TestRouter_DropsStaleSequence(t *testing.T) {
	r := NewRouter()
	ch, cancel := r.Subscribe()
	defer cancel()

	r.Route(gena.NotifyEvent{SID: "uuid:sub1", SEQ: 5, ServiceType: "urn:schemas-upnp-org:service:AVTransport:1", RawBody: lastChangeBody(avTransportInner("PLAYING"))})
	<-ch

	r.Route(gena.NotifyEvent{SID: "uuid:sub1", SEQ: 3, ServiceType: "urn:schemas-upnp-org:service:AVTransport:1", RawBody: lastChangeBody(avTransportInner("STOPPED"))})

	select {
	case event := <-ch:
		t.Fatalf("expected stale event to be dropped, got %+v", event)
	default:
	}
}

func TestRouter_DropsEqualSequence(t *testing.T) {
	r := NewRouter()
	ch, cancel := r.Subscribe()
	defer cancel()

	r.Route(gena.NotifyEvent{SID: "uuid:sub1", SEQ: 5, ServiceType: "urn:schemas-upnp-org:service:AVTransport:1", RawBody: lastChangeBody(avTransportInner("PLAYING"))})
	<-ch

	r.Route(gena.NotifyEvent{SID: "uuid:sub1", SEQ: 5, ServiceType: "urn:schemas-upnp-org:service:AVTransport:1", RawBody: lastChangeBody(avTransportInner("STOPPED"))})

	select {
	case event := <-ch:
		t.Fatalf("expected duplicate sequence to be dropped, got %+v", event)
	default:
	}
}

func TestRouter_AcceptsIncreasingSequence(t *testing.T) {
	r := NewRouter()
	ch, cancel := r.Subscribe()
	defer cancel()

	r.Route(gena.NotifyEvent{SID: "uuid:sub1", SEQ: 1, ServiceType: "urn:schemas-upnp-org:service:AVTransport:1", RawBody: lastChangeBody(avTransportInner("PLAYING"))})
	<-ch

	r.Route(gena.NotifyEvent{SID: "uuid:sub1", SEQ: 2, ServiceType: "urn:schemas-upnp-org:service:AVTransport:1", RawBody: lastChangeBody(avTransportInner("STOPPED"))})

	event := <-ch
	require.Equal(t, "STOPPED", event.Transport.TransportState)
}

func TestRouter_ResetSubscriptionAcceptsLowerSeqAgain(t *testing.T) {
	r := NewRouter()
	ch, cancel := r.Subscribe()
	defer cancel()

	r.Route(gena.NotifyEvent{SID: "uuid:sub1", SEQ: 9, ServiceType: "urn:schemas-upnp-org:service:AVTransport:1", RawBody: lastChangeBody(avTransportInner("PLAYING"))})
	<-ch

	r.ResetSubscription("uuid:sub1")

	r.Route(gena.NotifyEvent{SID: "uuid:sub1", SEQ: 0, ServiceType: "urn:schemas-upnp-org:service:AVTransport:1", RawBody: lastChangeBody(avTransportInner("STOPPED"))})

	event := <-ch
	require.Equal(t, "STOPPED", event.Transport.TransportState)
}

func TestRouter_DifferentSIDsIndependentSequences(t *testing.T) {
	r := NewRouter()
	ch, cancel := r.Subscribe()
	defer cancel()

	r.Route(gena.NotifyEvent{SID: "uuid:sub1", SEQ: 10, ServiceType: "urn:schemas-upnp-org:service:AVTransport:1", RawBody: lastChangeBody(avTransportInner("PLAYING"))})
	<-ch

	r.Route(gena.NotifyEvent{SID: "uuid:sub2", SEQ: 0, ServiceType: "urn:schemas-upnp-org:service:AVTransport:1", RawBody: lastChangeBody(avTransportInner("STOPPED"))})

	event := <-ch
	require.Equal(t, "STOPPED", event.Transport.TransportState)
}

func TestRouter_SubscriptionLostBypassesSequenceGating(t *testing.T) {
	r := NewRouter()
	ch, cancel := r.Subscribe()
	defer cancel()

	r.SubscriptionLost("10.0.0.5", "urn:schemas-upnp-org:service:AVTransport:1")

	event := <-ch
	require.Equal(t, KindSubscriptionLost, event.Kind)
	require.Equal(t, "10.0.0.5", event.DeviceIP)
	require.Equal(t, "urn:schemas-upnp-org:service:AVTransport:1", event.ServiceType)
}

func TestParseRenderingControlMasterChannelOnly(t *testing.T) {
	inner := `&lt;Event xmlns=&quot;urn:schemas-upnp-org:metadata-1-0/RCS/&quot;&gt;&lt;InstanceID val=&quot;0&quot;&gt;&lt;Volume channel=&quot;LF&quot; val=&quot;70&quot;/&gt;&lt;Volume channel=&quot;Master&quot; val=&quot;42&quot;/&gt;&lt;Mute channel=&quot;Master&quot; val=&quot;0&quot;/&gt;&lt;/InstanceID&gt;&lt;/Event&gt;`

	kind, _, rendering, _ := parseBody("urn:schemas-upnp-org:service:RenderingControl:1", lastChangeBody(inner))

	require.Equal(t, KindRenderingControl, kind)
	require.NotNil(t, rendering)
	require.True(t, rendering.HasVolume)
	require.Equal(t, 42, rendering.Volume)
	require.True(t, rendering.HasMute)
	require.False(t, rendering.Mute)
}
