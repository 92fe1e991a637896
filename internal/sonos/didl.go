// Package sonos holds small Sonos-protocol helpers shared across components
// that don't warrant their own package (DIDL-Lite metadata construction,
// x-rincon URI helpers).
package sonos

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// StreamProtocolInfo returns the protocolInfo value DIDL-Lite expects for a
// given stream extension, matching what Sonos needs to select a decoder.
func StreamProtocolInfo(ext string) string {
	switch strings.ToLower(ext) {
	case "mp3":
		return "http-get:*:audio/mpeg:*"
	case "aac":
		return "http-get:*:audio/aac:*"
	case "ogg":
		return "http-get:*:audio/ogg:*"
	case "flac":
		return "http-get:*:audio/flac:*"
	default:
		return "http-get:*:audio/wav:*"
	}
}

// BuildStreamMetadata builds the minimal DIDL-Lite item Sonos requires in
// SetAVTransportURI's CurrentURIMetaData for a live stream: an audio
// broadcast item pointing back at the stream URL, so coordinators that
// re-query queue metadata still resolve to the correct resource.
func BuildStreamMetadata(streamID, title, streamURL, ext string) string {
	if title == "" {
		title = "Live Stream"
	}
	item := fmt.Sprintf(
		`<item id="%s" parentID="-1" restricted="1">`+
			`<dc:title>%s</dc:title>`+
			`<upnp:class>object.item.audioItem.audioBroadcast</upnp:class>`+
			`<res protocolInfo="%s">%s</res>`+
			`</item>`,
		escape(streamID), escape(title), escape(StreamProtocolInfo(ext)), escape(streamURL),
	)
	return `<DIDL-Lite xmlns:dc="http://purl.org/dc/elements/1.1/" ` +
		`xmlns:upnp="urn:schemas-upnp-org:metadata-1-0/upnp/" ` +
		`xmlns="urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/">` + item + `</DIDL-Lite>`
}

// RinconURI returns the x-rincon URI that joins a speaker to the group
// coordinated by the given Sonos UUID.
func RinconURI(coordinatorUUID string) string {
	return "x-rincon:" + coordinatorUUID
}

func escape(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return s
	}
	return b.String()
}
