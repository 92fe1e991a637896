package eventrouter

import (
	"bytes"
	"encoding/xml"
	"html"
	"strconv"
	"strings"
)

// propertySet mirrors the outer GENA NOTIFY body envelope.
type propertySet struct {
	XMLName    xml.Name `xml:"propertyset"`
	Properties []struct {
		LastChange     string `xml:"LastChange"`
		ZoneGroupState string `xml:"ZoneGroupState"`
	} `xml:"property"`
}

// parseBody dispatches a raw NOTIFY body to the right per-service parser
// based on the subscription's service type URN.
func parseBody(serviceType string, body []byte) (Kind, *AVTransportEvent, *RenderingControlEvent, *ZoneGroupTopologyEvent) {
	var set propertySet
	if err := xml.Unmarshal(body, &set); err != nil || len(set.Properties) == 0 {
		return -1, nil, nil, nil
	}

	switch {
	case strings.Contains(serviceType, "AVTransport"):
		inner := html.UnescapeString(set.Properties[0].LastChange)
		return KindAVTransport, parseAVTransportLastChange(inner), nil, nil
	case strings.Contains(serviceType, "RenderingControl"):
		inner := html.UnescapeString(set.Properties[0].LastChange)
		return KindRenderingControl, nil, parseRenderingControlLastChange(inner), nil
	case strings.Contains(serviceType, "ZoneGroupTopology"):
		raw := set.Properties[0].ZoneGroupState
		if raw == "" {
			raw = set.Properties[0].LastChange
		}
		return KindZoneGroupTopology, nil, nil, &ZoneGroupTopologyEvent{RawZoneGroupState: html.UnescapeString(raw)}
	default:
		return -1, nil, nil, nil
	}
}

// lastChangeValAttrs extracts every <ElementName val="..."/> pair from an
// inner LastChange document, the shape Sonos uses for both AVTransport and
// RenderingControl events. RenderingControl elements are further qualified
// by a channel attribute (Master/LF/RF); only the Master channel (or an
// unqualified element, as AVTransport uses) is kept.
func lastChangeValAttrs(innerXML string) map[string]string {
	result := make(map[string]string)
	decoder := xml.NewDecoder(bytes.NewReader([]byte(innerXML)))
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		var val, channel string
		for _, attr := range se.Attr {
			switch attr.Name.Local {
			case "val":
				val = attr.Value
			case "channel":
				channel = attr.Value
			}
		}
		if val == "" {
			continue
		}
		if channel != "" && channel != "Master" {
			continue
		}
		result[se.Name.Local] = val
	}
	return result
}

func parseAVTransportLastChange(innerXML string) *AVTransportEvent {
	vals := lastChangeValAttrs(innerXML)
	if len(vals) == 0 {
		return nil
	}
	return &AVTransportEvent{
		TransportState:  vals["TransportState"],
		CurrentTrackURI: vals["CurrentTrackURI"],
		EnqueuedURI:     vals["EnqueuedTransportURI"],
		AVTransportURI:  vals["AVTransportURI"],
	}
}

func parseRenderingControlLastChange(innerXML string) *RenderingControlEvent {
	vals := lastChangeValAttrs(innerXML)
	if len(vals) == 0 {
		return nil
	}
	event := &RenderingControlEvent{}
	if v, ok := vals["Volume"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			event.Volume = n
			event.HasVolume = true
		}
	}
	if v, ok := vals["Mute"]; ok {
		event.Mute = v == "1" || strings.EqualFold(v, "true")
		event.HasMute = true
	}
	return event
}
