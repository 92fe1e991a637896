package soap

// Service identifies a Sonos UPnP service.
type Service string

const (
	ServiceAVTransport       Service = "AVTransport"
	ServiceRenderingControl  Service = "RenderingControl"
	ServiceGroupRendering    Service = "GroupRenderingControl"
	ServiceZoneGroupTopology Service = "ZoneGroupTopology"
)

var serviceTypes = map[Service]string{
	ServiceAVTransport:       "urn:schemas-upnp-org:service:AVTransport:1",
	ServiceRenderingControl:  "urn:schemas-upnp-org:service:RenderingControl:1",
	ServiceGroupRendering:    "urn:schemas-upnp-org:service:GroupRenderingControl:1",
	ServiceZoneGroupTopology: "urn:schemas-upnp-org:service:ZoneGroupTopology:1",
}

var controlPaths = map[Service]string{
	ServiceAVTransport:       "/MediaRenderer/AVTransport/Control",
	ServiceRenderingControl:  "/MediaRenderer/RenderingControl/Control",
	ServiceGroupRendering:    "/MediaRenderer/GroupRenderingControl/Control",
	ServiceZoneGroupTopology: "/ZoneGroupTopology/Control",
}
