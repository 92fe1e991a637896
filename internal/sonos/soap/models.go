package soap

// TransportInfo mirrors Sonos GetTransportInfo response.
type TransportInfo struct {
	CurrentTransportState  string
	CurrentTransportStatus string
	CurrentSpeed           string
}

// PositionInfo mirrors Sonos GetPositionInfo response.
type PositionInfo struct {
	Track         int
	TrackDuration string
	TrackMetaData string
	TrackURI      string
	RelTime       string
	AbsTime       string
}

// VolumeInfo mirrors Sonos GetVolume/GetGroupVolume response.
type VolumeInfo struct {
	CurrentVolume int
}

// MuteInfo mirrors Sonos GetMute/GetGroupMute response.
type MuteInfo struct {
	CurrentMute bool
}

// ZoneGroupState mirrors GetZoneGroupState result (minimal subset needed).
type ZoneGroupState struct {
	Groups []ZoneGroup
}

// ZoneGroup represents a Sonos group.
type ZoneGroup struct {
	ID          string
	Coordinator string
	Members     []ZoneMember
}

// ZoneMember represents a member device in a group.
type ZoneMember struct {
	UUID          string
	ZoneName      string
	Location      string
	IsCoordinator bool
	IsVisible     bool
	IsSatellite   bool
	IsSubwoofer   bool
}
