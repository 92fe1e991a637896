// Package volume routes a per-speaker or per-group volume/mute command to
// the correct SOAP target, resolving group commands to the coordinator of
// the zone group currently containing the requested speaker.
package volume

import (
	"context"
	"fmt"

	"github.com/brew-lab/thaumic-cast-sub003/internal/apperrors"
	"github.com/brew-lab/thaumic-cast-sub003/internal/sonos/soap"
	"github.com/brew-lab/thaumic-cast-sub003/internal/topology"
)

// TopologyView is the slice of the topology store this package reads.
type TopologyView interface {
	Snapshot() topology.Snapshot
}

// Router dispatches volume/mute commands.
type Router struct {
	soap     *soap.Client
	topology TopologyView
}

// New creates a Volume Router.
func New(soapClient *soap.Client, topologyStore TopologyView) *Router {
	return &Router{soap: soapClient, topology: topologyStore}
}

func validateVolume(level int) error {
	if level < 0 || level > 100 {
		return apperrors.NewValidationError(fmt.Sprintf("volume %d out of range 0..100", level))
	}
	return nil
}

// target resolves which IP a command should actually be sent to: the
// requested speaker itself, or its zone group's coordinator when group is
// true.
func (r *Router) target(ip string, group bool) string {
	if !group {
		return ip
	}
	snap := r.topology.Snapshot()
	if zg, ok := snap.GroupOf(ip); ok && zg.CoordinatorIP != "" {
		return zg.CoordinatorIP
	}
	return ip
}

// SetVolume sets per-speaker (group=false) or per-group (group=true) volume.
func (r *Router) SetVolume(ctx context.Context, ip string, level int, group bool) error {
	if err := validateVolume(level); err != nil {
		return err
	}
	target := r.target(ip, group)
	if group {
		return r.soap.SetGroupVolume(ctx, target, level)
	}
	return r.soap.SetVolume(ctx, target, level)
}

// GetVolume reads per-speaker or per-group volume.
func (r *Router) GetVolume(ctx context.Context, ip string, group bool) (int, error) {
	target := r.target(ip, group)
	if group {
		info, err := r.soap.GetGroupVolume(ctx, target)
		return info.CurrentVolume, err
	}
	info, err := r.soap.GetVolume(ctx, target)
	return info.CurrentVolume, err
}

// SetMute sets per-speaker or per-group mute state.
func (r *Router) SetMute(ctx context.Context, ip string, mute bool, group bool) error {
	target := r.target(ip, group)
	if group {
		return r.soap.SetGroupMute(ctx, target, mute)
	}
	return r.soap.SetMute(ctx, target, mute)
}

// GetMute reads per-speaker or per-group mute state.
func (r *Router) GetMute(ctx context.Context, ip string, group bool) (bool, error) {
	target := r.target(ip, group)
	if group {
		info, err := r.soap.GetGroupMute(ctx, target)
		return info.CurrentMute, err
	}
	info, err := r.soap.GetMute(ctx, target)
	return info.CurrentMute, err
}
