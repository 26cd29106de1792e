package engine

import (
	"github.com/chirouter-go/chirouter/internal/iface"
	"github.com/chirouter-go/chirouter/internal/wire/ethernet"
)

// HandleFrame processes one inbound Ethernet frame arriving on ingress, per
// spec.md §4.7. All synchronous emissions complete before HandleFrame
// returns; a frame requiring ARP resolution is withheld instead and
// flushed later by the ARP subsystem.
func (r *Router) HandleFrame(ingress *iface.Interface, raw []byte) {
	eth, err := ethernet.NewFrame(raw)
	if err != nil {
		r.log.WithField("len", len(raw)).Trace("dropping frame shorter than Ethernet header")
		return
	}

	dst := eth.Destination()
	broadcast := dst == ethernet.Broadcast
	if dst.IsMulticast() && !broadcast {
		r.log.Trace("dropping multicast frame")
		return
	}
	if !broadcast && dst != ingress.MAC {
		r.log.WithField("interface", ingress.Name).
			WithField("frame_destination", dst).
			Warn("dropping frame addressed to a different hardware address")
		return
	}

	switch eth.EtherType() {
	case ethernet.TypeARP:
		r.handleARP(ingress, eth)
	case ethernet.TypeIPv4:
		r.handleIPv4(ingress, eth)
	default:
		// Unknown/unsupported ethertype (including IPv6): silently drop,
		// per spec.md §4.7.2.
	}
}
