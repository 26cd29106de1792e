package engine

import (
	"github.com/chirouter-go/chirouter/internal/icmpbuild"
	"github.com/chirouter-go/chirouter/internal/iface"
	"github.com/chirouter-go/chirouter/internal/wire/ethernet"
	"github.com/chirouter-go/chirouter/internal/wire/icmpv4"
	"github.com/chirouter-go/chirouter/internal/wire/ipv4"
)

// handleIPv4 implements spec.md §4.7.b.
func (r *Router) handleIPv4(ingress *iface.Interface, eth ethernet.Frame) {
	ipHdr, err := ipv4.NewHeader(eth.Payload())
	if err != nil {
		r.log.Trace("dropping IPv4 frame shorter than minimum header")
		return
	}
	if ipHdr.Version() != 4 || ipHdr.IHL() != 5 {
		// Only IHL=5 (no options) is accepted for forwarding, per
		// spec.md §4.1 and the no-IP-options Non-goal.
		r.log.Trace("dropping IPv4 datagram with unsupported version/IHL")
		return
	}
	if err := ipHdr.ValidateSize(); err != nil {
		r.log.WithError(err).Trace("dropping IPv4 datagram with inconsistent length fields")
		return
	}
	if !ipHdr.ValidChecksum() {
		r.log.Trace("dropping IPv4 datagram with invalid header checksum")
		return
	}

	if owner, ok := r.Ifaces.Owns(ipHdr.Destination()); ok {
		r.handleLocalDelivery(ingress, owner, eth, ipHdr)
		return
	}
	r.handleForward(ingress, eth, ipHdr)
}

// handleLocalDelivery implements spec.md §4.7.b.3: datagrams addressed to
// one of the router's own interfaces.
func (r *Router) handleLocalDelivery(ingress, owner *iface.Interface, eth ethernet.Frame, ipHdr ipv4.Header) {
	switch ipHdr.Protocol() {
	case ipv4.ProtoICMP:
		msg, err := icmpv4.NewMessage(ipHdr.Payload())
		if err != nil {
			r.log.Trace("dropping malformed ICMP message")
			return
		}
		if msg.Type() != icmpv4.TypeEcho {
			r.log.WithField("type", msg.Type()).Trace("dropping non-echo ICMP addressed to router")
			return
		}
		reply := icmpbuild.EchoReply(owner.MAC, eth.Source(), owner.IP, ipHdr.Source(),
			msg.EchoIdentifier(), msg.EchoSequence(), msg.EchoData())
		r.sink.Send(ingress, reply)

	case ipv4.ProtoTCP, ipv4.ProtoUDP:
		excerpt := icmpbuild.Excerpt(ipHdr)
		reply := icmpbuild.DestUnreachable(icmpv4.CodePortUnreachable,
			ingress.MAC, eth.Source(), ingress.IP, ipHdr.Source(), excerpt)
		r.sink.Send(ingress, reply)

	default:
		r.log.WithField("protocol", ipHdr.Protocol()).Trace("dropping unsupported protocol addressed to router")
	}
}

// handleForward implements spec.md §4.7.b.4: datagrams not addressed to
// the router.
func (r *Router) handleForward(ingress *iface.Interface, eth ethernet.Frame, ipHdr ipv4.Header) {
	if ipHdr.TTL() <= 1 {
		excerpt := icmpbuild.Excerpt(ipHdr)
		reply := icmpbuild.TimeExceeded(ingress.MAC, eth.Source(), ingress.IP, ipHdr.Source(), excerpt)
		r.sink.Send(ingress, reply)
		return
	}

	nextHop, egress, ok := r.Table.Lookup(ipHdr.Destination())
	if !ok {
		excerpt := icmpbuild.Excerpt(ipHdr)
		reply := icmpbuild.DestUnreachable(icmpv4.CodeNetUnreachable,
			ingress.MAC, eth.Source(), ingress.IP, ipHdr.Source(), excerpt)
		r.sink.Send(ingress, reply)
		return
	}

	ipHdr.SetTTL(ipHdr.TTL() - 1)
	ipHdr.SetChecksum(0)
	ipHdr.SetChecksum(ipHdr.ComputeChecksum())

	raw := eth.RawData()
	mac, hit := r.ARP.ResolveOrQueue(nextHop, egress, raw, ingress)
	if !hit {
		// Withheld: the ARP subsystem owns a deep copy now; the timer
		// task or an incoming reply will flush it later.
		return
	}

	eth.SetSource(egress.MAC)
	eth.SetDestination(mac)
	r.sink.Send(egress, raw)
}
