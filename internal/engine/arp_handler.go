package engine

import (
	"github.com/chirouter-go/chirouter/internal/iface"
	"github.com/chirouter-go/chirouter/internal/wire/arp"
	"github.com/chirouter-go/chirouter/internal/wire/ethernet"
)

// handleARP implements spec.md §4.7.a.
func (r *Router) handleARP(ingress *iface.Interface, eth ethernet.Frame) {
	pkt, err := arp.NewPacket(eth.Payload())
	if err != nil || !pkt.ValidForIPv4() {
		r.log.Trace("dropping malformed or unsupported ARP packet")
		return
	}

	switch pkt.Operation() {
	case arp.OpRequest:
		if pkt.TargetProtocolAddr() != ingress.IP {
			return // not asking for one of our addresses, ignore
		}
		r.sendARPReply(ingress, pkt)

	case arp.OpReply:
		r.ARP.HandleReply(pkt.SenderProtocolAddr(), pkt.SenderHardwareAddr())

	default:
		r.log.WithField("opcode", pkt.Operation()).Trace("dropping ARP packet with unknown opcode")
	}
}

func (r *Router) sendARPReply(ingress *iface.Interface, req arp.Packet) {
	buf := make([]byte, ethernet.HeaderLen+arp.HeaderLen)

	ethOut, _ := ethernet.NewFrame(buf)
	ethOut.SetDestination(req.SenderHardwareAddr())
	ethOut.SetSource(ingress.MAC)
	ethOut.SetEtherType(ethernet.TypeARP)

	pktOut, _ := arp.NewPacket(buf[ethernet.HeaderLen:])
	pktOut.FillEthernetIPv4Header()
	pktOut.SetOperation(arp.OpReply)
	pktOut.SetSender(ingress.MAC, ingress.IP)
	pktOut.SetTarget(req.SenderHardwareAddr(), req.SenderProtocolAddr())

	r.sink.Send(ingress, buf)
}
