// Package icmpbuild synthesizes complete outbound Ethernet frames carrying
// ICMPv4 Echo Reply and error messages (spec.md §4.6). It has no knowledge
// of the ARP cache, routing table or controller — callers (the forwarding
// engine and the ARP timer task) supply every address involved, which keeps
// this package usable from both without creating an import cycle between
// them.
package icmpbuild

import (
	"github.com/chirouter-go/chirouter/internal/wire/ethernet"
	"github.com/chirouter-go/chirouter/internal/wire/icmpv4"
	"github.com/chirouter-go/chirouter/internal/wire/ipv4"
)

// DefaultTTL is the fixed TTL stamped on every router-originated ICMP
// message (spec.md §4.6).
const DefaultTTL = 64

// maxErrorPayload caps how many payload bytes of the offending datagram,
// following its IPv4 header, are embedded in Destination Unreachable and
// Time Exceeded messages.
const maxErrorPayload = 8

// Excerpt returns the "offending datagram" bytes embedded in an ICMP error
// message: the original IPv4 header, followed by up to the first 8 bytes
// of its payload.
func Excerpt(orig ipv4.Header) []byte {
	hl := orig.HeaderLen()
	raw := orig.RawData()
	end := hl + maxErrorPayload
	avail := int(orig.TotalLength())
	if avail < len(raw) {
		if end > avail {
			end = avail
		}
	}
	if end > len(raw) {
		end = len(raw)
	}
	out := make([]byte, end)
	copy(out, raw[:end])
	return out
}

// assemble builds a complete Ethernet+IPv4+ICMP frame. icmpBody is
// everything following the common 4-byte ICMP header, already laid out;
// the type, code and checksum fields of that header are filled in here.
func assemble(ethSrc, ethDst ethernet.Addr, ipSrc, ipDst [4]byte, icmpType icmpv4.Type, icmpCode uint8, icmpBody []byte) []byte {
	icmpLen := icmpv4.HeaderLen + len(icmpBody)
	totalLen := ipv4.MinHeaderLen + icmpLen
	buf := make([]byte, ethernet.HeaderLen+totalLen)

	eth, _ := ethernet.NewFrame(buf)
	eth.SetDestination(ethDst)
	eth.SetSource(ethSrc)
	eth.SetEtherType(ethernet.TypeIPv4)

	ipBuf := buf[ethernet.HeaderLen:]
	ipHdr, _ := ipv4.NewHeader(ipBuf)
	ipHdr.SetVersionIHL(4, 5)
	ipHdr.SetToS(0)
	ipHdr.SetTotalLength(uint16(totalLen))
	ipHdr.SetID(0)
	ipHdr.SetFlagsAndFragOffset(0)
	ipHdr.SetTTL(DefaultTTL)
	ipHdr.SetProtocol(ipv4.ProtoICMP)
	ipHdr.SetSource(ipSrc)
	ipHdr.SetDestination(ipDst)
	ipHdr.SetChecksum(0)
	ipHdr.SetChecksum(ipHdr.ComputeChecksum())

	icmpBuf := ipBuf[ipv4.MinHeaderLen:]
	msg, _ := icmpv4.NewMessage(icmpBuf)
	msg.SetType(icmpType)
	msg.SetCode(icmpCode)
	copy(msg.Body(), icmpBody)
	msg.SetChecksum(0)
	msg.SetChecksum(msg.ComputeChecksum())

	return buf
}

// EchoReply builds an Echo Reply datagram echoing id, seq and payload
// verbatim, sourced from routerIP/routerMAC and addressed back to the
// original requester.
func EchoReply(routerMAC, requesterMAC ethernet.Addr, routerIP, requesterIP [4]byte, id, seq uint16, payload []byte) []byte {
	body := make([]byte, icmpv4.EchoHeaderLen+len(payload))
	body[0], body[1] = byte(id>>8), byte(id)
	body[2], body[3] = byte(seq>>8), byte(seq)
	copy(body[icmpv4.EchoHeaderLen:], payload)
	return assemble(routerMAC, requesterMAC, routerIP, requesterIP, icmpv4.TypeEchoReply, 0, body)
}

// DestUnreachable builds a Destination Unreachable message (net/host/port,
// selected by code) carrying an excerpt of the offending datagram.
func DestUnreachable(code icmpv4.CodeDestUnreachable, ingressMAC, senderMAC ethernet.Addr, ingressIP, senderIP [4]byte, excerpt []byte) []byte {
	body := make([]byte, icmpv4.ErrorBodyPrefixLen+len(excerpt))
	copy(body[icmpv4.ErrorBodyPrefixLen:], excerpt)
	return assemble(ingressMAC, senderMAC, ingressIP, senderIP, icmpv4.TypeDestUnreachable, uint8(code), body)
}

// TimeExceeded builds a Time Exceeded (TTL exceeded in transit) message
// carrying an excerpt of the offending datagram.
func TimeExceeded(ingressMAC, senderMAC ethernet.Addr, ingressIP, senderIP [4]byte, excerpt []byte) []byte {
	body := make([]byte, icmpv4.ErrorBodyPrefixLen+len(excerpt))
	copy(body[icmpv4.ErrorBodyPrefixLen:], excerpt)
	return assemble(ingressMAC, senderMAC, ingressIP, senderIP, icmpv4.TypeTimeExceeded, icmpv4.CodeTTLExceededInTransit, body)
}
