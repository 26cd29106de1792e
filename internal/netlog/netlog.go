// Package netlog renders Ethernet frames as human-readable Trace-level log
// output: a one-line protocol summary plus a 16-bytes-per-line hex/ASCII
// dump, the same two pieces original_source/src/c/log.c's chilog_frame and
// chilog_hex produce for every frame a router sees or sends.
package netlog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chirouter-go/chirouter/internal/wire/arp"
	"github.com/chirouter-go/chirouter/internal/wire/ethernet"
	"github.com/chirouter-go/chirouter/internal/wire/icmpv4"
	"github.com/chirouter-go/chirouter/internal/wire/ipv4"
)

// Summary renders a one-line best-effort protocol breakdown of raw, an
// Ethernet frame. Parse failures at any layer are reported inline rather
// than discarded, so a malformed frame still produces useful Trace output.
func Summary(raw []byte) string {
	eth, err := ethernet.NewFrame(raw)
	if err != nil {
		return fmt.Sprintf("ethernet: %v (len=%d)", err, len(raw))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "eth src=%s dst=%s type=%s", eth.Source(), eth.Destination(), eth.EtherType())

	switch eth.EtherType() {
	case ethernet.TypeARP:
		pkt, err := arp.NewPacket(eth.Payload())
		if err != nil {
			fmt.Fprintf(&b, " | arp: %v", err)
			break
		}
		fmt.Fprintf(&b, " | arp op=%s sha=%s spa=%s tha=%s tpa=%s",
			pkt.Operation(), pkt.SenderHardwareAddr(), addrString(pkt.SenderProtocolAddr()),
			pkt.TargetHardwareAddr(), addrString(pkt.TargetProtocolAddr()))

	case ethernet.TypeIPv4:
		hdr, err := ipv4.NewHeader(eth.Payload())
		if err != nil {
			fmt.Fprintf(&b, " | ipv4: %v", err)
			break
		}
		fmt.Fprintf(&b, " | ipv4 src=%s dst=%s proto=%d ttl=%d len=%d",
			addrString(hdr.Source()), addrString(hdr.Destination()), hdr.Protocol(), hdr.TTL(), hdr.TotalLength())

		if hdr.Protocol() == ipv4.ProtoICMP {
			msg, err := icmpv4.NewMessage(hdr.Payload())
			if err != nil {
				fmt.Fprintf(&b, " | icmp: %v", err)
				break
			}
			fmt.Fprintf(&b, " | icmp type=%d code=%d", msg.Type(), msg.Code())
		}
	}
	return b.String()
}

func addrString(a [4]byte) string {
	return strconv.Itoa(int(a[0])) + "." + strconv.Itoa(int(a[1])) + "." +
		strconv.Itoa(int(a[2])) + "." + strconv.Itoa(int(a[3]))
}

// HexDump renders data as a 16-bytes-per-line offset/hex/ASCII dump.
func HexDump(data []byte) string {
	var b strings.Builder
	for i := 0; i < len(data); i += 16 {
		end := i + 16
		if end > len(data) {
			end = len(data)
		}
		chunk := data[i:end]

		fmt.Fprintf(&b, "  %04x ", i)
		for j := 0; j < 16; j++ {
			if j < len(chunk) {
				fmt.Fprintf(&b, " %02x", chunk[j])
			} else {
				b.WriteString("   ")
			}
		}
		b.WriteString("  ")
		for _, c := range chunk {
			if c < 0x20 || c > 0x7e {
				b.WriteByte('.')
			} else {
				b.WriteByte(c)
			}
		}
		if end < len(data) {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
