package netlog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chirouter-go/chirouter/internal/wire/arp"
	"github.com/chirouter-go/chirouter/internal/wire/ethernet"
	"github.com/chirouter-go/chirouter/internal/wire/ipv4"
)

func TestSummaryTooShortEthernet(t *testing.T) {
	s := Summary([]byte{1, 2, 3})
	assert.Contains(t, s, "ethernet:")
}

func TestSummaryARPRequest(t *testing.T) {
	buf := make([]byte, ethernet.HeaderLen+arp.HeaderLen)
	eth, err := ethernet.NewFrame(buf)
	require.NoError(t, err)
	eth.SetDestination(ethernet.Broadcast)
	eth.SetSource(ethernet.Addr{1, 2, 3, 4, 5, 6})
	eth.SetEtherType(ethernet.TypeARP)

	pkt, err := arp.NewPacket(eth.Payload())
	require.NoError(t, err)
	pkt.FillEthernetIPv4Header()
	pkt.SetOperation(arp.OpRequest)
	pkt.SetSender(ethernet.Addr{1, 2, 3, 4, 5, 6}, [4]byte{10, 0, 0, 1})
	pkt.SetTarget(ethernet.Addr{}, [4]byte{10, 0, 0, 2})

	s := Summary(buf)
	assert.Contains(t, s, "arp op=request")
	assert.Contains(t, s, "spa=10.0.0.1")
	assert.Contains(t, s, "tpa=10.0.0.2")
}

func TestSummaryIPv4ICMP(t *testing.T) {
	ipLen := 20 + 8
	buf := make([]byte, ethernet.HeaderLen+ipLen)
	eth, err := ethernet.NewFrame(buf)
	require.NoError(t, err)
	eth.SetEtherType(ethernet.TypeIPv4)

	hdr, err := ipv4.NewHeader(eth.Payload())
	require.NoError(t, err)
	hdr.SetVersionIHL(4, 5)
	hdr.SetTotalLength(uint16(ipLen))
	hdr.SetTTL(64)
	hdr.SetProtocol(ipv4.ProtoICMP)
	hdr.SetSource([4]byte{192, 168, 1, 1})
	hdr.SetDestination([4]byte{192, 168, 1, 2})

	s := Summary(buf)
	assert.Contains(t, s, "ipv4 src=192.168.1.1 dst=192.168.1.2")
	assert.Contains(t, s, "icmp type=")
}

func TestHexDumpFormatsSixteenBytesPerLine(t *testing.T) {
	data := make([]byte, 18)
	for i := range data {
		data[i] = byte(i)
	}
	out := HexDump(data)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "0000")
	assert.Contains(t, lines[1], "0010")
}
