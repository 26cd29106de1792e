package icmpbuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chirouter-go/chirouter/internal/wire/ethernet"
	"github.com/chirouter-go/chirouter/internal/wire/icmpv4"
	"github.com/chirouter-go/chirouter/internal/wire/ipv4"
)

var (
	routerMAC = ethernet.Addr{0, 0, 0, 0, 0, 1}
	hostMAC   = ethernet.Addr{0, 0, 0, 0, 0, 2}
	routerIP  = [4]byte{10, 0, 0, 1}
	hostIP    = [4]byte{10, 0, 0, 2}
)

func parse(t *testing.T, frame []byte) (ethernet.Frame, ipv4.Header, icmpv4.Message) {
	t.Helper()
	eth, err := ethernet.NewFrame(frame)
	require.NoError(t, err)
	ip, err := ipv4.NewHeader(eth.Payload())
	require.NoError(t, err)
	msg, err := icmpv4.NewMessage(ip.Payload())
	require.NoError(t, err)
	return eth, ip, msg
}

func TestEchoReply(t *testing.T) {
	payload := []byte("ping-data")
	frame := EchoReply(routerMAC, hostMAC, routerIP, hostIP, 0xabcd, 42, payload)

	eth, ip, msg := parse(t, frame)
	assert.Equal(t, routerMAC, eth.Source())
	assert.Equal(t, hostMAC, eth.Destination())
	assert.Equal(t, routerIP, ip.Source())
	assert.Equal(t, hostIP, ip.Destination())
	assert.True(t, ip.ValidChecksum())
	assert.Equal(t, uint8(DefaultTTL), ip.TTL())
	assert.Equal(t, icmpv4.TypeEchoReply, msg.Type())
	assert.Equal(t, uint16(0xabcd), msg.EchoIdentifier())
	assert.Equal(t, uint16(42), msg.EchoSequence())
	assert.Equal(t, payload, msg.EchoData())
	assert.Equal(t, msg.ComputeChecksum(), msg.Checksum())
}

func buildOriginal(t *testing.T) ipv4.Header {
	t.Helper()
	buf := make([]byte, ipv4.MinHeaderLen+16)
	h, err := ipv4.NewHeader(buf)
	require.NoError(t, err)
	h.SetVersionIHL(4, 5)
	h.SetTotalLength(uint16(len(buf)))
	h.SetTTL(1)
	h.SetProtocol(ipv4.ProtoUDP)
	h.SetSource(hostIP)
	h.SetDestination([4]byte{8, 8, 8, 8})
	for i := range h.Payload() {
		h.Payload()[i] = byte(i)
	}
	return h
}

func TestExcerptCapsAtEightBytesOfPayload(t *testing.T) {
	orig := buildOriginal(t)
	excerpt := Excerpt(orig)
	assert.Equal(t, orig.HeaderLen()+8, len(excerpt))
	assert.Equal(t, orig.RawData()[:orig.HeaderLen()+8], excerpt)
}

func TestDestUnreachableCarriesExcerpt(t *testing.T) {
	orig := buildOriginal(t)
	excerpt := Excerpt(orig)
	frame := DestUnreachable(icmpv4.CodePortUnreachable, routerMAC, hostMAC, routerIP, hostIP, excerpt)

	_, ip, msg := parse(t, frame)
	assert.True(t, ip.ValidChecksum())
	assert.Equal(t, icmpv4.TypeDestUnreachable, msg.Type())
	assert.Equal(t, uint8(icmpv4.CodePortUnreachable), msg.Code())
	assert.Equal(t, excerpt, msg.Body()[icmpv4.ErrorBodyPrefixLen:])
}

func TestTimeExceeded(t *testing.T) {
	orig := buildOriginal(t)
	excerpt := Excerpt(orig)
	frame := TimeExceeded(routerMAC, hostMAC, routerIP, hostIP, excerpt)

	_, ip, msg := parse(t, frame)
	assert.True(t, ip.ValidChecksum())
	assert.Equal(t, icmpv4.TypeTimeExceeded, msg.Type())
	assert.Equal(t, icmpv4.CodeTTLExceededInTransit, msg.Code())
}
