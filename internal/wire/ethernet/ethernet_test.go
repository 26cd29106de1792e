package ethernet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFrameTooShort(t *testing.T) {
	_, err := NewFrame(make([]byte, HeaderLen-1))
	require.Error(t, err)
}

func TestFrameFieldRoundTrip(t *testing.T) {
	buf := make([]byte, HeaderLen+4)
	f, err := NewFrame(buf)
	require.NoError(t, err)

	src := Addr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	dst := Addr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	f.SetSource(src)
	f.SetDestination(dst)
	f.SetEtherType(TypeIPv4)

	assert.Equal(t, src, f.Source())
	assert.Equal(t, dst, f.Destination())
	assert.Equal(t, TypeIPv4, f.EtherType())
	assert.Len(t, f.Payload(), 4)
}

func TestIsBroadcast(t *testing.T) {
	buf := make([]byte, HeaderLen)
	f, _ := NewFrame(buf)
	f.SetDestination(Broadcast)
	assert.True(t, f.IsBroadcast())

	f.SetDestination(Addr{1, 2, 3, 4, 5, 6})
	assert.False(t, f.IsBroadcast())
}

func TestIsMulticast(t *testing.T) {
	assert.True(t, Broadcast.IsMulticast())
	assert.True(t, Addr{0x01, 0, 0, 0, 0, 0}.IsMulticast())
	assert.False(t, Addr{0x02, 0, 0, 0, 0, 0}.IsMulticast())
}

func TestEtherTypeString(t *testing.T) {
	assert.Equal(t, "IPv4", TypeIPv4.String())
	assert.Equal(t, "ARP", TypeARP.String())
	assert.Equal(t, "unknown", EtherType(0x1234).String())
}
