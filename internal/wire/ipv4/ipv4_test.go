package ipv4

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildHeader(t *testing.T, payloadLen int) Header {
	t.Helper()
	buf := make([]byte, MinHeaderLen+payloadLen)
	h, err := NewHeader(buf)
	require.NoError(t, err)
	h.SetVersionIHL(4, 5)
	h.SetTotalLength(uint16(MinHeaderLen + payloadLen))
	h.SetTTL(64)
	h.SetProtocol(ProtoUDP)
	h.SetSource([4]byte{10, 0, 0, 1})
	h.SetDestination([4]byte{10, 0, 0, 2})
	h.SetChecksum(0)
	h.SetChecksum(h.ComputeChecksum())
	return h
}

func TestNewHeaderTooShort(t *testing.T) {
	_, err := NewHeader(make([]byte, MinHeaderLen-1))
	require.Error(t, err)
}

func TestHeaderRoundTrip(t *testing.T) {
	h := buildHeader(t, 8)
	assert.Equal(t, uint8(4), h.Version())
	assert.Equal(t, uint8(5), h.IHL())
	assert.Equal(t, 20, h.HeaderLen())
	assert.Equal(t, uint8(64), h.TTL())
	assert.Equal(t, uint8(ProtoUDP), h.Protocol())
	assert.Equal(t, [4]byte{10, 0, 0, 1}, h.Source())
	assert.Equal(t, [4]byte{10, 0, 0, 2}, h.Destination())
	assert.Len(t, h.Payload(), 8)
}

func TestValidChecksum(t *testing.T) {
	h := buildHeader(t, 0)
	assert.True(t, h.ValidChecksum())

	h.SetTTL(h.TTL() - 1) // mutate without recomputing
	assert.False(t, h.ValidChecksum())
}

func TestValidateSizeRejectsShortTotalLength(t *testing.T) {
	h := buildHeader(t, 0)
	h.SetTotalLength(4)
	assert.ErrorIs(t, h.ValidateSize(), errTooShort)
}

func TestValidateSizeRejectsOversizeTotalLength(t *testing.T) {
	h := buildHeader(t, 0)
	h.SetTotalLength(9000)
	assert.ErrorIs(t, h.ValidateSize(), errOversize)
}

func TestValidateSizeRejectsLowIHL(t *testing.T) {
	h := buildHeader(t, 0)
	h.SetVersionIHL(4, 4)
	assert.Error(t, h.ValidateSize())
}

func TestPayloadClampedToTotalLength(t *testing.T) {
	buf := make([]byte, MinHeaderLen+100)
	h, _ := NewHeader(buf)
	h.SetVersionIHL(4, 5)
	h.SetTotalLength(uint16(MinHeaderLen + 10)) // declares less than the buffer holds
	assert.Len(t, h.Payload(), 10)
}
