// Package ipv4 implements the IPv4 header wire format (RFC 791): parsing,
// serialization, field accessors and the Internet checksum. Adapted from
// the teacher stack's ipv4.Frame buffer-view codec, restricted (per the
// router's Non-goals) to IHL=5 headers with no options.
package ipv4

import (
	"encoding/binary"
	"errors"

	"github.com/chirouter-go/chirouter/internal/chksum"
)

// MinHeaderLen is the length in bytes of an IPv4 header with IHL=5 (no options).
const MinHeaderLen = 20

const (
	ProtoICMP = 1
	ProtoTCP  = 6
	ProtoUDP  = 17
)

var (
	errShort    = errors.New("ipv4: buffer shorter than minimum header")
	errTooShort = errors.New("ipv4: total length shorter than header")
	errOversize = errors.New("ipv4: total length exceeds buffer")
)

// Header is a view over an IPv4 header and payload.
type Header struct {
	buf []byte
}

// NewHeader wraps buf as an IPv4 header. Returns an error if buf is shorter
// than MinHeaderLen.
func NewHeader(buf []byte) (Header, error) {
	if len(buf) < MinHeaderLen {
		return Header{}, errShort
	}
	return Header{buf: buf}, nil
}

// RawData returns the header's underlying buffer.
func (h Header) RawData() []byte { return h.buf }

// Version returns the IP version field (should be 4).
func (h Header) Version() uint8 { return h.buf[0] >> 4 }

// IHL returns the header length in 32-bit words.
func (h Header) IHL() uint8 { return h.buf[0] & 0xf }

// HeaderLen returns the header length in bytes, as implied by IHL.
func (h Header) HeaderLen() int { return int(h.IHL()) * 4 }

// SetVersionIHL sets the version and IHL fields.
func (h Header) SetVersionIHL(version, ihl uint8) { h.buf[0] = version<<4 | ihl&0xf }

// ToS returns the type-of-service byte.
func (h Header) ToS() uint8 { return h.buf[1] }

// SetToS sets the type-of-service byte.
func (h Header) SetToS(v uint8) { h.buf[1] = v }

// TotalLength returns the total datagram length in bytes, header + payload.
func (h Header) TotalLength() uint16 { return binary.BigEndian.Uint16(h.buf[2:4]) }

// SetTotalLength sets the total datagram length field.
func (h Header) SetTotalLength(v uint16) { binary.BigEndian.PutUint16(h.buf[2:4], v) }

// ID returns the identification field.
func (h Header) ID() uint16 { return binary.BigEndian.Uint16(h.buf[4:6]) }

// SetID sets the identification field.
func (h Header) SetID(v uint16) { binary.BigEndian.PutUint16(h.buf[4:6], v) }

// FlagsAndFragOffset returns the raw flags+fragment-offset field.
func (h Header) FlagsAndFragOffset() uint16 { return binary.BigEndian.Uint16(h.buf[6:8]) }

// SetFlagsAndFragOffset sets the raw flags+fragment-offset field.
func (h Header) SetFlagsAndFragOffset(v uint16) { binary.BigEndian.PutUint16(h.buf[6:8], v) }

// TTL returns the time-to-live field.
func (h Header) TTL() uint8 { return h.buf[8] }

// SetTTL sets the time-to-live field.
func (h Header) SetTTL(v uint8) { h.buf[8] = v }

// Protocol returns the upper-layer protocol number (1=ICMP, 6=TCP, 17=UDP).
func (h Header) Protocol() uint8 { return h.buf[9] }

// SetProtocol sets the upper-layer protocol number.
func (h Header) SetProtocol(v uint8) { h.buf[9] = v }

// Checksum returns the header checksum field.
func (h Header) Checksum() uint16 { return binary.BigEndian.Uint16(h.buf[10:12]) }

// SetChecksum sets the header checksum field.
func (h Header) SetChecksum(v uint16) { binary.BigEndian.PutUint16(h.buf[10:12], v) }

// Source returns the source IPv4 address.
func (h Header) Source() [4]byte {
	var a [4]byte
	copy(a[:], h.buf[12:16])
	return a
}

// SetSource sets the source IPv4 address.
func (h Header) SetSource(a [4]byte) { copy(h.buf[12:16], a[:]) }

// Destination returns the destination IPv4 address.
func (h Header) Destination() [4]byte {
	var a [4]byte
	copy(a[:], h.buf[16:20])
	return a
}

// SetDestination sets the destination IPv4 address.
func (h Header) SetDestination(a [4]byte) { copy(h.buf[16:20], a[:]) }

// Payload returns the bytes following the IPv4 header, up to TotalLength.
func (h Header) Payload() []byte {
	hl := h.HeaderLen()
	tl := int(h.TotalLength())
	if tl > len(h.buf) {
		tl = len(h.buf)
	}
	return h.buf[hl:tl]
}

// ValidateSize checks the header's declared lengths against the buffer.
func (h Header) ValidateSize() error {
	if h.IHL() < 5 {
		return errors.New("ipv4: IHL below minimum of 5")
	}
	tl := h.TotalLength()
	if int(tl) < h.HeaderLen() {
		return errTooShort
	}
	if int(tl) > len(h.buf) {
		return errOversize
	}
	return nil
}

// ComputeChecksum computes the Internet checksum of the header (IHL*4
// bytes, options included, if any) treating the checksum field as zero.
func (h Header) ComputeChecksum() uint16 {
	hl := h.HeaderLen()
	return chksum.Of(h.buf[:hl], 10)
}

// ValidChecksum reports whether the header's stored checksum matches the
// one computed over its current contents.
func (h Header) ValidChecksum() bool {
	return h.ComputeChecksum() == h.Checksum()
}
