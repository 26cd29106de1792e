// Package ethernet implements the Ethernet II frame header: parsing,
// serialization and the field accessors the forwarding engine needs.
// Adapted from the teacher stack's ethernet.Frame buffer-view codec,
// trimmed to the no-VLAN, no-802.3-length-field case the router accepts.
package ethernet

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// HeaderLen is the length in bytes of an Ethernet II header.
	HeaderLen = 14
	// AddrLen is the length in bytes of a MAC address.
	AddrLen = 6
)

// EtherType identifies the payload protocol carried by an Ethernet frame.
type EtherType uint16

const (
	TypeIPv4 EtherType = 0x0800
	TypeARP  EtherType = 0x0806
	TypeIPv6 EtherType = 0x86DD
)

func (t EtherType) String() string {
	switch t {
	case TypeIPv4:
		return "IPv4"
	case TypeARP:
		return "ARP"
	case TypeIPv6:
		return "IPv6"
	default:
		return "unknown"
	}
}

var errShort = errors.New("ethernet: frame shorter than header")

// Addr is a 48-bit hardware address.
type Addr [AddrLen]byte

// Broadcast is the all-ones Ethernet broadcast address.
var Broadcast = Addr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// IsMulticast reports whether a is a multicast (including broadcast) address:
// the low-order bit of the first octet is set.
func (a Addr) IsMulticast() bool { return a[0]&0x01 != 0 }

func (a Addr) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", a[0], a[1], a[2], a[3], a[4], a[5])
}

// Frame is a view over an Ethernet II header and payload. It does not copy
// the underlying buffer.
type Frame struct {
	buf []byte
}

// NewFrame wraps buf as an Ethernet frame. Returns an error if buf is
// shorter than HeaderLen.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < HeaderLen {
		return Frame{}, errShort
	}
	return Frame{buf: buf}, nil
}

// RawData returns the frame's underlying buffer.
func (f Frame) RawData() []byte { return f.buf }

// Destination returns the destination hardware address.
func (f Frame) Destination() Addr {
	var a Addr
	copy(a[:], f.buf[0:6])
	return a
}

// SetDestination sets the destination hardware address.
func (f Frame) SetDestination(a Addr) { copy(f.buf[0:6], a[:]) }

// Source returns the source hardware address.
func (f Frame) Source() Addr {
	var a Addr
	copy(a[:], f.buf[6:12])
	return a
}

// SetSource sets the source hardware address.
func (f Frame) SetSource(a Addr) { copy(f.buf[6:12], a[:]) }

// EtherType returns the frame's EtherType field.
func (f Frame) EtherType() EtherType {
	return EtherType(binary.BigEndian.Uint16(f.buf[12:14]))
}

// SetEtherType sets the frame's EtherType field.
func (f Frame) SetEtherType(t EtherType) {
	binary.BigEndian.PutUint16(f.buf[12:14], uint16(t))
}

// Payload returns the bytes following the Ethernet header.
func (f Frame) Payload() []byte { return f.buf[HeaderLen:] }

// IsBroadcast reports whether the destination address is the all-ones
// broadcast address.
func (f Frame) IsBroadcast() bool { return f.Destination() == Broadcast }
