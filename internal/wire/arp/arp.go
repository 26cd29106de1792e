// Package arp implements the ARP packet wire format (RFC 826) restricted
// to the Ethernet/IPv4 combination (hardware type 1, protocol type 0x0800,
// hardware length 6, protocol length 4) that this router handles.
// Adapted from the teacher stack's arp.Frame buffer-view codec.
package arp

import (
	"encoding/binary"
	"errors"
	"strconv"

	"github.com/chirouter-go/chirouter/internal/wire/ethernet"
)

// HeaderLen is the length in bytes of an ARP packet for Ethernet/IPv4.
const HeaderLen = 28

const (
	HTypeEthernet uint16 = 1

	hwLen    = 6
	protoLen = 4
)

// Opcode distinguishes ARP requests from replies.
type Opcode uint16

const (
	OpRequest Opcode = 1
	OpReply   Opcode = 2
)

func (op Opcode) String() string {
	switch op {
	case OpRequest:
		return "request"
	case OpReply:
		return "reply"
	default:
		return "unknown(" + strconv.Itoa(int(op)) + ")"
	}
}

var errShort = errors.New("arp: packet shorter than Ethernet/IPv4 ARP header")

// Packet is a view over an ARP packet restricted to Ethernet/IPv4.
type Packet struct {
	buf []byte
}

// NewPacket wraps buf as an ARP packet. Returns an error if buf is shorter
// than HeaderLen.
func NewPacket(buf []byte) (Packet, error) {
	if len(buf) < HeaderLen {
		return Packet{}, errShort
	}
	return Packet{buf: buf}, nil
}

// RawData returns the packet's underlying buffer, clipped to HeaderLen.
func (p Packet) RawData() []byte { return p.buf[:HeaderLen] }

// HardwareType returns the hardware type field (1 for Ethernet).
func (p Packet) HardwareType() uint16 { return binary.BigEndian.Uint16(p.buf[0:2]) }

// ProtocolType returns the protocol type field (0x0800 for IPv4).
func (p Packet) ProtocolType() ethernet.EtherType {
	return ethernet.EtherType(binary.BigEndian.Uint16(p.buf[2:4]))
}

// HardwareLen returns the hardware address length field (6 for MAC).
func (p Packet) HardwareLen() uint8 { return p.buf[4] }

// ProtocolLen returns the protocol address length field (4 for IPv4).
func (p Packet) ProtocolLen() uint8 { return p.buf[5] }

// Operation returns the opcode field.
func (p Packet) Operation() Opcode { return Opcode(binary.BigEndian.Uint16(p.buf[6:8])) }

// SetOperation sets the opcode field.
func (p Packet) SetOperation(op Opcode) { binary.BigEndian.PutUint16(p.buf[6:8], uint16(op)) }

// SenderHardwareAddr returns the sender MAC address.
func (p Packet) SenderHardwareAddr() ethernet.Addr {
	var a ethernet.Addr
	copy(a[:], p.buf[8:14])
	return a
}

// SenderProtocolAddr returns the sender IPv4 address.
func (p Packet) SenderProtocolAddr() [4]byte {
	var a [4]byte
	copy(a[:], p.buf[14:18])
	return a
}

// TargetHardwareAddr returns the target MAC address.
func (p Packet) TargetHardwareAddr() ethernet.Addr {
	var a ethernet.Addr
	copy(a[:], p.buf[18:24])
	return a
}

// TargetProtocolAddr returns the target IPv4 address.
func (p Packet) TargetProtocolAddr() [4]byte {
	var a [4]byte
	copy(a[:], p.buf[24:28])
	return a
}

// SetSender sets the sender hardware and protocol addresses.
func (p Packet) SetSender(mac ethernet.Addr, ip [4]byte) {
	copy(p.buf[8:14], mac[:])
	copy(p.buf[14:18], ip[:])
}

// SetTarget sets the target hardware and protocol addresses.
func (p Packet) SetTarget(mac ethernet.Addr, ip [4]byte) {
	copy(p.buf[18:24], mac[:])
	copy(p.buf[24:28], ip[:])
}

// FillEthernetIPv4Header writes the fixed hardware/protocol type and length
// fields shared by every Ethernet/IPv4 ARP packet this router emits.
func (p Packet) FillEthernetIPv4Header() {
	binary.BigEndian.PutUint16(p.buf[0:2], HTypeEthernet)
	binary.BigEndian.PutUint16(p.buf[2:4], uint16(ethernet.TypeIPv4))
	p.buf[4] = hwLen
	p.buf[5] = protoLen
}

// ValidForIPv4 reports whether the packet declares the Ethernet/IPv4
// hardware/protocol combination this router understands.
func (p Packet) ValidForIPv4() bool {
	return p.HardwareType() == HTypeEthernet &&
		p.ProtocolType() == ethernet.TypeIPv4 &&
		p.HardwareLen() == hwLen &&
		p.ProtocolLen() == protoLen
}
