// Package icmpv4 implements the ICMPv4 message wire format (RFC 792): the
// shared 4-byte header, Echo bodies, and the "unused + offending IPv4
// header + 8 bytes of payload" body shared by Destination Unreachable and
// Time Exceeded. Adapted from the teacher stack's icmpv4.Frame codec,
// narrowed to the message types the router's §4.6 builder emits.
package icmpv4

import (
	"encoding/binary"
	"errors"

	"github.com/chirouter-go/chirouter/internal/chksum"
)

// HeaderLen is the length of the common ICMP header (type, code, checksum).
const HeaderLen = 4

// ErrorBodyPrefixLen is the length of the unused/next-MTU field preceding
// the offending datagram excerpt in error messages.
const ErrorBodyPrefixLen = 4

// EchoHeaderLen is the length of the identifier+sequence fields following
// the common ICMP header in Echo/Echo-Reply messages.
const EchoHeaderLen = 4

type Type uint8

const (
	TypeEchoReply             Type = 0
	TypeDestUnreachable       Type = 3
	TypeEcho                  Type = 8
	TypeTimeExceeded          Type = 11
)

type CodeDestUnreachable uint8

const (
	CodeNetUnreachable  CodeDestUnreachable = 0
	CodeHostUnreachable CodeDestUnreachable = 1
	CodePortUnreachable CodeDestUnreachable = 3
)

const CodeTTLExceededInTransit uint8 = 0

var errShort = errors.New("icmpv4: buffer shorter than ICMP header")

// Message is a view over an ICMPv4 message.
type Message struct {
	buf []byte
}

// NewMessage wraps buf as an ICMP message. Returns an error if buf is
// shorter than HeaderLen.
func NewMessage(buf []byte) (Message, error) {
	if len(buf) < HeaderLen {
		return Message{}, errShort
	}
	return Message{buf: buf}, nil
}

// RawData returns the message's underlying buffer.
func (m Message) RawData() []byte { return m.buf }

// Type returns the ICMP type field.
func (m Message) Type() Type { return Type(m.buf[0]) }

// SetType sets the ICMP type field.
func (m Message) SetType(t Type) { m.buf[0] = uint8(t) }

// Code returns the ICMP code field.
func (m Message) Code() uint8 { return m.buf[1] }

// SetCode sets the ICMP code field.
func (m Message) SetCode(c uint8) { m.buf[1] = c }

// Checksum returns the checksum field.
func (m Message) Checksum() uint16 { return binary.BigEndian.Uint16(m.buf[2:4]) }

// SetChecksum sets the checksum field.
func (m Message) SetChecksum(v uint16) { binary.BigEndian.PutUint16(m.buf[2:4], v) }

// Body returns the bytes following the common 4-byte header.
func (m Message) Body() []byte { return m.buf[HeaderLen:] }

// ComputeChecksum computes the Internet checksum over the whole message,
// treating the checksum field as zero.
func (m Message) ComputeChecksum() uint16 {
	return chksum.Of(m.buf, 2)
}

// EchoIdentifier returns the identifier field of an Echo/Echo-Reply message.
func (m Message) EchoIdentifier() uint16 { return binary.BigEndian.Uint16(m.buf[4:6]) }

// SetEchoIdentifier sets the identifier field of an Echo/Echo-Reply message.
func (m Message) SetEchoIdentifier(v uint16) { binary.BigEndian.PutUint16(m.buf[4:6], v) }

// EchoSequence returns the sequence number field of an Echo/Echo-Reply message.
func (m Message) EchoSequence() uint16 { return binary.BigEndian.Uint16(m.buf[6:8]) }

// SetEchoSequence sets the sequence number field of an Echo/Echo-Reply message.
func (m Message) SetEchoSequence(v uint16) { binary.BigEndian.PutUint16(m.buf[6:8], v) }

// EchoData returns the payload following the Echo identifier/sequence fields.
func (m Message) EchoData() []byte { return m.buf[HeaderLen+EchoHeaderLen:] }
