// Package controller implements the external wire protocol described in
// original_source/src/c/server.h's chirouter_msg_t: a length-delimited
// message stream that first configures zero or more routers (ROUTERS,
// ROUTER, INTERFACE, RTABLE_ENTRY, END_CONFIG) and then carries Ethernet
// frames in both directions (ETHERNET_FRAME) until the connection closes.
package controller

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// MsgType identifies a protocol message's purpose.
type MsgType uint8

const (
	MsgHello         MsgType = 1
	MsgRouters       MsgType = 2
	MsgRouter        MsgType = 3
	MsgInterface     MsgType = 4
	MsgRTableEntry   MsgType = 5
	MsgEndConfig     MsgType = 6
	MsgEthernetFrame MsgType = 7
)

func (t MsgType) String() string {
	switch t {
	case MsgHello:
		return "HELLO"
	case MsgRouters:
		return "ROUTERS"
	case MsgRouter:
		return "ROUTER"
	case MsgInterface:
		return "INTERFACE"
	case MsgRTableEntry:
		return "RTABLE_ENTRY"
	case MsgEndConfig:
		return "END_CONFIG"
	case MsgEthernetFrame:
		return "ETHERNET_FRAME"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Subtype distinguishes directionality for the HELLO and ETHERNET_FRAME
// message types; it is unused (None) for every other type.
type Subtype uint8

const (
	SubtypeNone       Subtype = 0
	SubtypeFromRouter Subtype = 1
	SubtypeToRouter   Subtype = 2
)

// headerLen is the fixed type+subtype+payload-length prefix of every
// message on the wire.
const headerLen = 4

// maxPayloadLen bounds a single message's payload; well above the largest
// legitimate message (an ETHERNET_FRAME carrying a full-size frame) and
// used only to reject corrupt streams before attempting a huge allocation.
const maxPayloadLen = 1 << 16

// Message is one decoded protocol message: a type/subtype header plus its
// raw payload, not yet interpreted into a typed struct. ReadMessage and
// WriteMessage move Messages across the wire; the Decode* and Encode*
// helpers translate between Message and the typed payload structs below.
type Message struct {
	Type    MsgType
	Subtype Subtype
	Payload []byte
}

// ReadMessage reads one length-delimited message from r.
func ReadMessage(r io.Reader) (Message, error) {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Message{}, err
	}
	payloadLen := binary.BigEndian.Uint16(hdr[2:4])
	if payloadLen > maxPayloadLen {
		return Message{}, errors.Errorf("controller: payload length %d exceeds maximum", payloadLen)
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Message{}, errors.Wrap(err, "controller: reading payload")
	}
	return Message{Type: MsgType(hdr[0]), Subtype: Subtype(hdr[1]), Payload: payload}, nil
}

// WriteMessage writes one length-delimited message to w.
func WriteMessage(w io.Writer, m Message) error {
	if len(m.Payload) > maxPayloadLen {
		return errors.Errorf("controller: payload length %d exceeds maximum", len(m.Payload))
	}
	var hdr [headerLen]byte
	hdr[0] = byte(m.Type)
	hdr[1] = byte(m.Subtype)
	binary.BigEndian.PutUint16(hdr[2:4], uint16(len(m.Payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if len(m.Payload) == 0 {
		return nil
	}
	_, err := w.Write(m.Payload)
	return err
}

// RoutersPayload is MSG_TYPE_ROUTERS's payload: how many ROUTER
// specifications follow.
type RoutersPayload struct {
	NumRouters uint8
}

func DecodeRouters(p []byte) (RoutersPayload, error) {
	if len(p) < 1 {
		return RoutersPayload{}, errors.New("controller: ROUTERS payload too short")
	}
	return RoutersPayload{NumRouters: p[0]}, nil
}

// RouterPayload is MSG_TYPE_ROUTER's payload.
type RouterPayload struct {
	RouterID       uint8
	NumInterfaces  uint8
	NumRTableEntry uint8
	Name           string
}

func DecodeRouter(p []byte) (RouterPayload, error) {
	if len(p) < 3 {
		return RouterPayload{}, errors.New("controller: ROUTER payload too short")
	}
	return RouterPayload{
		RouterID:       p[0],
		NumInterfaces:  p[1],
		NumRTableEntry: p[2],
		Name:           string(p[3:]),
	}, nil
}

// InterfacePayload is MSG_TYPE_INTERFACE's payload.
type InterfacePayload struct {
	RouterID    uint8
	InterfaceID uint8
	HWAddr      [6]byte
	IPAddr      [4]byte
	Name        string
}

func DecodeInterface(p []byte) (InterfacePayload, error) {
	if len(p) < 12 {
		return InterfacePayload{}, errors.New("controller: INTERFACE payload too short")
	}
	var out InterfacePayload
	out.RouterID = p[0]
	out.InterfaceID = p[1]
	copy(out.HWAddr[:], p[2:8])
	copy(out.IPAddr[:], p[8:12])
	out.Name = string(p[12:])
	return out, nil
}

// RTableEntryPayload is MSG_TYPE_RTABLE_ENTRY's payload.
type RTableEntryPayload struct {
	RouterID    uint8
	InterfaceID uint8
	Metric      uint16
	Dest        [4]byte
	Mask        [4]byte
	Gateway     [4]byte
}

func DecodeRTableEntry(p []byte) (RTableEntryPayload, error) {
	if len(p) < 16 {
		return RTableEntryPayload{}, errors.New("controller: RTABLE_ENTRY payload too short")
	}
	var out RTableEntryPayload
	out.RouterID = p[0]
	out.InterfaceID = p[1]
	out.Metric = binary.BigEndian.Uint16(p[2:4])
	copy(out.Dest[:], p[4:8])
	copy(out.Mask[:], p[8:12])
	copy(out.Gateway[:], p[12:16])
	return out, nil
}

// EthernetFramePayload is MSG_TYPE_ETHERNET_FRAME's payload.
type EthernetFramePayload struct {
	RouterID    uint8
	InterfaceID uint8
	Frame       []byte
}

func DecodeEthernetFrame(p []byte) (EthernetFramePayload, error) {
	if len(p) < 4 {
		return EthernetFramePayload{}, errors.New("controller: ETHERNET_FRAME payload too short")
	}
	frameLen := binary.BigEndian.Uint16(p[2:4])
	if int(frameLen) > len(p)-4 {
		return EthernetFramePayload{}, errors.New("controller: ETHERNET_FRAME declared length exceeds payload")
	}
	return EthernetFramePayload{
		RouterID:    p[0],
		InterfaceID: p[1],
		Frame:       p[4 : 4+frameLen],
	}, nil
}

// EncodeEthernetFrame builds the payload for an outbound ETHERNET_FRAME
// message (subtype FROM_ROUTER).
func EncodeEthernetFrame(routerID, interfaceID uint8, frame []byte) Message {
	payload := make([]byte, 4+len(frame))
	payload[0] = routerID
	payload[1] = interfaceID
	binary.BigEndian.PutUint16(payload[2:4], uint16(len(frame)))
	copy(payload[4:], frame)
	return Message{Type: MsgEthernetFrame, Subtype: SubtypeFromRouter, Payload: payload}
}
