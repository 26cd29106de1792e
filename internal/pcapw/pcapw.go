// Package pcapw writes router traffic to a pcapng capture file, the format
// dumped by original_source/src/c/pcap.c's chirouter_pcap_write_* family.
// Only the handful of block types that family emits are supported: one
// Section Header Block, one Interface Description Block per router
// interface, and one Enhanced Packet Block per captured frame.
package pcapw

import (
	"encoding/binary"
	"io"
	"sync"
	"time"

	"github.com/chirouter-go/chirouter/internal/wire/ethernet"
)

const (
	blockTypeSHB = 0x0A0D0D0A
	blockTypeIDB = 0x00000001
	blockTypeEPB = 0x00000006

	byteOrderMagic = 0x1A2B3C4D
	versionMajor   = 1
	versionMinor   = 0

	linkTypeEthernet = 1
	snapLen          = 65535

	optHdrLen    = 4
	optEnd       = 0
	optIfName    = 2
	optIfMACAddr = 6
	optIfTSResol = 9
	optEPBFlags  = 2
)

// Direction is the capture direction flag stored in an Enhanced Packet
// Block's flags option.
type Direction uint32

const (
	DirectionUnspecified Direction = 0
	DirectionInbound     Direction = 1
	DirectionOutbound    Direction = 2
)

// Writer serializes pcapng blocks to an underlying file. RegisterInterface
// and WriteFrame are safe for concurrent use: a router's forwarding
// goroutine and its ARP timer task may both capture frames.
type Writer struct {
	mu  sync.Mutex
	w   io.Writer
	ids map[string]uint32
}

// New wraps w and immediately emits the mandatory Section Header Block.
func New(w io.Writer) (*Writer, error) {
	pw := &Writer{w: w, ids: make(map[string]uint32)}
	if err := pw.writeSectionHeader(); err != nil {
		return nil, err
	}
	return pw, nil
}

func (pw *Writer) writeSectionHeader() error {
	buf := make([]byte, 28)
	binary.LittleEndian.PutUint32(buf[0:4], blockTypeSHB)
	binary.LittleEndian.PutUint32(buf[4:8], 28)
	binary.LittleEndian.PutUint32(buf[8:12], byteOrderMagic)
	binary.LittleEndian.PutUint16(buf[12:14], versionMajor)
	binary.LittleEndian.PutUint16(buf[14:16], versionMinor)
	binary.LittleEndian.PutUint64(buf[16:24], ^uint64(0)) // section_length = -1, unknown
	binary.LittleEndian.PutUint32(buf[24:28], 28)
	_, err := pw.w.Write(buf)
	return err
}

// RegisterInterface emits an Interface Description Block for name (the
// "<router>-<interface>" label used by original_source) and mac, and
// assigns it the next pcapng interface ID. Frames captured via WriteFrame
// reference interfaces by this same name.
func (pw *Writer) RegisterInterface(name string, mac ethernet.Addr) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	id := uint32(len(pw.ids))
	pw.ids[name] = id

	nameOpt := padOption(optIfName, []byte(name))
	macOpt := padOption(optIfMACAddr, mac[:])
	tsResolOpt := padOption(optIfTSResol, []byte{9})
	endOpt := padOption(optEnd, nil)

	// Fixed IDB layout: block_type, block_total_length, link_type,
	// reserved, snaplen, then the variable-length options below.
	blockLen := 12 + 4 + len(nameOpt) + len(macOpt) + len(tsResolOpt) + len(endOpt) + 4

	buf := make([]byte, 12)
	binary.LittleEndian.PutUint32(buf[0:4], blockTypeIDB)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(blockLen))
	binary.LittleEndian.PutUint16(buf[8:10], linkTypeEthernet)
	binary.LittleEndian.PutUint16(buf[10:12], 0)
	snaplenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(snaplenBuf, snapLen)

	if _, err := pw.w.Write(buf); err != nil {
		return err
	}
	if _, err := pw.w.Write(snaplenBuf); err != nil {
		return err
	}
	for _, opt := range [][]byte{nameOpt, macOpt, tsResolOpt, endOpt} {
		if _, err := pw.w.Write(opt); err != nil {
			return err
		}
	}
	trailer := make([]byte, 4)
	binary.LittleEndian.PutUint32(trailer, uint32(blockLen))
	_, err := pw.w.Write(trailer)
	return err
}

// WriteFrame emits an Enhanced Packet Block for frame, captured on
// ifaceName at now, travelling in direction dir.
func (pw *Writer) WriteFrame(ifaceName string, frame []byte, now time.Time, dir Direction) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	id, ok := pw.ids[ifaceName]
	if !ok {
		return nil // interface never registered; silently skip capture
	}

	ns := uint64(now.UnixNano())
	flagsOpt := padOption(optEPBFlags, le32(uint32(dir)))
	endOpt := padOption(optEnd, nil)
	padded := padded(len(frame))

	blockLen := 28 + padded + len(flagsOpt) + len(endOpt) + 4

	hdr := make([]byte, 28)
	binary.LittleEndian.PutUint32(hdr[0:4], blockTypeEPB)
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(blockLen))
	binary.LittleEndian.PutUint32(hdr[8:12], id)
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(ns>>32))
	binary.LittleEndian.PutUint32(hdr[16:20], uint32(ns))
	binary.LittleEndian.PutUint32(hdr[20:24], uint32(len(frame)))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(len(frame)))

	if _, err := pw.w.Write(hdr); err != nil {
		return err
	}
	if _, err := pw.w.Write(frame); err != nil {
		return err
	}
	if pad := padded - len(frame); pad > 0 {
		if _, err := pw.w.Write(make([]byte, pad)); err != nil {
			return err
		}
	}
	for _, opt := range [][]byte{flagsOpt, endOpt} {
		if _, err := pw.w.Write(opt); err != nil {
			return err
		}
	}
	trailer := make([]byte, 4)
	binary.LittleEndian.PutUint32(trailer, uint32(blockLen))
	_, err := pw.w.Write(trailer)
	return err
}

// padded returns n rounded up to the next multiple of 4.
func padded(n int) int {
	if n%4 == 0 {
		return n
	}
	return (n/4 + 1) * 4
}

// padOption builds a pcapng option TLV: 2-byte code, 2-byte length, value,
// then zero padding out to a 4-byte boundary.
func padOption(code uint16, value []byte) []byte {
	out := make([]byte, 4+padded(len(value)))
	binary.LittleEndian.PutUint16(out[0:2], code)
	binary.LittleEndian.PutUint16(out[2:4], uint16(len(value)))
	copy(out[4:], value)
	return out
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}
