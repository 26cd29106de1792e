// Package iface defines the router's interface model: a named link
// endpoint with a fixed MAC and IPv4 address, created once during
// configuration and immutable thereafter. Grounded on chirouter_interface_t
// in original_source/src/c/chirouter.h.
package iface

import (
	"fmt"

	"github.com/chirouter-go/chirouter/internal/wire/ethernet"
)

// Interface is a virtual router link endpoint. Once constructed by the
// configuration phase, an Interface's fields never change; the forwarding
// engine and ARP subsystem only ever read from it.
type Interface struct {
	// ID is the dense, zero-based index assigned by the controller
	// protocol, stable for the lifetime of the router.
	ID   int
	Name string
	MAC  ethernet.Addr
	IP   [4]byte
}

func (i *Interface) String() string {
	return fmt.Sprintf("%s(id=%d mac=%02x:%02x:%02x:%02x:%02x:%02x ip=%d.%d.%d.%d)",
		i.Name, i.ID,
		i.MAC[0], i.MAC[1], i.MAC[2], i.MAC[3], i.MAC[4], i.MAC[5],
		i.IP[0], i.IP[1], i.IP[2], i.IP[3])
}

// Sink is the collaborator an Interface's owner hands to the forwarding
// engine and ARP subsystem so they can emit a completed Ethernet frame on a
// given egress interface without knowing how the controller connection (or
// a test harness) actually delivers it.
type Sink interface {
	Send(out *Interface, frame []byte)
}

// List is an immutable, ID-indexed collection of a router's interfaces.
type List struct {
	byID []*Interface
}

// NewList builds a List from interfaces already assigned dense IDs 0..n-1.
func NewList(ifaces []*Interface) List {
	byID := make([]*Interface, len(ifaces))
	copy(byID, ifaces)
	return List{byID: byID}
}

// ByID returns the interface with the given ID, or nil if out of range.
func (l List) ByID(id int) *Interface {
	if id < 0 || id >= len(l.byID) {
		return nil
	}
	return l.byID[id]
}

// ByName returns the interface with the given name, or nil if not found.
func (l List) ByName(name string) *Interface {
	for _, i := range l.byID {
		if i.Name == name {
			return i
		}
	}
	return nil
}

// All returns every interface in ID order.
func (l List) All() []*Interface { return l.byID }

// Owns reports whether ip matches any interface's own address — the
// "addressed to the router itself" test used throughout the forwarding
// engine (spec.md §4.7.b).
func (l List) Owns(ip [4]byte) (*Interface, bool) {
	for _, i := range l.byID {
		if i.IP == ip {
			return i, true
		}
	}
	return nil, false
}
