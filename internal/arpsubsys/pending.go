package arpsubsys

import (
	"time"

	"github.com/chirouter-go/chirouter/internal/iface"
)

// MaxRetries is the number of ARP requests sent for a target before the
// pending request is abandoned (spec.md §3, times_sent ∈ [1,5]).
const MaxRetries = 5

// RetryInterval is the nominal cadence of retransmission (spec.md §4.5,
// T_retry=1s).
const RetryInterval = 1 * time.Second

// WithheldFrame is a datagram whose emission was blocked on an outstanding
// ARP resolution: an owned deep copy of the inbound frame's bytes, plus
// the interface it arrived on (needed to address an eventual ICMP Host
// Unreachable back to the right link). The egress interface used when the
// resolution succeeds is the owning PendingRequest's Egress.
type WithheldFrame struct {
	Data    []byte
	InIface *iface.Interface
}

// PendingRequest is one outstanding, unresolved next-hop ARP resolution
// (spec.md §3). At most one PendingRequest exists per target IP at any
// time (enforced by Subsystem.ResolveOrQueue).
type PendingRequest struct {
	Target    [4]byte
	Egress    *iface.Interface
	TimesSent int
	LastSent  time.Time
	Withheld  []WithheldFrame
}

// pendingList is an insertion-ordered sequence of pending requests.
// Adapted from the teacher stack's preference for owning slices over
// intrusive linked lists (spec.md §9 "Linked-list patterns in the
// source" — the original chirouter uses a DL_* doubly-linked list here).
type pendingList struct {
	reqs []*PendingRequest
}

func (p *pendingList) find(ip [4]byte) *PendingRequest {
	for _, r := range p.reqs {
		if r.Target == ip {
			return r
		}
	}
	return nil
}

func (p *pendingList) add(ip [4]byte, egress *iface.Interface, now time.Time) *PendingRequest {
	r := &PendingRequest{Target: ip, Egress: egress, LastSent: now}
	p.reqs = append(p.reqs, r)
	return r
}

func (p *pendingList) removeAt(i int) {
	p.reqs = append(p.reqs[:i], p.reqs[i+1:]...)
}
