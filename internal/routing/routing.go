// Package routing implements the static routing table and its
// longest-prefix-match lookup (spec.md §4.2). Entries are immutable after
// configuration; the table is a plain ordered slice scanned in full for
// every lookup, per spec.md's explicit rejection of a trie-based LPM
// structure in favor of deterministic, table-order tie-breaking (see
// DESIGN.md for why a radix-trie library such as gaissmai/bart was not
// used here).
package routing

import (
	"math/bits"

	"github.com/chirouter-go/chirouter/internal/iface"
)

// Entry is one static routing-table row: a destination network, its mask,
// an optional gateway (the zero address means "directly connected"), a
// metric used to break length ties, and the egress interface.
type Entry struct {
	Dest    [4]byte
	Mask    [4]byte
	Gateway [4]byte
	Metric  uint16
	Iface   *iface.Interface
}

// maskLen returns the number of set bits in the entry's mask, used to rank
// matches by prefix length.
func (e Entry) maskLen() int {
	return bits.OnesCount8(e.Mask[0]) + bits.OnesCount8(e.Mask[1]) +
		bits.OnesCount8(e.Mask[2]) + bits.OnesCount8(e.Mask[3])
}

func (e Entry) matches(dst [4]byte) bool {
	for i := 0; i < 4; i++ {
		if dst[i]&e.Mask[i] != e.Dest[i] {
			return false
		}
	}
	return true
}

// isZero reports whether addr is 0.0.0.0.
func isZero(addr [4]byte) bool { return addr == [4]byte{} }

// Table is an ordered sequence of routing entries, immutable after
// configuration.
type Table struct {
	entries []Entry
}

// NewTable builds a Table from entries in configuration order. The order
// is significant: it is the tie-breaker of last resort in Lookup.
func NewTable(entries []Entry) *Table {
	t := &Table{entries: make([]Entry, len(entries))}
	copy(t.entries, entries)
	return t
}

// Entries returns the table's entries in configuration order.
func (t *Table) Entries() []Entry { return t.entries }

// Lookup performs longest-prefix match for destination dst. Among entries
// whose (dst & mask) == dest, it selects the one with the longest mask,
// breaking ties by lowest metric and then by table order. It returns the
// next-hop IPv4 address (the entry's gateway if nonzero, otherwise dst
// itself), the egress interface, and whether any entry matched.
func (t *Table) Lookup(dst [4]byte) (nextHop [4]byte, egress *iface.Interface, ok bool) {
	best := -1
	bestLen := -1
	bestMetric := uint16(0)
	for i, e := range t.entries {
		if !e.matches(dst) {
			continue
		}
		ml := e.maskLen()
		switch {
		case ml > bestLen:
			best, bestLen, bestMetric = i, ml, e.Metric
		case ml == bestLen && e.Metric < bestMetric:
			best, bestMetric = i, e.Metric
		}
	}
	if best < 0 {
		return nextHop, nil, false
	}
	e := t.entries[best]
	if isZero(e.Gateway) {
		nextHop = dst
	} else {
		nextHop = e.Gateway
	}
	return nextHop, e.Iface, true
}
