// Package engine implements the forwarding engine: the per-frame state
// machine that classifies inbound Ethernet frames, performs longest-prefix
// match, decrements TTL, recomputes checksums, and emits the result
// (spec.md §4.7). It is the top-level dispatch tying together the wire
// codecs, the routing table, the ARP subsystem and the ICMP builder.
//
// A Router's HandleFrame is single-threaded with respect to itself: the
// owning controller never calls it concurrently for the same Router
// (spec.md §5). This mirrors original_source/src/c/server.c's
// chirouter_server_process_ethernet_frame, which runs on the single
// controller-message-processing thread.
package engine

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/chirouter-go/chirouter/internal/arpsubsys"
	"github.com/chirouter-go/chirouter/internal/iface"
	"github.com/chirouter-go/chirouter/internal/routing"
)

// Router is one router instance: an immutable interface list and routing
// table, an ARP subsystem, and the sink used to emit frames.
type Router struct {
	Name   string
	Ifaces iface.List
	Table  *routing.Table
	ARP    *arpsubsys.Subsystem

	sink iface.Sink
	log  *logrus.Entry
}

// NewRouter constructs a Router. sink receives every frame the router
// chooses to emit, synchronously or from the ARP timer task.
func NewRouter(name string, ifaces iface.List, table *routing.Table, sink iface.Sink, log *logrus.Entry) *Router {
	entry := log.WithField("router", name)
	return &Router{
		Name:   name,
		Ifaces: ifaces,
		Table:  table,
		ARP:    arpsubsys.New(sink, entry),
		sink:   sink,
		log:    entry,
	}
}

// Start launches the router's ARP timer task.
func (r *Router) Start(ctx context.Context) { r.ARP.Start(ctx) }

// Stop halts the router's ARP timer task and waits for it to exit.
func (r *Router) Stop() { r.ARP.Stop() }
