package arpsubsys

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/chirouter-go/chirouter/internal/icmpbuild"
	"github.com/chirouter-go/chirouter/internal/iface"
	"github.com/chirouter-go/chirouter/internal/wire/arp"
	"github.com/chirouter-go/chirouter/internal/wire/ethernet"
	"github.com/chirouter-go/chirouter/internal/wire/icmpv4"
	"github.com/chirouter-go/chirouter/internal/wire/ipv4"
)

// Subsystem is the ARP cache, pending-request list, and their shared lock
// (spec.md §5's "ARP lock" — the mu field below), plus the one-second
// timer task that ages the cache and advances pending requests. One
// Subsystem exists per router.
type Subsystem struct {
	mu      sync.Mutex
	cache   Cache
	pending pendingList

	sink iface.Sink
	log  *logrus.Entry

	retryInterval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a Subsystem. sink is used to emit ARP requests and
// timeout ICMP Host Unreachable replies; log receives per-event Trace/Debug
// messages.
func New(sink iface.Sink, log *logrus.Entry) *Subsystem {
	cb := backoff.NewConstantBackOff(RetryInterval)
	return &Subsystem{
		sink:          sink,
		log:           log,
		retryInterval: cb.NextBackOff(),
	}
}

// Start launches the background timer task (spec.md §4.5). Cancellation is
// cooperative: Stop cancels a context checked after each sleep.
func (s *Subsystem) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.timerLoop(ctx)
}

// Stop signals the timer task to exit and waits for it to do so.
func (s *Subsystem) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Subsystem) timerLoop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		s.tick(time.Now())
	}
}

func (s *Subsystem) tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.expireStale(now)

	for i := 0; i < len(s.pending.reqs); {
		pr := s.pending.reqs[i]
		if pr.TimesSent < MaxRetries {
			if now.Sub(pr.LastSent) >= s.retryInterval {
				s.sendARPRequestLocked(pr.Egress, pr.Target)
				pr.TimesSent++
				pr.LastSent = now
			}
			i++
			continue
		}
		s.log.WithField("target", pr.Target).Debug("arp: pending request exhausted retries, sending host unreachable")
		for _, wf := range pr.Withheld {
			s.sendHostUnreachableLocked(wf)
		}
		s.pending.removeAt(i)
	}
}

// Lookup resolves nextHop against the cache without side effects. Callers
// outside the forwarding engine's ARP-miss path (e.g. tests) can use this
// directly; the engine normally calls ResolveOrQueue instead, which is
// atomic with respect to the miss-path pending-list mutation.
func (s *Subsystem) Lookup(nextHop [4]byte) (ethernet.Addr, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Lookup(nextHop, time.Now())
}

// ResolveOrQueue implements spec.md §4.7.b's forwarded-miss branch under a
// single critical section: on a cache hit it returns the learned MAC; on a
// miss it attaches a deep copy of frame to the pending request for
// nextHop (creating one and emitting the initial ARP request if none
// exists yet) and returns ok=false — the caller must not emit frame now.
func (s *Subsystem) ResolveOrQueue(nextHop [4]byte, egress *iface.Interface, frame []byte, inIface *iface.Interface) (mac ethernet.Addr, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if mac, ok := s.cache.Lookup(nextHop, now); ok {
		return mac, true
	}

	cp := make([]byte, len(frame))
	copy(cp, frame)
	wf := WithheldFrame{Data: cp, InIface: inIface}

	pr := s.pending.find(nextHop)
	if pr == nil {
		pr = s.pending.add(nextHop, egress, now)
		pr.Withheld = append(pr.Withheld, wf)
		pr.TimesSent = 1
		pr.LastSent = now
		s.sendARPRequestLocked(egress, nextHop)
	} else {
		pr.Withheld = append(pr.Withheld, wf)
	}
	return ethernet.Addr{}, false
}

// HandleReply implements spec.md §4.7.a's reply branch: inserts the
// (senderIP, senderMAC) binding into the cache (update-in-place if already
// present) and, if a pending request for senderIP exists, flushes every
// withheld frame with rewritten Ethernet addressing and removes the
// pending entry.
func (s *Subsystem) HandleReply(senderIP [4]byte, senderMAC ethernet.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if full := s.cache.Insert(senderIP, senderMAC, now); full {
		s.log.WithField("ip", senderIP).Debug("arp: cache full, dropping insert")
	}

	idx := -1
	for i, r := range s.pending.reqs {
		if r.Target == senderIP {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	pr := s.pending.reqs[idx]
	for _, wf := range pr.Withheld {
		s.flushWithheldLocked(wf, senderMAC, pr.Egress)
	}
	s.pending.removeAt(idx)
}

func (s *Subsystem) flushWithheldLocked(wf WithheldFrame, learnedMAC ethernet.Addr, egress *iface.Interface) {
	frame, err := ethernet.NewFrame(wf.Data)
	if err != nil {
		return
	}
	frame.SetSource(egress.MAC)
	frame.SetDestination(learnedMAC)
	s.sink.Send(egress, wf.Data)
}

func (s *Subsystem) sendARPRequestLocked(egress *iface.Interface, target [4]byte) {
	buf := make([]byte, ethernet.HeaderLen+arp.HeaderLen)
	eth, _ := ethernet.NewFrame(buf)
	eth.SetDestination(ethernet.Broadcast)
	eth.SetSource(egress.MAC)
	eth.SetEtherType(ethernet.TypeARP)

	pkt, _ := arp.NewPacket(buf[ethernet.HeaderLen:])
	pkt.FillEthernetIPv4Header()
	pkt.SetOperation(arp.OpRequest)
	pkt.SetSender(egress.MAC, egress.IP)
	pkt.SetTarget(ethernet.Addr{}, target)

	s.sink.Send(egress, buf)
}

// sendHostUnreachableLocked synthesizes an ICMP Destination Host
// Unreachable for a frame withheld past the retry budget (spec.md §4.5,
// §4.6) and emits it back out the interface the original frame arrived on,
// addressed directly to that frame's Ethernet source — no further ARP
// resolution is needed since it is a direct reply on the same link.
func (s *Subsystem) sendHostUnreachableLocked(wf WithheldFrame) {
	origEth, err := ethernet.NewFrame(wf.Data)
	if err != nil {
		return
	}
	origIP, err := ipv4.NewHeader(origEth.Payload())
	if err != nil {
		return
	}
	excerpt := icmpbuild.Excerpt(origIP)
	reply := icmpbuild.DestUnreachable(icmpv4.CodeHostUnreachable,
		wf.InIface.MAC, origEth.Source(),
		wf.InIface.IP, origIP.Source(),
		excerpt)
	s.sink.Send(wf.InIface, reply)
}
