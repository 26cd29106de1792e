package arpsubsys

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chirouter-go/chirouter/internal/iface"
	"github.com/chirouter-go/chirouter/internal/wire/arp"
	"github.com/chirouter-go/chirouter/internal/wire/ethernet"
)

type fakeSink struct {
	sent []sentFrame
}

type sentFrame struct {
	out  *iface.Interface
	data []byte
}

func (f *fakeSink) Send(out *iface.Interface, frame []byte) {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	f.sent = append(f.sent, sentFrame{out: out, data: cp})
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func TestResolveOrQueueCacheHit(t *testing.T) {
	sink := &fakeSink{}
	s := New(sink, testLogger())
	eth0 := &iface.Interface{ID: 0, Name: "eth0"}

	s.cache.Insert(ip1, mac1, time.Now())

	mac, ok := s.ResolveOrQueue(ip1, eth0, []byte("frame"), eth0)
	assert.True(t, ok)
	assert.Equal(t, mac1, mac)
	assert.Empty(t, sink.sent, "a cache hit must not emit an ARP request")
}

func TestResolveOrQueueMissQueuesAndSendsOneRequest(t *testing.T) {
	sink := &fakeSink{}
	s := New(sink, testLogger())
	eth0 := &iface.Interface{ID: 0, Name: "eth0", MAC: ethernet.Addr{1, 2, 3, 4, 5, 6}}

	_, ok := s.ResolveOrQueue(ip1, eth0, []byte("frame-one"), eth0)
	assert.False(t, ok)
	_, ok = s.ResolveOrQueue(ip1, eth0, []byte("frame-two"), eth0)
	assert.False(t, ok)

	require.Len(t, sink.sent, 1, "only the first miss for a target must emit an ARP request")
	pkt, err := arp.NewPacket(sink.sent[0].data[ethernet.HeaderLen:])
	require.NoError(t, err)
	assert.Equal(t, arp.OpRequest, pkt.Operation())
	assert.Equal(t, ip1, pkt.TargetProtocolAddr())

	require.Len(t, s.pending.reqs, 1)
	assert.Len(t, s.pending.reqs[0].Withheld, 2)
}

func TestHandleReplyFlushesWithheldAndInsertsCache(t *testing.T) {
	sink := &fakeSink{}
	s := New(sink, testLogger())
	eth0 := &iface.Interface{ID: 0, Name: "eth0", MAC: ethernet.Addr{1, 2, 3, 4, 5, 6}}

	raw := make([]byte, ethernet.HeaderLen+4)
	eth, _ := ethernet.NewFrame(raw)
	eth.SetEtherType(ethernet.TypeIPv4)
	s.ResolveOrQueue(ip1, eth0, raw, eth0)

	s.HandleReply(ip1, mac1)

	require.Len(t, sink.sent, 2, "one ARP request plus one flushed withheld frame")
	flushed, err := ethernet.NewFrame(sink.sent[1].data)
	require.NoError(t, err)
	assert.Equal(t, eth0.MAC, flushed.Source())
	assert.Equal(t, mac1, flushed.Destination())

	assert.Empty(t, s.pending.reqs, "pending entry must be removed once its reply arrives")

	mac, ok := s.Lookup(ip1)
	assert.True(t, ok)
	assert.Equal(t, mac1, mac)
}

func TestTickRetriesThenSendsHostUnreachable(t *testing.T) {
	sink := &fakeSink{}
	s := New(sink, testLogger())
	eth0 := &iface.Interface{ID: 0, Name: "eth0", MAC: ethernet.Addr{1, 2, 3, 4, 5, 6}, IP: [4]byte{10, 0, 0, 1}}

	raw := make([]byte, ethernet.HeaderLen+20)
	eth, _ := ethernet.NewFrame(raw)
	eth.SetSource(ethernet.Addr{9, 9, 9, 9, 9, 9})
	eth.SetEtherType(ethernet.TypeIPv4)
	ipBuf := raw[ethernet.HeaderLen:]
	ipBuf[0] = 0x45 // version 4, IHL 5
	s.ResolveOrQueue(ip1, eth0, raw, eth0)

	now := time.Now()
	for i := 0; i < MaxRetries-1; i++ {
		now = now.Add(s.retryInterval)
		s.tick(now)
	}
	assert.Len(t, sink.sent, MaxRetries, "initial send plus MaxRetries-1 retries")
	assert.Len(t, s.pending.reqs, 1, "pending request survives until retries are exhausted")

	now = now.Add(s.retryInterval)
	s.tick(now)

	assert.Empty(t, s.pending.reqs, "exhausted pending request must be removed")
	assert.Len(t, sink.sent, MaxRetries+1, "exhausting retries must emit exactly one host-unreachable reply")
}
