package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chirouter-go/chirouter/internal/iface"
)

func TestLookupNoMatch(t *testing.T) {
	table := NewTable(nil)
	_, _, ok := table.Lookup([4]byte{8, 8, 8, 8})
	assert.False(t, ok)
}

func TestLookupDirectlyConnected(t *testing.T) {
	eth0 := &iface.Interface{ID: 0, Name: "eth0"}
	table := NewTable([]Entry{
		{Dest: [4]byte{192, 168, 1, 0}, Mask: [4]byte{255, 255, 255, 0}, Iface: eth0},
	})
	nextHop, egress, ok := table.Lookup([4]byte{192, 168, 1, 42})
	assert.True(t, ok)
	assert.Same(t, eth0, egress)
	assert.Equal(t, [4]byte{192, 168, 1, 42}, nextHop, "directly connected: next hop is the destination itself")
}

func TestLookupViaGateway(t *testing.T) {
	eth0 := &iface.Interface{ID: 0, Name: "eth0"}
	gw := [4]byte{192, 168, 1, 1}
	table := NewTable([]Entry{
		{Dest: [4]byte{0, 0, 0, 0}, Mask: [4]byte{0, 0, 0, 0}, Gateway: gw, Iface: eth0},
	})
	nextHop, egress, ok := table.Lookup([4]byte{8, 8, 8, 8})
	assert.True(t, ok)
	assert.Same(t, eth0, egress)
	assert.Equal(t, gw, nextHop)
}

func TestLookupPrefersLongerPrefix(t *testing.T) {
	specific := &iface.Interface{ID: 0, Name: "specific"}
	general := &iface.Interface{ID: 1, Name: "general"}
	table := NewTable([]Entry{
		{Dest: [4]byte{10, 0, 0, 0}, Mask: [4]byte{255, 0, 0, 0}, Iface: general},
		{Dest: [4]byte{10, 0, 1, 0}, Mask: [4]byte{255, 255, 255, 0}, Iface: specific},
	})
	_, egress, ok := table.Lookup([4]byte{10, 0, 1, 5})
	assert.True(t, ok)
	assert.Same(t, specific, egress)
}

func TestLookupTiesBrokenByMetricThenTableOrder(t *testing.T) {
	lowMetric := &iface.Interface{ID: 0, Name: "low-metric"}
	highMetric := &iface.Interface{ID: 1, Name: "high-metric"}
	table := NewTable([]Entry{
		{Dest: [4]byte{10, 0, 0, 0}, Mask: [4]byte{255, 0, 0, 0}, Metric: 10, Iface: highMetric},
		{Dest: [4]byte{10, 0, 0, 0}, Mask: [4]byte{255, 0, 0, 0}, Metric: 5, Iface: lowMetric},
	})
	_, egress, ok := table.Lookup([4]byte{10, 1, 1, 1})
	assert.True(t, ok)
	assert.Same(t, lowMetric, egress, "equal-length matches must break ties by lowest metric")

	first := &iface.Interface{ID: 0, Name: "first"}
	second := &iface.Interface{ID: 1, Name: "second"}
	tableOrderTable := NewTable([]Entry{
		{Dest: [4]byte{10, 0, 0, 0}, Mask: [4]byte{255, 0, 0, 0}, Metric: 5, Iface: first},
		{Dest: [4]byte{10, 0, 0, 0}, Mask: [4]byte{255, 0, 0, 0}, Metric: 5, Iface: second},
	})
	_, egress, ok = tableOrderTable.Lookup([4]byte{10, 1, 1, 1})
	assert.True(t, ok)
	assert.Same(t, first, egress, "equal length and metric must break ties by table order")
}
