package iface

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListByIDAndByName(t *testing.T) {
	eth0 := &Interface{ID: 0, Name: "eth0", IP: [4]byte{10, 0, 0, 1}}
	eth1 := &Interface{ID: 1, Name: "eth1", IP: [4]byte{10, 0, 1, 1}}
	l := NewList([]*Interface{eth0, eth1})

	assert.Same(t, eth0, l.ByID(0))
	assert.Same(t, eth1, l.ByID(1))
	assert.Nil(t, l.ByID(2))
	assert.Nil(t, l.ByID(-1))

	assert.Same(t, eth0, l.ByName("eth0"))
	assert.Nil(t, l.ByName("ethX"))
}

func TestListOwns(t *testing.T) {
	eth0 := &Interface{ID: 0, Name: "eth0", IP: [4]byte{10, 0, 0, 1}}
	l := NewList([]*Interface{eth0})

	owner, ok := l.Owns([4]byte{10, 0, 0, 1})
	assert.True(t, ok)
	assert.Same(t, eth0, owner)

	_, ok = l.Owns([4]byte{10, 0, 0, 2})
	assert.False(t, ok)
}

func TestListAll(t *testing.T) {
	eth0 := &Interface{ID: 0, Name: "eth0"}
	eth1 := &Interface{ID: 1, Name: "eth1"}
	l := NewList([]*Interface{eth0, eth1})
	assert.Equal(t, []*Interface{eth0, eth1}, l.All())
}
