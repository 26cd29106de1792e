// Package arpsubsys implements the ARP cache, the pending-ARP-request
// list, and the one-second timer task that ages the cache and retries or
// cancels pending requests (spec.md §3, §4.3, §4.4, §4.5). Both the cache
// and the pending list are guarded by a single mutex (the "ARP lock"),
// matching the original's single pthread_mutex_t shared between
// chirouter_arp_cache_* and chirouter_arp_pending_req_* (original_source/
// src/c/arp.c).
//
// The slot-table shape of the cache (a fixed array, first-empty-slot
// insertion) follows the original's fixed-size arpcache.c table, not an LRU
// and not a general-purpose TTL cache library — see SPEC_FULL.md for why
// jellydator/ttlcache was considered and rejected.
package arpsubsys

import (
	"time"

	"github.com/chirouter-go/chirouter/internal/wire/ethernet"
)

// CacheSize is the fixed number of slots in the ARP cache (spec.md §3, N=100).
const CacheSize = 100

// EntryLifetime is how long a cache entry remains valid after creation
// (spec.md §3, T_cache=15s). The source uses strict '>', so an entry lives
// through second 15 and is purged once its age exceeds 15s.
const EntryLifetime = 15 * time.Second

type cacheSlot struct {
	ip      [4]byte
	mac     ethernet.Addr
	created time.Time
	valid   bool
}

// Cache is the fixed-capacity IP→MAC table. All methods require the
// caller to already hold the owning Subsystem's lock.
type Cache struct {
	slots [CacheSize]cacheSlot
}

// Lookup returns the MAC bound to ip, and whether that binding is still
// valid (valid flag set and age within EntryLifetime at time now). Lookup
// never mutates the cache; the timer task is solely responsible for
// clearing stale valid flags (spec.md §4.3).
func (c *Cache) Lookup(ip [4]byte, now time.Time) (mac ethernet.Addr, ok bool) {
	for i := range c.slots {
		s := &c.slots[i]
		if s.valid && s.ip == ip && now.Sub(s.created) <= EntryLifetime {
			return s.mac, true
		}
	}
	return ethernet.Addr{}, false
}

// Insert binds ip to mac, stamping the creation time as now. If a valid
// entry for ip already exists it is updated in place (spec.md §4.3,
// §9 "Unspecified/open" resolved as update-in-place). Otherwise the first
// empty slot is used; if the cache is full, Insert reports full=true and
// performs no insertion — the caller is expected to let the timer task
// eventually reap stale entries (spec.md §7).
func (c *Cache) Insert(ip [4]byte, mac ethernet.Addr, now time.Time) (full bool) {
	free := -1
	for i := range c.slots {
		s := &c.slots[i]
		if s.valid && s.ip == ip {
			s.mac = mac
			s.created = now
			return false
		}
		if free < 0 && !s.valid {
			free = i
		}
	}
	if free < 0 {
		return true
	}
	c.slots[free] = cacheSlot{ip: ip, mac: mac, created: now, valid: true}
	return false
}

// expireStale clears the valid flag of every entry older than
// EntryLifetime. Called once per tick by the timer task.
func (c *Cache) expireStale(now time.Time) {
	for i := range c.slots {
		s := &c.slots[i]
		if s.valid && now.Sub(s.created) > EntryLifetime {
			s.valid = false
		}
	}
}
