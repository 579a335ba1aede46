// Package registry tracks datagram-registered peripherals and their liveness.
package registry

import (
	"net/netip"
	"sort"
	"sync"
	"time"

	"holodash/internal/models"
)

// Registry maps peer addresses to the time they were last heard from. All
// access goes through one mutex so callers never observe partial updates.
type Registry struct {
	mu      sync.Mutex
	clients map[netip.AddrPort]time.Time
	now     func() time.Time
}

// New returns an empty registry using the wall clock.
func New() *Registry {
	return NewWithClock(time.Now)
}

// NewWithClock returns an empty registry reading time from now.
func NewWithClock(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		clients: make(map[netip.AddrPort]time.Time),
		now:     now,
	}
}

// Upsert registers addr or refreshes its last-seen time. It reports whether
// the address was not registered before.
func (r *Registry) Upsert(addr netip.AddrPort) bool {
	addr = normalize(addr)
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.clients[addr]
	r.clients[addr] = r.now()
	return !exists
}

// EvictExpired removes every client with now-last_seen >= timeout and
// returns the removed addresses.
func (r *Registry) EvictExpired(timeout time.Duration) []netip.AddrPort {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	var removed []netip.AddrPort
	for addr, lastSeen := range r.clients {
		if now.Sub(lastSeen) >= timeout {
			delete(r.clients, addr)
			removed = append(removed, addr)
		}
	}
	sortAddrs(removed)
	return removed
}

// Live returns a sorted copy of the registered addresses.
func (r *Registry) Live() []netip.AddrPort {
	r.mu.Lock()
	defer r.mu.Unlock()
	addrs := make([]netip.AddrPort, 0, len(r.clients))
	for addr := range r.clients {
		addrs = append(addrs, addr)
	}
	sortAddrs(addrs)
	return addrs
}

// Records returns a copy of every record, sorted by address.
func (r *Registry) Records() []models.ClientRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	records := make([]models.ClientRecord, 0, len(r.clients))
	for addr, lastSeen := range r.clients {
		records = append(records, models.ClientRecord{Addr: addr, LastSeen: lastSeen})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Addr.Compare(records[j].Addr) < 0 })
	return records
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// normalize folds IPv4-mapped IPv6 addresses so a peer seen on a dual-stack
// socket has a single key.
func normalize(addr netip.AddrPort) netip.AddrPort {
	return netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port())
}

func sortAddrs(addrs []netip.AddrPort) {
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Compare(addrs[j]) < 0 })
}
