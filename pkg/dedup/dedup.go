// Package dedup drops repeated ids within a time window. Used to discard
// QoS 1 redeliveries, keyed by a payload hash.
package dedup

import (
	"sync"
	"time"
)

type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	seen map[string]time.Time // id -> expiry
	now  func() time.Time
}

func New(ttl time.Duration, max int) *Deduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if max <= 0 {
		max = 10000
	}
	return &Deduper{ttl: ttl, max: max, seen: make(map[string]time.Time), now: time.Now}
}

// ShouldProcess reports whether id is new (or its previous sighting expired)
// and records it. Empty ids are always processed.
func (d *Deduper) ShouldProcess(id string) bool {
	if id == "" {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if exp, ok := d.seen[id]; ok && now.Before(exp) {
		return false
	}
	d.seen[id] = now.Add(d.ttl)
	if len(d.seen) > d.max {
		d.sweepLocked(now)
	}
	return true
}

// Len is the number of ids currently tracked, expired ones included.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// sweepLocked removes expired ids; if the map is still over capacity the
// entries closest to expiry go first.
func (d *Deduper) sweepLocked(now time.Time) {
	for k, exp := range d.seen {
		if !now.Before(exp) {
			delete(d.seen, k)
		}
	}
	for len(d.seen) > d.max {
		var (
			oldest    string
			oldestExp time.Time
		)
		for k, exp := range d.seen {
			if oldest == "" || exp.Before(oldestExp) {
				oldest, oldestExp = k, exp
			}
		}
		delete(d.seen, oldest)
	}
}
