package client

import (
	"strconv"
	"sync"

	"quietmap/internal/domain"
)

// Cache is the client's view of all reports known since connecting: the
// initial snapshot plus live deltas. It imposes no ordering and tolerates
// duplicates; the dedup engine resolves both downstream.
type Cache struct {
	mu      sync.Mutex
	reports []domain.Report
}

func NewCache() *Cache {
	return &Cache{}
}

// ReplaceAll installs a snapshot, discarding everything held so far.
func (c *Cache) ReplaceAll(reports []domain.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports[:0:0], reports...)
}

func (c *Cache) Append(report domain.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, report)
}

// Remove drops every report whose id or millisecond timestamp matches.
// Matching by timestamp is a compatibility shim for rows created before the
// server assigned ids; new data always matches by id.
func (c *Cache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.reports[:0]
	for _, r := range c.reports {
		if r.ID == id || strconv.FormatInt(r.CreatedAt, 10) == id {
			continue
		}
		kept = append(kept, r)
	}
	c.reports = kept
}

// Reports returns a copy of the cached reports, in no particular order.
func (c *Cache) Reports() []domain.Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Report, len(c.reports))
	copy(out, c.reports)
	return out
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reports)
}
