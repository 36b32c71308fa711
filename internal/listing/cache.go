package listing

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
)

// Cache is the client copy of the server's postings. Mutations are applied
// only after the server confirmed them; the next ReplaceAll reconciles any
// drift.
type Cache struct {
	mu       sync.RWMutex
	postings []Posting
}

func NewCache() *Cache {
	return &Cache{}
}

// ReplaceAll swaps in the result of a bulk fetch, keeping server order.
func (c *Cache) ReplaceAll(postings []Posting) {
	cp := make([]Posting, len(postings))
	copy(cp, postings)
	c.mu.Lock()
	c.postings = cp
	c.mu.Unlock()
}

// Prepend puts a newly created posting first. A stale entry with the same id
// is dropped so ids stay unique.
func (c *Cache) Prepend(p Posting) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := make([]Posting, 0, len(c.postings)+1)
	next = append(next, p)
	for _, existing := range c.postings {
		if existing.ID == p.ID {
			continue
		}
		next = append(next, existing)
	}
	c.postings = next
}

// UpdateStatus mutates the entry with the exact id in place. A miss is not an
// error; it reports false and leaves the cache untouched.
func (c *Cache) UpdateStatus(id string, status Status, reason string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.postings {
		if c.postings[i].ID != id {
			continue
		}
		c.postings[i].Status = status
		c.postings[i].RejectionReason = reason
		return true
	}
	return false
}

func (c *Cache) All() []Posting {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Posting, len(c.postings))
	copy(out, c.postings)
	return out
}

// Pending is the moderation queue, in cache order.
func (c *Cache) Pending() []Posting {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []Posting{}
	for _, p := range c.postings {
		if p.Status.Is(StatusPending) {
			out = append(out, p)
		}
	}
	return out
}

func (c *Cache) Get(id string) (Posting, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.postings {
		if p.ID == id {
			return p, true
		}
	}
	return Posting{}, false
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.postings)
}

// Snapshot encodes the cache so it can be parked between requests.
func (c *Cache) Snapshot() ([]byte, error) {
	buf, err := json.Marshal(c.All())
	return buf, errors.Wrap(err, "unable to encode listing cache")
}

// Load replaces the contents with a previous Snapshot.
func (c *Cache) Load(buf []byte) error {
	var postings []Posting
	if err := json.Unmarshal(buf, &postings); err != nil {
		return errors.Wrap(err, "unable to decode listing cache")
	}
	c.ReplaceAll(postings)
	return nil
}
