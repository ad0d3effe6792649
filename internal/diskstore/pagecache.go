package diskstore

import (
	"container/list"
	"fmt"
	"sync"
)

// PageSize matches the source's BufferManager/PageManager page granularity.
const PageSize = 4096

// Cache is a fixed-capacity LRU over PageSize-byte pages of an underlying
// Store, with dirty tracking and write-back on eviction or Flush. It is an
// optional performance layer: the record stores work correctly without it
// (see §9 Open Questions — it is not on the correctness path). No record
// store constructs one; a Cache exists only where a caller builds it with
// NewCache.
type Cache struct {
	mu       sync.Mutex
	store    *Store
	capacity int
	pages    map[int64]*list.Element
	order    *list.List // front = most recently used
}

type cacheEntry struct {
	pageID int64
	data   [PageSize]byte
	dirty  bool
}

// NewCache wraps store with an LRU of at most capacity pages.
func NewCache(store *Store, capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		store:    store,
		capacity: capacity,
		pages:    make(map[int64]*list.Element),
		order:    list.New(),
	}
}

func pageRange(rawOffset int64, length int) (first, last int64) {
	first = rawOffset / PageSize
	last = (rawOffset + int64(length) - 1) / PageSize
	return
}

func (c *Cache) touch(el *list.Element) {
	c.order.MoveToFront(el)
}

// loadPage returns the cached page, reading it from the store (as a
// zero-padded PageSize buffer) and evicting the least-recently-used page,
// writing it back first if dirty, if the cache is full.
func (c *Cache) loadPage(pageID int64) (*cacheEntry, error) {
	if el, ok := c.pages[pageID]; ok {
		c.touch(el)
		return el.Value.(*cacheEntry), nil
	}

	entry := &cacheEntry{pageID: pageID}
	start := pageID * PageSize
	if start < c.store.Size() {
		n := PageSize
		if remaining := c.store.Size() - start; remaining < int64(n) {
			n = int(remaining)
		}
		buf, err := c.store.ReadAt(start, n)
		if err != nil {
			return nil, err
		}
		copy(entry.data[:], buf)
	}

	if c.order.Len() >= c.capacity {
		if err := c.evictOldest(); err != nil {
			return nil, err
		}
	}

	el := c.order.PushFront(entry)
	c.pages[pageID] = el
	return entry, nil
}

func (c *Cache) evictOldest() error {
	back := c.order.Back()
	if back == nil {
		return nil
	}
	entry := back.Value.(*cacheEntry)
	if entry.dirty {
		if err := c.writeBack(entry); err != nil {
			return err
		}
	}
	c.order.Remove(back)
	delete(c.pages, entry.pageID)
	return nil
}

func (c *Cache) writeBack(entry *cacheEntry) error {
	start := entry.pageID * PageSize
	n := int64(PageSize)
	if remaining := c.store.Size() - start; remaining < n {
		n = remaining
	}
	if n <= 0 {
		return fmt.Errorf("pagecache: write-back page %d past end of file (extend via Store.Append first)", entry.pageID)
	}
	if err := c.store.OverwriteAt(start, entry.data[:n]); err != nil {
		return err
	}
	entry.dirty = false
	return nil
}

// Read returns length bytes at rawOffset, served from cached pages.
func (c *Cache) Read(rawOffset int64, length int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	first, last := pageRange(rawOffset, length)
	out := make([]byte, 0, length)
	for pid := first; pid <= last; pid++ {
		entry, err := c.loadPage(pid)
		if err != nil {
			return nil, err
		}
		lo := int64(0)
		if pid == first {
			lo = rawOffset - pid*PageSize
		}
		hi := int64(PageSize)
		if pid == last {
			hi = (rawOffset + int64(length)) - pid*PageSize
		}
		out = append(out, entry.data[lo:hi]...)
	}
	return out, nil
}

// Write updates cached pages covering [rawOffset, rawOffset+len(b)) and
// marks them dirty; the underlying Store is only touched on eviction or
// Flush. The file must already be large enough to hold the write (the
// caller is expected to have Append-ed space first).
func (c *Cache) Write(rawOffset int64, b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	first, last := pageRange(rawOffset, len(b))
	consumed := 0
	for pid := first; pid <= last; pid++ {
		entry, err := c.loadPage(pid)
		if err != nil {
			return err
		}
		lo := int64(0)
		if pid == first {
			lo = rawOffset - pid*PageSize
		}
		hi := int64(PageSize)
		if pid == last {
			hi = (rawOffset + int64(len(b))) - pid*PageSize
		}
		n := copy(entry.data[lo:hi], b[consumed:])
		consumed += n
		entry.dirty = true
	}
	return nil
}

// Flush writes every dirty page back to the underlying store.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for el := c.order.Front(); el != nil; el = el.Next() {
		entry := el.Value.(*cacheEntry)
		if entry.dirty {
			if err := c.writeBack(entry); err != nil {
				return err
			}
		}
	}
	return nil
}

// Stats reports current occupancy, useful for diagnostics/tests.
func (c *Cache) Stats() (resident, capacity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len(), c.capacity
}
