package ldevents

import "container/list"

// lruCache tracks a bounded set of recently-seen strings, used to decide which user keys the event
// processor has already emitted an index event for (spec §4.9). Re-adding a key moves it back to
// the front so it survives another eviction cycle.
type lruCache struct {
	capacity int
	list     *list.List
	elements map[string]*list.Element
}

func newLruCache(capacity int) *lruCache {
	return &lruCache{
		capacity: capacity,
		list:     list.New(),
		elements: make(map[string]*list.Element),
	}
}

// add reports whether key was already known, and records it as the most recently seen.
func (c *lruCache) add(key string) bool {
	if c.capacity <= 0 {
		return false
	}
	if el, ok := c.elements[key]; ok {
		c.list.MoveToFront(el)
		return true
	}
	el := c.list.PushFront(key)
	c.elements[key] = el
	if c.list.Len() > c.capacity {
		oldest := c.list.Back()
		if oldest != nil {
			c.list.Remove(oldest)
			delete(c.elements, oldest.Value.(string))
		}
	}
	return false
}

func (c *lruCache) clear() {
	c.list.Init()
	c.elements = make(map[string]*list.Element)
}
