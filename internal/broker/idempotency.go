package broker

import (
	"container/list"
	"encoding/json"
	"sync"
	"time"
)

// idempotencyKey identifies a tool call for dedup purposes: the same key
// within its TTL returns the previously observed result rather than
// re-executing the call.
type idempotencyKey struct {
	workspaceID    string
	conversationID string
	requestID      string
	tool           string
}

type idempotencyEntry struct {
	key       idempotencyKey
	result    json.RawMessage
	statusCode int
	err       string
	expiresAt time.Time
}

// idempotencyCache is a bounded LRU with per-entry TTL, keyed by
// (workspace_id, conversation_id, request_id, tool_name).
type idempotencyCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	maxItems int
	items    map[idempotencyKey]*list.Element
	order    *list.List // front = most recently used
}

func newIdempotencyCache(ttl time.Duration, maxItems int) *idempotencyCache {
	return &idempotencyCache{
		ttl:      ttl,
		maxItems: maxItems,
		items:    make(map[idempotencyKey]*list.Element),
		order:    list.New(),
	}
}

// Get returns a cached result for key if present and unexpired.
func (c *idempotencyCache) Get(key idempotencyKey, now time.Time) (idempotencyEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return idempotencyEntry{}, false
	}
	entry := el.Value.(*idempotencyEntry)
	if now.After(entry.expiresAt) {
		c.order.Remove(el)
		delete(c.items, key)
		return idempotencyEntry{}, false
	}
	c.order.MoveToFront(el)
	return *entry, true
}

// Put stores a result for key, evicting the least-recently-used entry if
// the cache is at capacity.
func (c *idempotencyCache) Put(key idempotencyKey, result json.RawMessage, statusCode int, errMsg string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &idempotencyEntry{key: key, result: result, statusCode: statusCode, err: errMsg, expiresAt: now.Add(c.ttl)}

	if el, ok := c.items[key]; ok {
		el.Value = entry
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(entry)
	c.items[key] = el

	for c.order.Len() > c.maxItems {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*idempotencyEntry).key)
	}
}
