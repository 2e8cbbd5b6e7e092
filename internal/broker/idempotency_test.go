package broker

import (
	"encoding/json"
	"testing"
	"time"
)

func TestIdempotencyCache_GetMissThenPutThenHit(t *testing.T) {
	c := newIdempotencyCache(time.Minute, 10)
	key := idempotencyKey{workspaceID: "ws1", conversationID: "c1", requestID: "r1", tool: "book_appointment"}
	now := time.Now()

	if _, ok := c.Get(key, now); ok {
		t.Fatal("want miss before any Put")
	}

	result := json.RawMessage(`{"booking_id":"b1"}`)
	c.Put(key, result, 200, "", now)

	entry, ok := c.Get(key, now)
	if !ok {
		t.Fatal("want hit after Put")
	}
	if string(entry.result) != string(result) || entry.statusCode != 200 {
		t.Fatalf("got unexpected entry: %+v", entry)
	}
}

func TestIdempotencyCache_ExpiresAfterTTL(t *testing.T) {
	c := newIdempotencyCache(time.Second, 10)
	key := idempotencyKey{workspaceID: "ws1", conversationID: "c1", requestID: "r1", tool: "book_appointment"}
	now := time.Now()
	c.Put(key, json.RawMessage(`{}`), 200, "", now)

	if _, ok := c.Get(key, now.Add(2*time.Second)); ok {
		t.Fatal("want miss after TTL elapses")
	}
}

func TestIdempotencyCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newIdempotencyCache(time.Hour, 2)
	now := time.Now()
	k1 := idempotencyKey{requestID: "r1"}
	k2 := idempotencyKey{requestID: "r2"}
	k3 := idempotencyKey{requestID: "r3"}

	c.Put(k1, json.RawMessage(`{}`), 200, "", now)
	c.Put(k2, json.RawMessage(`{}`), 200, "", now)
	// Touch k1 so it's more recently used than k2.
	c.Get(k1, now)
	// Adding a third entry should evict k2, the least recently used.
	c.Put(k3, json.RawMessage(`{}`), 200, "", now)

	if _, ok := c.Get(k2, now); ok {
		t.Fatal("want k2 evicted")
	}
	if _, ok := c.Get(k1, now); !ok {
		t.Fatal("want k1 still present")
	}
	if _, ok := c.Get(k3, now); !ok {
		t.Fatal("want k3 still present")
	}
}

func TestIdempotencyCache_PutOverwritesExistingKeyInPlace(t *testing.T) {
	c := newIdempotencyCache(time.Hour, 2)
	now := time.Now()
	key := idempotencyKey{requestID: "r1"}

	c.Put(key, json.RawMessage(`{"v":1}`), 200, "", now)
	c.Put(key, json.RawMessage(`{"v":2}`), 201, "", now)

	entry, ok := c.Get(key, now)
	if !ok {
		t.Fatal("want hit")
	}
	if entry.statusCode != 201 || string(entry.result) != `{"v":2}` {
		t.Fatalf("want overwritten entry, got %+v", entry)
	}
	if c.order.Len() != 1 {
		t.Fatalf("overwriting an existing key should not grow the list, len=%d", c.order.Len())
	}
}

func TestIdempotencyCache_DistinctKeysDoNotCollide(t *testing.T) {
	c := newIdempotencyCache(time.Hour, 10)
	now := time.Now()
	a := idempotencyKey{workspaceID: "ws1", tool: "book_appointment", requestID: "r1"}
	b := idempotencyKey{workspaceID: "ws2", tool: "book_appointment", requestID: "r1"}

	c.Put(a, json.RawMessage(`{"v":"a"}`), 200, "", now)
	if _, ok := c.Get(b, now); ok {
		t.Fatal("different workspace should not share a cache entry")
	}
}
