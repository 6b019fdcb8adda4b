package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/StockDrops/CachingFramework.Redis/internal/entry"
	lc "github.com/StockDrops/CachingFramework.Redis/localcache/bigcache"
)

// BigCache writes synchronously, which keeps this test deterministic;
// the Ristretto adapter admits asynchronously and is not asserted here.
func TestLocalMemoServesRawReads(t *testing.T) {
	ctx := context.Background()
	local, err := lc.New(lc.Config{LifeWindow: time.Minute})
	if err != nil {
		t.Fatalf("bigcache: %v", err)
	}
	_, client, idx := newTestIndex(t, func(o *Options) {
		o.Local = local
		o.LocalTTL = time.Minute
	})

	if err := idx.Set(ctx, "k1", "v", NoTTL, "m"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// first raw read populates the memo
	keys, err := idx.GetKeysByTag(ctx, []string{"m"}, false)
	if err != nil || len(keys) != 1 {
		t.Fatalf("first read: keys=%v err=%v", keys, err)
	}

	// a write that bypasses this index is invisible while the memo is fresh
	if err := client.SAdd(ctx, tagKey("m"), entry.Key("k2")).Err(); err != nil {
		t.Fatalf("SAdd: %v", err)
	}
	keys, err = idx.GetKeysByTag(ctx, []string{"m"}, false)
	if err != nil || len(keys) != 1 {
		t.Fatalf("memoized read: keys=%v err=%v", keys, err)
	}

	// a mutation through this index drops the memo and the next raw read
	// observes the store again
	if err := idx.AddTags(ctx, "k1", "m"); err != nil {
		t.Fatalf("AddTags: %v", err)
	}
	keys, err = idx.GetKeysByTag(ctx, []string{"m"}, false)
	if err != nil {
		t.Fatalf("post-mutation read: %v", err)
	}
	if len(keys) != 2 || !keysContain(keys, "k1") || !keysContain(keys, "k2") {
		t.Fatalf("expected [k1 k2] after memo drop, got %v", keys)
	}
}
