package rediscache

import (
	"context"
	"sort"
	"testing"
)

func TestTagNames(t *testing.T) {
	ctx := context.Background()
	_, _, idx := newTestIndex(t, nil)

	if err := idx.Set(ctx, "k1", "v", NoTTL, "alpha"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := idx.Set(ctx, "k2", "v", NoTTL, "beta", "gamma"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	names, err := idx.TagNames(ctx)
	if err != nil {
		t.Fatalf("TagNames: %v", err)
	}
	sort.Strings(names)
	want := []string{"alpha", "beta", "gamma"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}
}

func TestKeysByPattern(t *testing.T) {
	ctx := context.Background()
	_, client, idx := newTestIndex(t, nil)

	for _, k := range []string{"user:1", "user:2", "order:1"} {
		if err := client.Set(ctx, k, "v", 0).Err(); err != nil {
			t.Fatalf("seed %s: %v", k, err)
		}
	}

	keys, err := idx.KeysByPattern(ctx, "user:*")
	if err != nil {
		t.Fatalf("KeysByPattern: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "user:1" || keys[1] != "user:2" {
		t.Fatalf("expected [user:1 user:2], got %v", keys)
	}
}

func TestFlushAll(t *testing.T) {
	ctx := context.Background()
	_, client, idx := newTestIndex(t, nil)

	if err := idx.Set(ctx, "k", "v", NoTTL, "t"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := idx.FlushAll(ctx); err != nil {
		t.Fatalf("FlushAll: %v", err)
	}
	if n := client.DBSize(ctx).Val(); n != 0 {
		t.Fatalf("expected empty database, %d keys left", n)
	}
}
