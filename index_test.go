package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	c "github.com/StockDrops/CachingFramework.Redis/codec"
)

func newTestIndex(t *testing.T, optsOpt func(*Options)) (*miniredis.Miniredis, *redis.Client, TagIndex) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	opts := Options{
		Store: client,
		Codec: c.JSON{},
	}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	idx, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return mr, client, idx
}

func keysContain(keys []string, want string) bool {
	for _, k := range keys {
		if k == want {
			return true
		}
	}
	return false
}

func TestTaggedSetAndGet(t *testing.T) {
	ctx := context.Background()
	_, _, idx := newTestIndex(t, nil)

	if err := idx.Set(ctx, "user:1", "ada", NoTTL, "users"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var got string
	ok, err := idx.Get(ctx, "user:1", &got)
	if err != nil || !ok || got != "ada" {
		t.Fatalf("Get: ok=%v err=%v got=%q", ok, err, got)
	}

	keys, err := idx.GetKeysByTag(ctx, []string{"users"}, false)
	if err != nil {
		t.Fatalf("GetKeysByTag: %v", err)
	}
	if !keysContain(keys, "user:1") {
		t.Fatalf("expected user:1 in %v", keys)
	}
}

func TestGetMiss(t *testing.T) {
	ctx := context.Background()
	_, _, idx := newTestIndex(t, nil)

	var got string
	ok, err := idx.Get(ctx, "absent", &got)
	if err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
}

func TestAddAndRemoveTags(t *testing.T) {
	ctx := context.Background()
	_, client, idx := newTestIndex(t, nil)

	if err := client.Set(ctx, "k1", "v", 0).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := idx.AddTags(ctx, "k1", "a", "b"); err != nil {
		t.Fatalf("AddTags: %v", err)
	}

	keys, err := idx.GetKeysByTag(ctx, []string{"a", "b"}, false)
	if err != nil {
		t.Fatalf("GetKeysByTag: %v", err)
	}
	if len(keys) != 1 || keys[0] != "k1" {
		t.Fatalf("expected deduplicated [k1], got %v", keys)
	}

	if err := idx.RemoveTags(ctx, "k1", "a"); err != nil {
		t.Fatalf("RemoveTags: %v", err)
	}
	keys, _ = idx.GetKeysByTag(ctx, []string{"a"}, false)
	if keysContain(keys, "k1") {
		t.Fatalf("k1 still tagged after RemoveTags: %v", keys)
	}
	keys, _ = idx.GetKeysByTag(ctx, []string{"b"}, false)
	if !keysContain(keys, "k1") {
		t.Fatalf("k1 lost from unrelated tag: %v", keys)
	}

	// empty tag list is a successful no-op
	if err := idx.RemoveTags(ctx, "k1"); err != nil {
		t.Fatalf("RemoveTags with no tags: %v", err)
	}
	if err := idx.AddTags(ctx, "k1"); err != nil {
		t.Fatalf("AddTags with no tags: %v", err)
	}
}

func TestRenameTagForKey(t *testing.T) {
	ctx := context.Background()
	_, _, idx := newTestIndex(t, nil)

	if err := idx.Set(ctx, "k1", "v", NoTTL, "old"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := idx.RenameTagForKey(ctx, "k1", "old", "new"); err != nil {
		t.Fatalf("RenameTagForKey: %v", err)
	}

	keys, _ := idx.GetKeysByTag(ctx, []string{"new"}, false)
	if !keysContain(keys, "k1") {
		t.Fatalf("expected k1 under new tag, got %v", keys)
	}
	keys, _ = idx.GetKeysByTag(ctx, []string{"old"}, false)
	if keysContain(keys, "k1") {
		t.Fatalf("k1 still under old tag: %v", keys)
	}

	// self-rename is a no-op
	if err := idx.RenameTagForKey(ctx, "k1", "new", "new"); err != nil {
		t.Fatalf("self-rename: %v", err)
	}
	keys, _ = idx.GetKeysByTag(ctx, []string{"new"}, false)
	if !keysContain(keys, "k1") {
		t.Fatalf("self-rename mutated tag: %v", keys)
	}
}

func TestVerifiedCleanupPrunesDanglingEntries(t *testing.T) {
	ctx := context.Background()
	_, client, idx := newTestIndex(t, nil)

	if err := idx.Set(ctx, "gone", "v", NoTTL, "t"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := idx.Set(ctx, "kept", "v", NoTTL, "t"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// delete the target directly, bypassing tag bookkeeping
	if err := client.Del(ctx, "gone").Err(); err != nil {
		t.Fatalf("Del: %v", err)
	}

	// raw mode still returns the dangling entry
	keys, err := idx.GetKeysByTag(ctx, []string{"t"}, false)
	if err != nil || !keysContain(keys, "gone") {
		t.Fatalf("raw mode should include dangling entry: keys=%v err=%v", keys, err)
	}

	// verified mode drops it and prunes the index set
	keys, err = idx.GetKeysByTag(ctx, []string{"t"}, true)
	if err != nil {
		t.Fatalf("verified GetKeysByTag: %v", err)
	}
	if keysContain(keys, "gone") || !keysContain(keys, "kept") {
		t.Fatalf("verified result wrong: %v", keys)
	}
	members, err := client.SMembers(ctx, tagKey("t")).Result()
	if err != nil {
		t.Fatalf("SMembers: %v", err)
	}
	if keysContain(members, "gone") {
		t.Fatalf("dangling entry not pruned from index set: %v", members)
	}
}

type recordingHooks struct {
	NopHooks
	pruned map[string]int
}

func (h *recordingHooks) StalePruned(tag string, removed int) { h.pruned[tag] += removed }

// StalePruned reports work that actually happened: it carries the removed
// count and fires only once the prune batch has executed.
func TestStalePrunedReportsRemovedCount(t *testing.T) {
	ctx := context.Background()
	rec := &recordingHooks{pruned: map[string]int{}}
	_, client, idx := newTestIndex(t, func(o *Options) {
		o.Hooks = rec
	})

	for _, k := range []string{"d1", "d2"} {
		if err := idx.Set(ctx, k, "v", NoTTL, "t"); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if err := client.Del(ctx, k).Err(); err != nil {
			t.Fatalf("Del: %v", err)
		}
	}

	if _, err := idx.GetKeysByTag(ctx, []string{"t"}, true); err != nil {
		t.Fatalf("GetKeysByTag: %v", err)
	}
	if rec.pruned["t"] != 2 {
		t.Fatalf("expected 2 pruned entries reported, got %v", rec.pruned)
	}

	// nothing left to prune, so no further events
	if _, err := idx.GetKeysByTag(ctx, []string{"t"}, true); err != nil {
		t.Fatalf("GetKeysByTag: %v", err)
	}
	if rec.pruned["t"] != 2 {
		t.Fatalf("prune over-reported: %v", rec.pruned)
	}
}

func TestTTLMergeNeverShrinks(t *testing.T) {
	ctx := context.Background()
	_, client, idx := newTestIndex(t, nil)

	if err := idx.Set(ctx, "k", "v1", 10*time.Second, "t"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := idx.Set(ctx, "k", "v2", 5*time.Second, "t"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if d := client.TTL(ctx, "k").Val(); d < 9*time.Second {
		t.Fatalf("key TTL shrank to %v", d)
	}
	if d := client.TTL(ctx, tagKey("t")).Val(); d < 9*time.Second {
		t.Fatalf("tag set TTL shrank to %v", d)
	}

	// an unbounded write removes expiration entirely
	if err := idx.Set(ctx, "k", "v3", NeverExpire, "t"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if d := client.TTL(ctx, "k").Val(); d != -1 {
		t.Fatalf("expected no expiration on key, got %v", d)
	}
	if d := client.TTL(ctx, tagKey("t")).Val(); d != -1 {
		t.Fatalf("expected no expiration on tag set, got %v", d)
	}
}

func TestAddTagsInheritsTargetTTL(t *testing.T) {
	ctx := context.Background()
	_, client, idx := newTestIndex(t, nil)

	if err := client.Set(ctx, "k", "v", 30*time.Second).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := idx.AddTags(ctx, "k", "t"); err != nil {
		t.Fatalf("AddTags: %v", err)
	}
	if d := client.TTL(ctx, tagKey("t")).Val(); d < 29*time.Second {
		t.Fatalf("tag set TTL %v shorter than target's", d)
	}

	// tagging an unexpiring target pins the tag set forever
	if err := client.Persist(ctx, "k").Err(); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if err := idx.AddTags(ctx, "k", "t"); err != nil {
		t.Fatalf("AddTags: %v", err)
	}
	if d := client.TTL(ctx, tagKey("t")).Val(); d != -1 {
		t.Fatalf("expected unexpiring tag set, got %v", d)
	}
}

func TestInvalidateTagsCompleteness(t *testing.T) {
	ctx := context.Background()
	_, client, idx := newTestIndex(t, nil)

	if err := idx.Set(ctx, "plain", "v", NoTTL, "all"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := idx.SetHashField(ctx, "h", "f", "v", NoTTL, "all"); err != nil {
		t.Fatalf("SetHashField: %v", err)
	}
	if err := idx.AddToSortedSet(ctx, "z", 1.5, 42, NoTTL, "all"); err != nil {
		t.Fatalf("AddToSortedSet: %v", err)
	}

	if err := idx.InvalidateTags(ctx, "all"); err != nil {
		t.Fatalf("InvalidateTags: %v", err)
	}

	if n := client.Exists(ctx, "plain").Val(); n != 0 {
		t.Fatalf("plain key survived invalidation")
	}
	if ok := client.HExists(ctx, "h", "f").Val(); ok {
		t.Fatalf("hash field survived invalidation")
	}
	if err := client.ZRank(ctx, "z", "42").Err(); err != redis.Nil {
		t.Fatalf("sorted-set member survived invalidation: %v", err)
	}
	if n := client.Exists(ctx, tagKey("all")).Val(); n != 0 {
		t.Fatalf("tag index set survived invalidation")
	}
	keys, err := idx.GetKeysByTag(ctx, []string{"all"}, false)
	if err != nil || len(keys) != 0 {
		t.Fatalf("expected empty tag after invalidation: keys=%v err=%v", keys, err)
	}

	// invalidating nothing, or an absent tag, is a successful no-op
	if err := idx.InvalidateTags(ctx); err != nil {
		t.Fatalf("InvalidateTags(): %v", err)
	}
	if err := idx.InvalidateTags(ctx, "absent"); err != nil {
		t.Fatalf("InvalidateTags(absent): %v", err)
	}
}

// Each tag's index-set is deleted with its own single-key DEL, so a
// multi-tag batch also works against a cluster, where the tag keys land in
// different hash slots.
func TestInvalidateMultipleTags(t *testing.T) {
	ctx := context.Background()
	_, client, idx := newTestIndex(t, nil)

	if err := idx.Set(ctx, "k1", "v", NoTTL, "a"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := idx.Set(ctx, "k2", "v", NoTTL, "b"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := idx.Set(ctx, "k3", "v", NoTTL, "keep"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := idx.InvalidateTags(ctx, "a", "b"); err != nil {
		t.Fatalf("InvalidateTags: %v", err)
	}

	for _, k := range []string{"k1", "k2"} {
		if n := client.Exists(ctx, k).Val(); n != 0 {
			t.Fatalf("%s survived invalidation", k)
		}
	}
	for _, tag := range []string{"a", "b"} {
		if n := client.Exists(ctx, tagKey(tag)).Val(); n != 0 {
			t.Fatalf("tag index set %q survived invalidation", tag)
		}
	}
	if n := client.Exists(ctx, "k3").Val(); n != 1 {
		t.Fatalf("unrelated key deleted")
	}
	keys, err := idx.GetKeysByTag(ctx, []string{"keep"}, false)
	if err != nil || !keysContain(keys, "k3") {
		t.Fatalf("unrelated tag damaged: keys=%v err=%v", keys, err)
	}
}

func TestGetMembersByTagKinds(t *testing.T) {
	ctx := context.Background()
	_, _, idx := newTestIndex(t, nil)

	if err := idx.Set(ctx, "p", "v", NoTTL, "mix"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := idx.SetHashField(ctx, "h", "field", "v", NoTTL, "mix"); err != nil {
		t.Fatalf("SetHashField: %v", err)
	}
	if err := idx.AddToSet(ctx, "s", "m1", NoTTL, "mix"); err != nil {
		t.Fatalf("AddToSet: %v", err)
	}

	members, err := idx.GetMembersByTag(ctx, "mix", false)
	if err != nil {
		t.Fatalf("GetMembersByTag: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("expected 3 members, got %d: %v", len(members), members)
	}
	byKind := make(map[MemberKind]TaggedMember)
	for _, m := range members {
		byKind[m.Kind] = m
	}
	if m := byKind[KindKey]; m.Key != "p" || m.Payload != nil {
		t.Fatalf("plain member wrong: %+v", m)
	}
	if m := byKind[KindHashField]; m.Key != "h" || string(m.Payload) != "field" {
		t.Fatalf("hash member wrong: %+v", m)
	}
	if m := byKind[KindSetMember]; m.Key != "s" || string(m.Payload) != `"m1"` {
		t.Fatalf("set member wrong: %+v", m)
	}
}

// Tag "even" references sorted-set member 42 of "scores"; once "scores" is
// deleted out-of-band, a verified read returns nothing and the dangling
// entry is gone from the tag set.
func TestSortedSetMemberCleanupAfterKeyDeleted(t *testing.T) {
	ctx := context.Background()
	_, client, idx := newTestIndex(t, nil)

	if err := idx.AddToSortedSet(ctx, "scores", 42, 42, 60*time.Second, "even"); err != nil {
		t.Fatalf("AddToSortedSet: %v", err)
	}
	if err := client.Del(ctx, "scores").Err(); err != nil {
		t.Fatalf("Del: %v", err)
	}

	members, err := idx.GetMembersByTag(ctx, "even", true)
	if err != nil {
		t.Fatalf("GetMembersByTag: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("expected no members, got %v", members)
	}
	if n := client.SCard(ctx, tagKey("even")).Val(); n != 0 {
		t.Fatalf("tag set still holds %d entries", n)
	}
}

func TestWrongTypeTagContributesNothing(t *testing.T) {
	ctx := context.Background()
	_, client, idx := newTestIndex(t, nil)

	// occupy a tag's key with a foreign type
	if err := client.Set(ctx, tagKey("blocked"), "oops", 0).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := idx.Set(ctx, "k1", "v", NoTTL, "good"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	keys, err := idx.GetKeysByTag(ctx, []string{"blocked", "good"}, false)
	if err != nil {
		t.Fatalf("GetKeysByTag: %v", err)
	}
	if len(keys) != 1 || keys[0] != "k1" {
		t.Fatalf("expected only k1, got %v", keys)
	}
}

func TestIsInTag(t *testing.T) {
	ctx := context.Background()
	_, _, idx := newTestIndex(t, nil)

	if err := idx.Set(ctx, "k", "v", NoTTL, "a"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := idx.SetHashField(ctx, "h", "f", "v", NoTTL, "b"); err != nil {
		t.Fatalf("SetHashField: %v", err)
	}
	if err := idx.AddToSet(ctx, "s", 7, NoTTL, "c"); err != nil {
		t.Fatalf("AddToSet: %v", err)
	}

	if ok, err := idx.IsKeyInTag(ctx, "k", "a", "zzz"); err != nil || !ok {
		t.Fatalf("IsKeyInTag: ok=%v err=%v", ok, err)
	}
	if ok, _ := idx.IsKeyInTag(ctx, "k", "zzz"); ok {
		t.Fatalf("IsKeyInTag matched wrong tag")
	}
	if ok, _ := idx.IsKeyInTag(ctx, "k"); ok {
		t.Fatalf("IsKeyInTag with no tags must be false")
	}
	if ok, err := idx.IsFieldInTag(ctx, "h", "f", "b"); err != nil || !ok {
		t.Fatalf("IsFieldInTag: ok=%v err=%v", ok, err)
	}
	if ok, err := idx.IsMemberInTag(ctx, "s", 7, "c"); err != nil || !ok {
		t.Fatalf("IsMemberInTag: ok=%v err=%v", ok, err)
	}
	if ok, _ := idx.IsMemberInTag(ctx, "s", 8, "c"); ok {
		t.Fatalf("IsMemberInTag matched absent member")
	}
}

func TestRemoveMemberAndFieldTags(t *testing.T) {
	ctx := context.Background()
	_, _, idx := newTestIndex(t, nil)

	if err := idx.SetHashField(ctx, "h", "f", "v", NoTTL, "t"); err != nil {
		t.Fatalf("SetHashField: %v", err)
	}
	if err := idx.AddToSet(ctx, "s", "m", NoTTL, "t"); err != nil {
		t.Fatalf("AddToSet: %v", err)
	}

	if err := idx.RemoveFieldTags(ctx, "h", "f", "t"); err != nil {
		t.Fatalf("RemoveFieldTags: %v", err)
	}
	if err := idx.RemoveMemberTags(ctx, "s", "m", "t"); err != nil {
		t.Fatalf("RemoveMemberTags: %v", err)
	}
	keys, err := idx.GetKeysByTag(ctx, []string{"t"}, false)
	if err != nil || len(keys) != 0 {
		t.Fatalf("expected empty tag, got keys=%v err=%v", keys, err)
	}
}
