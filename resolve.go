package rediscache

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/StockDrops/CachingFramework.Redis/internal/entry"
)

// GetKeysByTag returns the de-duplicated union of index entries across the
// given tags, verbatim. With cleanup=true, every entry's target is checked
// for liveness and dangling entries are pruned from their tag sets before
// the survivors are returned.
func (x *index) GetKeysByTag(ctx context.Context, tags []string, cleanup bool) ([]string, error) {
	return x.resolve(ctx, tags, cleanup)
}

// GetMembersByTag returns one typed description per index entry of a tag.
func (x *index) GetMembersByTag(ctx context.Context, tag string, cleanup bool) ([]TaggedMember, error) {
	entries, err := x.resolve(ctx, []string{tag}, cleanup)
	if err != nil {
		return nil, err
	}
	out := make([]TaggedMember, len(entries))
	for i, e := range entries {
		out[i] = toTaggedMember(entry.Parse(e))
	}
	return out, nil
}

func (x *index) resolve(ctx context.Context, tags []string, cleanup bool) ([]string, error) {
	// verified mode must observe the store, not the local memo
	byTag, err := x.tagEntries(ctx, tags, cleanup)
	if err != nil {
		return nil, err
	}
	entries := unionEntries(byTag, tags)
	if !cleanup || len(entries) == 0 {
		return entries, nil
	}

	alive, dead, err := x.verifyEntries(ctx, entries)
	if err != nil {
		return nil, err
	}
	if len(dead) > 0 {
		if err := x.pruneEntries(ctx, byTag, dead); err != nil {
			return nil, err
		}
	}
	return alive, nil
}

// tagEntries reads each tag's full member list. Tags whose underlying key
// is absent or not a set contribute nothing; that is policy, not an error.
// With fresh=true the local memoization cache is bypassed.
func (x *index) tagEntries(ctx context.Context, tags []string, fresh bool) (map[string][]string, error) {
	out := make(map[string][]string, len(tags))

	pending := tags
	if !fresh && x.local != nil {
		pending = pending[:0:0]
		for _, t := range tags {
			if ents, ok := x.localEntries(t); ok {
				out[t] = ents
			} else {
				pending = append(pending, t)
			}
		}
	}
	if len(pending) == 0 {
		return out, nil
	}

	pipe := x.store.Pipeline()
	cmds := make(map[string]*redis.StringSliceCmd, len(pending))
	for _, t := range pending {
		if _, ok := cmds[t]; ok {
			continue
		}
		cmds[t] = pipe.SMembers(ctx, tagKey(t))
	}
	if _, err := pipe.Exec(ctx); err != nil && !ignorableCmdErr(err) {
		return nil, fmt.Errorf("rediscache: read tags: %w", err)
	}
	for t, c := range cmds {
		if err := c.Err(); err != nil {
			if ignorableCmdErr(err) {
				if isWrongType(err) {
					x.hooks.WrongTypeTag(t)
				}
				continue
			}
			return nil, err
		}
		out[t] = c.Val()
		if !fresh {
			x.storeLocal(t, c.Val())
		}
	}
	return out, nil
}

// unionEntries de-duplicates entries across tags, preserving the caller's
// tag order and each tag's member order.
func unionEntries(byTag map[string][]string, tags []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range tags {
		for _, e := range byTag[t] {
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}

// verifyEntries checks each entry's target with the type-appropriate test:
// EXISTS for plain keys, HEXISTS for hash fields, and a membership test for
// set members dispatched on the target key's actual stored type (SISMEMBER
// for sets, ZRANK for sorted sets). A set-member entry whose key now holds
// some other type is treated as absent, never as an error.
func (x *index) verifyEntries(ctx context.Context, entries []string) (alive []string, dead map[string]struct{}, err error) {
	members := make([]entry.Member, len(entries))
	for i, e := range entries {
		members[i] = entry.Parse(e)
	}

	pipe := x.store.Pipeline()
	existsCmds := make(map[int]*redis.IntCmd)
	hexistsCmds := make(map[int]*redis.BoolCmd)
	typeCmds := make(map[string]*redis.StatusCmd)
	for i, m := range members {
		switch m.Kind {
		case entry.PlainKey:
			existsCmds[i] = pipe.Exists(ctx, m.Key)
		case entry.HashField:
			hexistsCmds[i] = pipe.HExists(ctx, m.Key, string(m.Payload))
		case entry.SetMember:
			if _, ok := typeCmds[m.Key]; !ok {
				typeCmds[m.Key] = pipe.Type(ctx, m.Key)
			}
		}
	}
	if _, err := pipe.Exec(ctx); err != nil && !ignorableCmdErr(err) {
		return nil, nil, fmt.Errorf("rediscache: verify entries: %w", err)
	}

	// second pass: membership tests, dispatched on the observed type
	pipe = x.store.Pipeline()
	setCmds := make(map[int]*redis.BoolCmd)
	rankCmds := make(map[int]*redis.IntCmd)
	queued := false
	for i, m := range members {
		if m.Kind != entry.SetMember {
			continue
		}
		switch typeCmds[m.Key].Val() {
		case "set":
			setCmds[i] = pipe.SIsMember(ctx, m.Key, m.Payload)
			queued = true
		case "zset":
			rankCmds[i] = pipe.ZRank(ctx, m.Key, string(m.Payload))
			queued = true
		}
	}
	if queued {
		if _, err := pipe.Exec(ctx); err != nil && !ignorableCmdErr(err) {
			return nil, nil, fmt.Errorf("rediscache: verify members: %w", err)
		}
	}

	dead = make(map[string]struct{})
	for i, m := range members {
		live := false
		switch m.Kind {
		case entry.PlainKey:
			live = existsCmds[i].Err() == nil && existsCmds[i].Val() > 0
		case entry.HashField:
			live = hexistsCmds[i].Err() == nil && hexistsCmds[i].Val()
		case entry.SetMember:
			if c, ok := setCmds[i]; ok {
				live = c.Err() == nil && c.Val()
			} else if c, ok := rankCmds[i]; ok {
				// existence <=> the rank is defined
				live = c.Err() == nil
			}
		}
		if live {
			alive = append(alive, entries[i])
		} else {
			dead[entries[i]] = struct{}{}
		}
	}
	return alive, dead, nil
}

// pruneEntries removes dead entries from every tag set that held them, one
// batched SREM per tag.
func (x *index) pruneEntries(ctx context.Context, byTag map[string][]string, dead map[string]struct{}) error {
	pipe := x.store.Pipeline()
	pruned := make(map[string]int, len(byTag))
	for t, ents := range byTag {
		var gone []interface{}
		for _, e := range ents {
			if _, ok := dead[e]; ok {
				gone = append(gone, e)
			}
		}
		if len(gone) == 0 {
			continue
		}
		pipe.SRem(ctx, tagKey(t), gone...)
		pruned[t] = len(gone)
	}
	if len(pruned) == 0 {
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil && !ignorableCmdErr(err) {
		return fmt.Errorf("rediscache: prune entries: %w", err)
	}
	for t, n := range pruned {
		x.hooks.StalePruned(t, n)
		x.log.Debug("pruned stale tag entries", Fields{"tag": t, "removed": n})
		x.dropLocal(t)
	}
	return nil
}

// ignorableCmdErr reports per-command results that are expected during
// resolution: missing keys and keys of a foreign type.
func ignorableCmdErr(err error) bool {
	return err == redis.Nil || isWrongType(err)
}

func isWrongType(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "WRONGTYPE")
}
