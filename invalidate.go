package rediscache

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/StockDrops/CachingFramework.Redis/internal/entry"
)

// InvalidateTags deletes every target referenced by the given tags, then
// the tag index-sets themselves. Entries are resolved in raw mode -
// invalidation deletes almost everything anyway, so verifying first would
// be wasted work. All deletes share one pipelined batch; a target that is
// already gone is a successful no-op.
func (x *index) InvalidateTags(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}
	byTag, err := x.tagEntries(ctx, tags, true)
	if err != nil {
		return &InvalidateError{Tags: tags, Err: err}
	}
	entries := unionEntries(byTag, tags)

	members := make([]entry.Member, len(entries))
	var setKeys []string
	for i, e := range entries {
		members[i] = entry.Parse(e)
		if members[i].Kind == entry.SetMember {
			setKeys = append(setKeys, members[i].Key)
		}
	}

	// set-member deletes dispatch on the target key's current type; a key
	// that changed type since tagging falls through to SREM and no-ops
	types, err := x.readTypes(ctx, setKeys)
	if err != nil {
		return &InvalidateError{Tags: tags, Err: err}
	}

	pipe := x.store.Pipeline()
	for _, m := range members {
		switch m.Kind {
		case entry.PlainKey:
			pipe.Del(ctx, m.Key)
		case entry.HashField:
			pipe.HDel(ctx, m.Key, string(m.Payload))
		case entry.SetMember:
			if types[m.Key] == "zset" {
				pipe.ZRem(ctx, m.Key, m.Payload)
			} else {
				pipe.SRem(ctx, m.Key, m.Payload)
			}
		}
	}
	// one DEL per tag key: in cluster mode each tag hashes to its own slot,
	// so a single multi-key DEL would be rejected with CROSSSLOT
	for _, tk := range tagKeys(tags) {
		pipe.Del(ctx, tk)
	}
	if _, err := pipe.Exec(ctx); err != nil && !ignorableCmdErr(err) {
		return &InvalidateError{Tags: tags, Err: err}
	}

	x.dropLocal(tags...)
	x.hooks.Invalidated(tags, len(entries))
	x.log.Debug("invalidated tags", Fields{"tags": tags, "entries": len(entries)})
	return nil
}

// readTypes fetches the stored type of every key in one pipelined batch.
// Missing keys report "none".
func (x *index) readTypes(ctx context.Context, keys []string) (map[string]string, error) {
	if len(keys) == 0 {
		return map[string]string{}, nil
	}
	pipe := x.store.Pipeline()
	cmds := make(map[string]*redis.StatusCmd, len(keys))
	for _, k := range keys {
		if _, ok := cmds[k]; ok {
			continue
		}
		cmds[k] = pipe.Type(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}
	out := make(map[string]string, len(cmds))
	for k, c := range cmds {
		out[k] = c.Val()
	}
	return out, nil
}
