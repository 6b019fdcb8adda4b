package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	c "github.com/StockDrops/CachingFramework.Redis/codec"
	"github.com/StockDrops/CachingFramework.Redis/internal/entry"
)

const (
	defaultLocalTTL  = 2 * time.Second
	defaultScanCount = 1000
)

type index struct {
	store     Store
	codec     c.Codec
	log       Logger
	hooks     Hooks
	local     LocalCache
	localTTL  time.Duration
	scanCount int64
}

func newIndex(opts Options) (*index, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("rediscache: store is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("rediscache: codec is required")
	}

	x := &index{
		store: opts.Store,
		codec: opts.Codec,
		local: opts.Local,
	}

	// defaults
	x.log = coalesce[Logger](opts.Logger, NopLogger{})
	x.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	x.localTTL = coalesce[time.Duration](opts.LocalTTL, defaultLocalTTL)
	x.scanCount = coalesce[int64](opts.ScanCount, defaultScanCount)

	return x, nil
}

func (x *index) Close(context.Context) error {
	if x.local != nil {
		_ = x.local.Close()
	}
	return x.store.Close()
}

// Set writes a serialized value under key and registers a plain-key entry
// in every tag set, as one pipelined batch.
func (x *index) Set(ctx context.Context, key string, value any, ttl time.Duration, tags ...string) error {
	payload, err := x.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("rediscache: encode %q: %w", key, err)
	}
	if len(tags) == 0 {
		return x.store.Set(ctx, key, payload, setExpiration(ttl)).Err()
	}
	return x.taggedWrite(ctx, key, ttl, tags, entry.Key(key), func(pipe storeCmds) {
		// KEEPTTL so the pre-read TTL stays authoritative for the merge
		pipe.Set(ctx, key, payload, redis.KeepTTL)
	})
}

// SetHashField writes a serialized value under a hash field and registers a
// hash-field entry in every tag set.
func (x *index) SetHashField(ctx context.Context, key, field string, value any, ttl time.Duration, tags ...string) error {
	payload, err := x.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("rediscache: encode %q %q: %w", key, field, err)
	}
	return x.taggedWrite(ctx, key, ttl, tags, entry.Hash(key, field), func(pipe storeCmds) {
		pipe.HSet(ctx, key, field, payload)
	})
}

// AddToSet adds a serialized member to a set key and registers a set-member
// entry in every tag set.
func (x *index) AddToSet(ctx context.Context, key string, member any, ttl time.Duration, tags ...string) error {
	payload, err := x.codec.Encode(member)
	if err != nil {
		return fmt.Errorf("rediscache: encode member of %q: %w", key, err)
	}
	return x.taggedWrite(ctx, key, ttl, tags, entry.Set(key, payload), func(pipe storeCmds) {
		pipe.SAdd(ctx, key, payload)
	})
}

// AddToSortedSet adds a serialized member with a score to a sorted-set key
// and registers a set-member entry in every tag set.
func (x *index) AddToSortedSet(ctx context.Context, key string, score float64, member any, ttl time.Duration, tags ...string) error {
	payload, err := x.codec.Encode(member)
	if err != nil {
		return fmt.Errorf("rediscache: encode member of %q: %w", key, err)
	}
	return x.taggedWrite(ctx, key, ttl, tags, entry.Set(key, payload), func(pipe storeCmds) {
		pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: payload})
	})
}

func (x *index) Get(ctx context.Context, key string, out any) (bool, error) {
	b, err := x.store.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := x.codec.Decode(b, out); err != nil {
		return false, fmt.Errorf("rediscache: decode %q: %w", key, err)
	}
	return true, nil
}

// taggedWrite runs one tagged write: a pipelined TTL pre-read of the target
// and every tag set, then a single batch carrying the value write, the
// index-set additions, and the merged expirations.
func (x *index) taggedWrite(ctx context.Context, key string, ttl time.Duration, tags []string, ent string, write func(pipe storeCmds)) error {
	tks := tagKeys(tags)
	ttls, err := x.readTTLs(ctx, append([]string{key}, tks...))
	if err != nil {
		return err
	}

	pipe := x.store.Pipeline()
	write(pipe)
	queueMergedTTL(ctx, pipe, key, ttls[key], ttl)
	for _, tk := range tks {
		pipe.SAdd(ctx, tk, ent)
		queueMergedTTL(ctx, pipe, tk, ttls[tk], ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return fmt.Errorf("rediscache: tagged write %q: %w", key, err)
	}
	x.dropLocal(tags...)
	return nil
}

// setExpiration maps the ttl sentinels onto SET's expiration argument for
// untagged writes: NoTTL keeps whatever expiration the key already has,
// NeverExpire clears it.
func setExpiration(ttl time.Duration) time.Duration {
	switch ttl {
	case NoTTL:
		return redis.KeepTTL
	case NeverExpire:
		return 0
	default:
		return ttl
	}
}
