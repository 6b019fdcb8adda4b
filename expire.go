package rediscache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type ttlAction uint8

const (
	ttlNone ttlAction = iota
	ttlExpire
	ttlPersist
)

// mergeTTL resolves the expiration to apply to a key touched by a tagged
// write. current follows go-redis TTL conventions (-2 key missing, -1 no
// expiration); candidate is the caller's ttl (NoTTL, NeverExpire, or a
// positive duration).
//
// The longest-surviving expiration wins: a repeat write with a shorter ttl
// must not truncate the visibility window of an earlier, longer-lived one,
// or tag sets could expire while still referencing live members.
func mergeTTL(current, candidate time.Duration) (ttlAction, time.Duration) {
	switch {
	case candidate == NoTTL:
		return ttlNone, 0
	case candidate == NeverExpire:
		return ttlPersist, 0
	case current > 0 && current > candidate:
		return ttlExpire, current
	default:
		// key missing or without expiration: the candidate applies as-is
		return ttlExpire, candidate
	}
}

// queueMergedTTL queues the resolved EXPIRE/PERSIST for key on the pipeline.
func queueMergedTTL(ctx context.Context, pipe storeCmds, key string, current, candidate time.Duration) {
	act, d := mergeTTL(current, candidate)
	switch act {
	case ttlExpire:
		pipe.Expire(ctx, key, d)
	case ttlPersist:
		pipe.Persist(ctx, key)
	}
}

// readTTLs fetches the current TTL of every key in one pipelined batch.
func (x *index) readTTLs(ctx context.Context, keys []string) (map[string]time.Duration, error) {
	pipe := x.store.Pipeline()
	cmds := make(map[string]*redis.DurationCmd, len(keys))
	for _, k := range keys {
		if _, ok := cmds[k]; ok {
			continue
		}
		cmds[k] = pipe.TTL(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}
	out := make(map[string]time.Duration, len(cmds))
	for k, c := range cmds {
		out[k] = c.Val()
	}
	return out, nil
}
