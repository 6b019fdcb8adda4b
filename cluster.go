package rediscache

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// forEachMaster runs fn once per master node of the deployment.
//
// Whole-database commands (flush, full keyspace scans) must be issued once
// per shard and never against a replica, which would be read-only or serve
// a stale view. A cluster-aware client already knows every master in the
// topology; a ring fans out to each shard; a standalone client is used
// directly unless it declares itself a replica.
func (x *index) forEachMaster(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	switch c := x.store.(type) {
	case *redis.ClusterClient:
		return c.ForEachMaster(ctx, func(ctx context.Context, m *redis.Client) error {
			return fn(ctx, m)
		})
	case *redis.Ring:
		return c.ForEachShard(ctx, func(ctx context.Context, m *redis.Client) error {
			return fn(ctx, m)
		})
	default:
		if x.isReplica(ctx) {
			x.log.Warn("store is a replica; skipping master-only operation", nil)
			return nil
		}
		return fn(ctx, x.store)
	}
}

// isReplica inspects INFO replication. Only a node that explicitly reports
// a replica role is skipped; if INFO is unavailable the node is assumed to
// be a standalone master.
func (x *index) isReplica(ctx context.Context) bool {
	info, err := x.store.Info(ctx, "replication").Result()
	if err != nil {
		x.log.Debug("replication info unavailable; assuming master", Fields{"err": err})
		return false
	}
	return strings.Contains(info, "role:slave")
}

// FlushAll flushes the database on every master node.
func (x *index) FlushAll(ctx context.Context) error {
	return x.forEachMaster(ctx, func(ctx context.Context, s Store) error {
		return s.FlushDB(ctx).Err()
	})
}

// KeysByPattern enumerates keys matching pattern across every master using
// a cursor-based SCAN, never a blocking KEYS.
func (x *index) KeysByPattern(ctx context.Context, pattern string) ([]string, error) {
	var (
		mu  sync.Mutex
		out []string
	)
	err := x.forEachMaster(ctx, func(ctx context.Context, s Store) error {
		iter := s.Scan(ctx, 0, pattern, x.scanCount).Iterator()
		for iter.Next(ctx) {
			mu.Lock()
			out = append(out, iter.Val())
			mu.Unlock()
		}
		return iter.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
