package rediscache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// storeCmds is the command surface shared by a Store and a pipeline, so the
// same helpers can queue commands on either.
type storeCmds interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd

	TTL(ctx context.Context, key string) *redis.DurationCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Persist(ctx context.Context, key string) *redis.BoolCmd
	Type(ctx context.Context, key string) *redis.StatusCmd

	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
	HExists(ctx context.Context, key, field string) *redis.BoolCmd

	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SIsMember(ctx context.Context, key string, member interface{}) *redis.BoolCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd

	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	ZRank(ctx context.Context, key, member string) *redis.IntCmd

	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	FlushDB(ctx context.Context) *redis.StatusCmd
	Info(ctx context.Context, section ...string) *redis.StringCmd
}

// Store is the slice of the go-redis client surface the index consumes.
// redis.UniversalClient satisfies it, so a *redis.Client, *redis.Ring or
// *redis.ClusterClient can be passed as-is. Cluster-wide administrative
// operations inspect the concrete type to enumerate master nodes.
type Store interface {
	storeCmds

	Pipeline() redis.Pipeliner
	Close() error
}

var (
	_ Store     = (redis.UniversalClient)(nil)
	_ storeCmds = (redis.Pipeliner)(nil)
)
