package rediscache

import (
	"context"
	"time"

	c "github.com/StockDrops/CachingFramework.Redis/codec"
)

// TTL sentinels accepted by every tagged write.
const (
	// NoTTL requests no expiration change: existing expirations on the
	// target and its tag sets are left untouched.
	NoTTL time.Duration = 0

	// NeverExpire removes expiration from the touched keys (PERSIST).
	NeverExpire time.Duration = -1
)

// TagIndex is the tag-based grouping and invalidation API.
// All operations are single round trips or pipelined batches; none of them
// retries on store failure.
type TagIndex interface {
	// Tagged writes. A positive ttl is merged with the current expiration
	// of every touched key (the longest survives, see mergeTTL).
	Set(ctx context.Context, key string, value any, ttl time.Duration, tags ...string) error
	SetHashField(ctx context.Context, key, field string, value any, ttl time.Duration, tags ...string) error
	AddToSet(ctx context.Context, key string, member any, ttl time.Duration, tags ...string) error
	AddToSortedSet(ctx context.Context, key string, score float64, member any, ttl time.Duration, tags ...string) error

	// Get decodes the value stored at key into out.
	// Returns (false, nil) on a miss.
	Get(ctx context.Context, key string, out any) (bool, error)

	// Tag maintenance for already-written targets. Tagging a target keeps
	// each tag set alive at least as long as the target itself.
	// Empty tag lists and self-renames are successful no-ops.
	AddTags(ctx context.Context, key string, tags ...string) error
	AddFieldTags(ctx context.Context, key, field string, tags ...string) error
	AddMemberTags(ctx context.Context, key string, member any, tags ...string) error
	RemoveTags(ctx context.Context, key string, tags ...string) error
	RemoveFieldTags(ctx context.Context, key, field string, tags ...string) error
	RemoveMemberTags(ctx context.Context, key string, member any, tags ...string) error
	RenameTagForKey(ctx context.Context, key, oldTag, newTag string) error
	RenameTagForField(ctx context.Context, key, field, oldTag, newTag string) error
	RenameTagForMember(ctx context.Context, key string, member any, oldTag, newTag string) error

	// GetKeysByTag returns the de-duplicated union of index entries across
	// the given tags, verbatim. With cleanup=true every entry is verified
	// against the store and dangling entries are pruned before returning.
	GetKeysByTag(ctx context.Context, tags []string, cleanup bool) ([]string, error)

	// GetMembersByTag returns one typed description per index entry of a tag.
	GetMembersByTag(ctx context.Context, tag string, cleanup bool) ([]TaggedMember, error)

	// Point membership tests against one or more tags.
	IsKeyInTag(ctx context.Context, key string, tags ...string) (bool, error)
	IsFieldInTag(ctx context.Context, key, field string, tags ...string) (bool, error)
	IsMemberInTag(ctx context.Context, key string, member any, tags ...string) (bool, error)

	// InvalidateTags deletes every target referenced by the given tags and
	// then the tag sets themselves, as one pipelined batch. Targets that are
	// already gone are successful no-ops.
	InvalidateTags(ctx context.Context, tags ...string) error

	// TagNames enumerates every tag currently present, across all masters.
	TagNames(ctx context.Context) ([]string, error)

	// KeysByPattern scans the whole keyspace of every master with a cursor.
	KeysByPattern(ctx context.Context, pattern string) ([]string, error)

	// FlushAll flushes the database on every master node.
	FlushAll(ctx context.Context) error

	Close(ctx context.Context) error
}

// Options tune the index. Only Store and Codec are required.
type Options struct {
	// Required
	Store Store   // any redis.UniversalClient
	Codec c.Codec // serializes values and set members

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used

	// Local enables in-process memoization of raw tag reads. Freshness is
	// best effort and single-process; verified reads and invalidation
	// always go to the store.
	Local    LocalCache
	LocalTTL time.Duration // 0 => 2s

	ScanCount int64 // SCAN page size; 0 => 1000
}

func New(opts Options) (TagIndex, error) {
	return newIndex(opts)
}
