package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/StockDrops/CachingFramework.Redis/internal/entry"
)

// tagKeyFormat maps a tag name to its index-set key. The version marker
// leaves room for future entry-format changes without clashing with old
// deployments.
const tagKeyFormat = ":$_tag-v1_$:%s"

// tagKeyPrefixLen is computed once from formatting the empty name, so tag
// enumeration can strip the prefix without a hardcoded length.
var tagKeyPrefixLen = len(fmt.Sprintf(tagKeyFormat, ""))

func tagKey(name string) string { return fmt.Sprintf(tagKeyFormat, name) }

func tagName(key string) string { return key[tagKeyPrefixLen:] }

func tagKeys(tags []string) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = tagKey(t)
	}
	return out
}

// AddTags registers an existing plain key under the given tags.
func (x *index) AddTags(ctx context.Context, key string, tags ...string) error {
	return x.addEntryTags(ctx, key, entry.Key(key), tags)
}

// AddFieldTags registers an existing hash field under the given tags.
func (x *index) AddFieldTags(ctx context.Context, key, field string, tags ...string) error {
	return x.addEntryTags(ctx, key, entry.Hash(key, field), tags)
}

// AddMemberTags registers an existing set/sorted-set member under the given
// tags. The member is serialized exactly as it was on write, so the entry
// matches the one a tagged AddToSet would have produced.
func (x *index) AddMemberTags(ctx context.Context, key string, member any, tags ...string) error {
	payload, err := x.codec.Encode(member)
	if err != nil {
		return fmt.Errorf("rediscache: encode member of %q: %w", key, err)
	}
	return x.addEntryTags(ctx, key, entry.Set(key, payload), tags)
}

// addEntryTags adds ent to every tag set and merges each set's expiration
// with the target's current TTL, so a tag set never expires before a live
// member it references.
func (x *index) addEntryTags(ctx context.Context, key, ent string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	tks := tagKeys(tags)
	ttls, err := x.readTTLs(ctx, append([]string{key}, tks...))
	if err != nil {
		return err
	}
	candidate := candidateFromTarget(ttls[key])

	pipe := x.store.Pipeline()
	for _, tk := range tks {
		pipe.SAdd(ctx, tk, ent)
		queueMergedTTL(ctx, pipe, tk, ttls[tk], candidate)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return fmt.Errorf("rediscache: add tags %q: %w", key, err)
	}
	x.dropLocal(tags...)
	return nil
}

// candidateFromTarget derives the tag-set TTL candidate from the target's
// current TTL: an unexpiring target pins its tags forever, a missing target
// leaves them untouched.
func candidateFromTarget(target time.Duration) time.Duration {
	switch {
	case target == -1:
		return NeverExpire
	case target > 0:
		return target
	default:
		return NoTTL
	}
}

// RemoveTags drops a plain key's entry from the given tag sets.
// An empty tag list is a successful no-op.
func (x *index) RemoveTags(ctx context.Context, key string, tags ...string) error {
	return x.removeEntryTags(ctx, entry.Key(key), tags)
}

// RemoveFieldTags drops a hash field's entry from the given tag sets.
func (x *index) RemoveFieldTags(ctx context.Context, key, field string, tags ...string) error {
	return x.removeEntryTags(ctx, entry.Hash(key, field), tags)
}

// RemoveMemberTags drops a set/sorted-set member's entry from the given tag sets.
func (x *index) RemoveMemberTags(ctx context.Context, key string, member any, tags ...string) error {
	payload, err := x.codec.Encode(member)
	if err != nil {
		return fmt.Errorf("rediscache: encode member of %q: %w", key, err)
	}
	return x.removeEntryTags(ctx, entry.Set(key, payload), tags)
}

func (x *index) removeEntryTags(ctx context.Context, ent string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	pipe := x.store.Pipeline()
	for _, tk := range tagKeys(tags) {
		pipe.SRem(ctx, tk, ent)
	}
	if _, err := pipe.Exec(ctx); err != nil && !ignorableCmdErr(err) {
		return fmt.Errorf("rediscache: remove tags: %w", err)
	}
	x.dropLocal(tags...)
	return nil
}

// RenameTagForKey moves a plain key's entry from oldTag to newTag.
// Renaming a tag to itself is a successful no-op.
func (x *index) RenameTagForKey(ctx context.Context, key, oldTag, newTag string) error {
	return x.renameEntryTag(ctx, entry.Key(key), oldTag, newTag)
}

// RenameTagForField moves a hash field's entry from oldTag to newTag.
func (x *index) RenameTagForField(ctx context.Context, key, field, oldTag, newTag string) error {
	return x.renameEntryTag(ctx, entry.Hash(key, field), oldTag, newTag)
}

// RenameTagForMember moves a set/sorted-set member's entry from oldTag to newTag.
func (x *index) RenameTagForMember(ctx context.Context, key string, member any, oldTag, newTag string) error {
	payload, err := x.codec.Encode(member)
	if err != nil {
		return fmt.Errorf("rediscache: encode member of %q: %w", key, err)
	}
	return x.renameEntryTag(ctx, entry.Set(key, payload), oldTag, newTag)
}

// renameEntryTag removes ent from the old tag set and adds it to the new
// one in a single batch. The two commands are not atomic as a pair: a
// concurrent raw reader can briefly observe the entry in neither tag.
func (x *index) renameEntryTag(ctx context.Context, ent, oldTag, newTag string) error {
	if oldTag == newTag {
		return nil
	}
	oldKey, newKey := tagKey(oldTag), tagKey(newTag)
	ttls, err := x.readTTLs(ctx, []string{oldKey, newKey})
	if err != nil {
		return err
	}

	pipe := x.store.Pipeline()
	pipe.SRem(ctx, oldKey, ent)
	pipe.SAdd(ctx, newKey, ent)
	// the new tag set must survive at least as long as the old one did
	queueMergedTTL(ctx, pipe, newKey, ttls[newKey], candidateFromTarget(ttls[oldKey]))
	if _, err := pipe.Exec(ctx); err != nil && !ignorableCmdErr(err) {
		return fmt.Errorf("rediscache: rename tag %q -> %q: %w", oldTag, newTag, err)
	}
	x.dropLocal(oldTag, newTag)
	return nil
}

// IsKeyInTag reports whether the plain key is a member of any of the tags.
func (x *index) IsKeyInTag(ctx context.Context, key string, tags ...string) (bool, error) {
	return x.entryInTags(ctx, entry.Key(key), tags)
}

// IsFieldInTag reports whether the hash field is a member of any of the tags.
func (x *index) IsFieldInTag(ctx context.Context, key, field string, tags ...string) (bool, error) {
	return x.entryInTags(ctx, entry.Hash(key, field), tags)
}

// IsMemberInTag reports whether the set/sorted-set member is a member of
// any of the tags.
func (x *index) IsMemberInTag(ctx context.Context, key string, member any, tags ...string) (bool, error) {
	payload, err := x.codec.Encode(member)
	if err != nil {
		return false, fmt.Errorf("rediscache: encode member of %q: %w", key, err)
	}
	return x.entryInTags(ctx, entry.Set(key, payload), tags)
}

func (x *index) entryInTags(ctx context.Context, ent string, tags []string) (bool, error) {
	if len(tags) == 0 {
		return false, nil
	}
	pipe := x.store.Pipeline()
	cmds := make([]*redis.BoolCmd, len(tags))
	for i, tk := range tagKeys(tags) {
		cmds[i] = pipe.SIsMember(ctx, tk, ent)
	}
	if _, err := pipe.Exec(ctx); err != nil && !ignorableCmdErr(err) {
		return false, err
	}
	for i, c := range cmds {
		if err := c.Err(); err != nil {
			if ignorableCmdErr(err) {
				if isWrongType(err) {
					x.hooks.WrongTypeTag(tags[i])
				}
				continue
			}
			return false, err
		}
		if c.Val() {
			return true, nil
		}
	}
	return false, nil
}

// TagNames enumerates every tag currently present across all masters by
// scanning for the tag key prefix and stripping it.
func (x *index) TagNames(ctx context.Context) ([]string, error) {
	keys, err := x.KeysByPattern(ctx, tagKey("*"))
	if err != nil {
		return nil, err
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = tagName(k)
	}
	return names, nil
}
