// Package rediscache maintains a tag index on top of a Redis deployment.
// Arbitrary tags can be attached to plain keys, hash fields, and set or
// sorted-set members when they are written; every member of a tag can later
// be enumerated or invalidated in bulk. Redis itself owns durability,
// replication, eviction, and expiration - this layer only keeps the reverse
// index consistent.
//
// Components:
//   - Store: the slice of the go-redis client surface the index consumes.
//     Any redis.UniversalClient satisfies it.
//   - Codec: (de)serializes values and set members <-> []byte.
//   - LocalCache: optional in-process memoization of raw tag reads
//     (e.g. Ristretto, BigCache).
//
// Keys:
//
//	:$_tag-v1_$:<tag>  - one Redis set per tag; members are index entries
//
// Index entries:
//
//	<key>                      - plain key
//	<key>:$_->_$:<field>       - hash field (field stored raw)
//	<key>:$_-S>_$:<member>     - set/sorted-set member (member serialized)
//
// The index holds weak references: a target may expire or be deleted
// independently of its tags. Raw reads return entries verbatim; verified
// reads check each target and prune dangling entries as a side effect.
package rediscache
