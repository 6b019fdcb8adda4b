package rediscache

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// LocalCache is an optional in-process byte cache used to memoize raw tag
// reads (see localcache/ristretto and localcache/bigcache). Implementations
// must be safe for concurrent use. Entries are dropped locally whenever
// this process mutates the tag; writers in other processes are only picked
// up after the entry's TTL elapses.
type LocalCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Del(key string)
	Close() error
}

// localEntries returns the memoized member list of a tag, if fresh.
func (x *index) localEntries(tag string) ([]string, bool) {
	if x.local == nil {
		return nil, false
	}
	b, ok := x.local.Get(tagKey(tag))
	if !ok {
		x.hooks.LocalMiss(tag)
		return nil, false
	}
	var ents []string
	if err := msgpack.Unmarshal(b, &ents); err != nil {
		// foreign or corrupt entry; drop it
		x.local.Del(tagKey(tag))
		x.hooks.LocalMiss(tag)
		return nil, false
	}
	x.hooks.LocalHit(tag)
	return ents, true
}

func (x *index) storeLocal(tag string, ents []string) {
	if x.local == nil {
		return
	}
	b, err := msgpack.Marshal(ents)
	if err != nil {
		return
	}
	x.local.Set(tagKey(tag), b, x.localTTL)
}

func (x *index) dropLocal(tags ...string) {
	if x.local == nil {
		return
	}
	for _, t := range tags {
		x.local.Del(tagKey(t))
	}
}
