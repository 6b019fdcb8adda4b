package rediscache

import (
	"github.com/StockDrops/CachingFramework.Redis/internal/entry"
)

// MemberKind discriminates what an index entry points at.
type MemberKind uint8

const (
	KindKey MemberKind = iota
	KindHashField
	KindSetMember
)

func (k MemberKind) String() string {
	switch k {
	case KindKey:
		return "key"
	case KindHashField:
		return "hash-field"
	case KindSetMember:
		return "set-member"
	default:
		return "unknown"
	}
}

// TaggedMember describes one index entry of a tag.
// Payload is the raw field name for hash fields, or the serialized member
// bytes for set/sorted-set members; it is nil for plain keys.
type TaggedMember struct {
	Key     string
	Kind    MemberKind
	Payload []byte
}

func toTaggedMember(m entry.Member) TaggedMember {
	out := TaggedMember{Key: m.Key, Payload: m.Payload}
	switch m.Kind {
	case entry.HashField:
		out.Kind = KindHashField
	case entry.SetMember:
		out.Kind = KindSetMember
	default:
		out.Kind = KindKey
	}
	return out
}
