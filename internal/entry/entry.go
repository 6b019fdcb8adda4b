// Package entry formats and parses the byte strings stored as members of a
// tag's index set. One string shape covers three targets: a plain key, a
// field of a hash key, or a serialized member of a set/sorted-set key.
package entry

import "strings"

// Separator sentinels. Multi-character sequences chosen so that neither is
// likely to occur inside a real key name and neither is a substring of the
// other. The hash separator is always scanned first; Parse depends on that
// ordering when a key name happens to contain one of the tokens.
const (
	hashSep = ":$_->_$:"
	setSep  = ":$_-S>_$:"
)

// Kind of target an entry points at.
type Kind uint8

const (
	PlainKey Kind = iota
	HashField
	SetMember
)

// Member is a parsed index entry.
type Member struct {
	Key     string
	Kind    Kind
	Payload []byte // raw field bytes or serialized member; nil for PlainKey
}

// Key returns the entry for a plain key: the key itself, no marker.
func Key(key string) string { return key }

// Hash returns the entry for a field of a hash key.
// The field is stored raw, not serialized.
func Hash(key, field string) string { return key + hashSep + field }

// Set returns the entry for a serialized set or sorted-set member.
func Set(key string, member []byte) string { return key + setSep + string(member) }

// For builds the entry for an already-parsed member.
func For(m Member) string {
	switch m.Kind {
	case HashField:
		return Hash(m.Key, string(m.Payload))
	case SetMember:
		return Set(m.Key, m.Payload)
	default:
		return Key(m.Key)
	}
}

// Parse splits an entry on the first occurrence of a separator. The hash
// separator wins when both are present. An entry matching neither is a
// plain key by policy, never an error.
func Parse(s string) Member {
	if i := strings.Index(s, hashSep); i >= 0 {
		return Member{Key: s[:i], Kind: HashField, Payload: []byte(s[i+len(hashSep):])}
	}
	if i := strings.Index(s, setSep); i >= 0 {
		return Member{Key: s[:i], Kind: SetMember, Payload: []byte(s[i+len(setSep):])}
	}
	return Member{Key: s, Kind: PlainKey}
}
