// Package codec defines the serializer used for stored values and for the
// member portion of set/sorted-set index entries.
//
// Membership tests compare the serialized bytes of a member against what
// was stored at write time, so a codec used with tagged set members must be
// deterministic: encoding the same value twice must yield identical bytes.
// JSON, Msgpack and CBOR all satisfy this for ordinary Go values.
package codec

// Codec encodes values to []byte and decodes them back into out, which
// must be a pointer.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(b []byte, out any) error
}
