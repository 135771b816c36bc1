// Package layout provides a declarative binary codec.
//
// Users describe the byte-level shape of a message as a layout value
// and obtain three services derived mechanically from it: a serializer
// (value to bytes), a deserializer (bytes to value), and a
// discriminator (bytes to the index of the matching layout in a fixed
// set). The layout is plain data; no code generation is involved.
//
// # Layout Algebra
//
// A layout is either a single unnamed item or an ordered sequence of
// named items. Items come in five kinds:
//
//	Kind     Wire form
//	─────────────────────────────────────────────────────
//	uint     1..6 byte native integer, up to 32 arbitrary
//	int      same widths, two's complement
//	bytes    fixed, length-prefixed, or boundless region,
//	         optionally structured by a nested layout
//	array    fixed-count, count-prefixed, or boundless
//	         repetition of a nested layout
//	switch   integer discriminant selecting one branch
//
// Numeric and bytes items may carry a Conversion: a constant (wire
// content pinned, optionally omitted from decoded values), a fixed
// conversion (constant wire face, friendlier decoded face), or a
// custom conversion (user-supplied bidirectional transform).
//
// # Key Functions
//
//	Serialize / SerializeInto     - value to bytes
//	Deserialize / DeserializePartial - bytes to value
//	CalcSize / CalcStaticSize     - data-driven and static sizing
//	SetEndianness                 - uniform byte order rewrite
//	FixedItemsOf / DynamicItemsOf - split into layout-determined and
//	                                caller-supplied fields
//	AddFixedValues                - rehydrate a full value from the
//	                                dynamic half
//	BuildDiscriminator            - compile a set of layouts into a
//	                                classifier over buffers
//
// # Value Binding
//
// Proper layouts bind to map[string]any, arrays to slices, bytes to
// []byte, and numerics to any Go integer (plus integral floats and
// *big.Int). Decoding narrows numerics up to 6 bytes wide to
// uint64/int64 and yields *big.Int beyond; untransformed bytes fields
// decode as views of the input buffer, not copies.
//
// # Serialization Flow
//
// Serialize runs the size engine once to pre-size the buffer; custom
// conversion outputs produced during sizing are queued and replayed by
// the write pass, so each user conversion function runs exactly once
// per call. Length prefixes are reserved up front and patched in place
// after their payload is written.
//
// # Discrimination
//
// BuildDiscriminator summarizes each candidate (accepted size bounds
// plus a per-position byte oracle) and compiles a decision tree over
// two primitives: buffer length and byte-at-position. Classification
// never deserializes; it returns the unique structurally compatible
// candidate or none, including for inputs compatible with more than
// one candidate.
//
// # Thread Safety
//
// Layouts are immutable once constructed and safe to share across
// goroutines. The only mutable state on a layout is the write-once
// cache of a fixed object conversion's serialized form; concurrent
// first uses compute identical bytes. Each Serialize or Deserialize
// call owns its cursor exclusively.
//
// # Error Handling
//
// Errors use the structured types from the errors package and carry
// the path of named items to the offending field:
//
//	[serialize] out_of_range at header.port: value 70000 does not fit uint of 2 bytes
//	[deserialize] unknown_switch_id at address: wire id 7 has no matching branch
package layout
