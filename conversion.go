package layout

import (
	"sync"
)

// ConversionKind identifies a conversion variant.
type ConversionKind uint8

const (
	// ConvConst pins the wire content to a constant. Encode verifies
	// the supplied value against it (unless Omit) and writes the
	// constant; decode verifies the read bytes and yields the constant.
	ConvConst ConversionKind = iota

	// ConvFixed behaves like a constant whose decoded face differs
	// from its wire face: From is written, To is what callers see.
	ConvFixed

	// ConvCustom is a user-supplied bidirectional transform. The codec
	// treats both directions as black boxes.
	ConvCustom
)

var conversionKindNames = [...]string{
	ConvConst:  "const",
	ConvFixed:  "fixed",
	ConvCustom: "custom",
}

func (k ConversionKind) String() string {
	if int(k) < len(conversionKindNames) {
		return conversionKindNames[k]
	}
	return "unknown"
}

// Conversion attaches value translation to a numeric or bytes item.
// Construct through NewConst, NewConstOmit, NewFixed, or NewCustom; a Conversion
// must be shared by pointer and never copied (it may carry a lazily
// computed wire cache).
type Conversion struct {
	Kind ConversionKind

	// ConvConst
	Const any

	// ConvFixed: wire value and decoded label. On a bytes item with a
	// nested layout, From is a structured object serialized through
	// that layout.
	From any
	To   any

	// ConvCustom: Encode maps a decoded value to its wire form (the
	// direction serialize needs), Decode maps a wire form back.
	Encode func(any) (any, error)
	Decode func(any) (any, error)

	// Omit removes the field from decoded output and from the values
	// serialize expects. Only valid on ConvConst.
	Omit bool

	wireOnce sync.Once
	wire     []byte
	wireErr  error
}

// NewConst builds a constant conversion.
func NewConst(v any) *Conversion {
	return &Conversion{Kind: ConvConst, Const: v}
}

// NewConstOmit builds a constant conversion whose field is absent from
// decoded and encoded objects.
func NewConstOmit(v any) *Conversion {
	return &Conversion{Kind: ConvConst, Const: v, Omit: true}
}

// NewFixed builds a fixed conversion: from is the wire value, to the
// decoded label.
func NewFixed(from, to any) *Conversion {
	return &Conversion{Kind: ConvFixed, From: from, To: to}
}

// NewCustom builds a custom conversion from an encode (decoded to
// wire) and decode (wire to decoded) pair.
func NewCustom(encode, decode func(any) (any, error)) *Conversion {
	return &Conversion{Kind: ConvCustom, Encode: encode, Decode: decode}
}

// fixedValue returns the wire-side value of a constant-like
// conversion: Const for ConvConst, From for ConvFixed.
func (c *Conversion) fixedValue() any {
	if c.Kind == ConvConst {
		return c.Const
	}
	return c.From
}

// decodedValue returns the caller-facing value of a constant-like
// conversion: Const for ConvConst, To for ConvFixed.
func (c *Conversion) decodedValue() any {
	if c.Kind == ConvConst {
		return c.Const
	}
	return c.To
}

// fixedObjectWire serializes the conversion's fixed object through the
// item's nested layout, once. Both engines share the result: serialize
// writes it, deserialize compares decoded regions against it. The
// write-once cache makes a shared layout safe for concurrent use.
func (c *Conversion) fixedObjectWire(nested Layout) ([]byte, error) {
	c.wireOnce.Do(func() {
		c.wire, c.wireErr = Serialize(nested, c.fixedValue())
	})
	return c.wire, c.wireErr
}

// clone returns a copy with a fresh wire cache. The endianness
// rewriter calls this when the nested layout a cache was computed
// against changes.
func (c *Conversion) clone() *Conversion {
	return &Conversion{
		Kind:   c.Kind,
		Const:  c.Const,
		From:   c.From,
		To:     c.To,
		Encode: c.Encode,
		Decode: c.Decode,
		Omit:   c.Omit,
	}
}
