package layout

// Kind identifies an item variant.
type Kind uint8

const (
	KindUint Kind = iota
	KindInt
	KindBytes
	KindArray
	KindSwitch
)

var kindNames = [...]string{
	KindUint:   "uint",
	KindInt:    "int",
	KindBytes:  "bytes",
	KindArray:  "array",
	KindSwitch: "switch",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Endianness selects the byte order of a multi-byte integer. The zero
// value is big endian, the codec's default.
type Endianness uint8

const (
	Big Endianness = iota
	Little
)

func (e Endianness) String() string {
	if e == Little {
		return "little"
	}
	return "big"
}

// DefaultIDTag is the key under which a switch's discriminant appears
// in decoded output when the item does not set IDTag.
const DefaultIDTag = "id"

// Item is one typed field of a layout. Unused attribute groups stay at
// their zero values; which groups apply is determined by Kind. Items
// are immutable once handed to an engine.
type Item struct {
	Name string
	Kind Kind

	// Numeric items: width in bytes, byte order, optional conversion.
	// Bytes items reuse Size as their declared region width and Custom
	// as their conversion.
	Size       int
	Endianness Endianness
	Custom     *Conversion

	// Bytes and array items: length prefix and nested layout. A bytes
	// item's prefix counts payload bytes, an array's counts elements.
	LengthSize       int
	LengthEndianness Endianness
	Layout           *Layout

	// Array items: fixed element count. HasLength distinguishes an
	// explicit zero length from an undeclared one.
	Length    int
	HasLength bool

	// Switch items.
	IDSize       int
	IDEndianness Endianness
	IDTag        string
	Cases        []Case
}

// Case is one branch of a switch item. Label, when set, replaces the
// wire id in decoded output and is what serialize matches against.
type Case struct {
	ID     uint64
	Label  any
	Layout Layout
}

// Layout is either a single unnamed item or an ordered sequence of
// named items (a proper layout).
type Layout struct {
	single *Item
	items  []Item
}

// Single wraps one unnamed item as a layout.
func Single(item Item) Layout {
	return Layout{single: &item}
}

// Of builds a proper layout from named items.
func Of(items ...Item) Layout {
	return Layout{items: items}
}

// IsSingle reports whether the layout is a single unnamed item.
func (l Layout) IsSingle() bool {
	return l.single != nil
}

// SingleItem returns the wrapped item of a single-item layout, or nil.
func (l Layout) SingleItem() *Item {
	return l.single
}

// Items returns the named items of a proper layout.
func (l Layout) Items() []Item {
	return l.items
}

// Empty reports whether the layout holds no items at all.
func (l Layout) Empty() bool {
	return l.single == nil && len(l.items) == 0
}

// idTag returns the effective discriminant key of a switch item.
func (it *Item) idTag() string {
	if it.IDTag != "" {
		return it.IDTag
	}
	return DefaultIDTag
}

// isBoundless reports whether the item consumes to the end of its
// enclosing region. Constant payloads carry their own length and are
// not boundless even without a declared size.
func (it *Item) isBoundless() bool {
	switch it.Kind {
	case KindBytes:
		if it.Size > 0 || it.LengthSize > 0 {
			return false
		}
		if c := it.Custom; c != nil && (c.Kind == ConvConst || c.Kind == ConvFixed) {
			return false
		}
		return true
	case KindArray:
		return !it.HasLength && it.LengthSize == 0
	default:
		return false
	}
}

// Item constructors. These cover the common shapes; the Item struct
// remains open for literal construction of anything else.

func UintItem(name string, size int) Item {
	return Item{Name: name, Kind: KindUint, Size: size}
}

func IntItem(name string, size int) Item {
	return Item{Name: name, Kind: KindInt, Size: size}
}

// FixedBytes declares a raw byte region of exactly size bytes.
func FixedBytes(name string, size int) Item {
	return Item{Name: name, Kind: KindBytes, Size: size}
}

// PrefixedBytes declares a byte region preceded by a lengthSize-byte
// count of payload bytes.
func PrefixedBytes(name string, lengthSize int) Item {
	return Item{Name: name, Kind: KindBytes, LengthSize: lengthSize}
}

// BoundlessBytes declares a byte region consuming to the end of the
// enclosing layout. Legal only in terminal position.
func BoundlessBytes(name string) Item {
	return Item{Name: name, Kind: KindBytes}
}

// LayoutBytes declares a byte region whose content is the
// serialization of a nested layout. Combine with Size or LengthSize by
// setting the field on the returned item.
func LayoutBytes(name string, nested Layout) Item {
	return Item{Name: name, Kind: KindBytes, Layout: &nested}
}

func FixedArray(name string, length int, elem Layout) Item {
	return Item{Name: name, Kind: KindArray, Length: length, HasLength: true, Layout: &elem}
}

func PrefixedArray(name string, lengthSize int, elem Layout) Item {
	return Item{Name: name, Kind: KindArray, LengthSize: lengthSize, Layout: &elem}
}

func BoundlessArray(name string, elem Layout) Item {
	return Item{Name: name, Kind: KindArray, Layout: &elem}
}

func SwitchItem(name string, idSize int, cases ...Case) Item {
	return Item{Name: name, Kind: KindSwitch, IDSize: idSize, Cases: cases}
}
