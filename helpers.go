package layout

import (
	"sort"
	"unicode/utf8"

	"github.com/nonergodic/layout/errors"
)

// Helper item constructors built purely on the public algebra. The
// engines know nothing about them: each is an ordinary item with a
// custom or fixed conversion.

// BoolItem declares a 1-byte boolean with strict 0/1 wire values.
func BoolItem(name string) Item {
	it := UintItem(name, 1)
	it.Custom = NewCustom(
		func(v any) (any, error) {
			b, ok := v.(bool)
			if !ok {
				return nil, errors.New(errors.PhaseSerialize, errors.KindConstMismatch).
					Detail("bool item expects bool, got %T", v).
					Build()
			}
			if b {
				return uint64(1), nil
			}
			return uint64(0), nil
		},
		func(v any) (any, error) {
			switch v.(uint64) {
			case 0:
				return false, nil
			case 1:
				return true, nil
			}
			return nil, errors.ConstMismatch(errors.PhaseDeserialize, "0 or 1", v)
		},
	)
	return it
}

// EnumItem declares a numeric field decoded to a name from the given
// wire-value mapping. Unknown wire values fail decoding; unknown names
// fail encoding.
func EnumItem(name string, size int, values map[uint64]string) Item {
	it := UintItem(name, size)
	it.Custom = NewCustom(
		func(v any) (any, error) {
			label, ok := v.(string)
			if !ok {
				return nil, errors.New(errors.PhaseSerialize, errors.KindConstMismatch).
					Detail("enum item expects string, got %T", v).
					Build()
			}
			for wire, n := range values {
				if n == label {
					return wire, nil
				}
			}
			return nil, errors.ConstMismatch(errors.PhaseSerialize, enumDomain(values), label)
		},
		func(v any) (any, error) {
			wire, ok := v.(uint64)
			if !ok {
				return nil, errors.ConstMismatch(errors.PhaseDeserialize, enumDomain(values), v)
			}
			label, ok := values[wire]
			if !ok {
				return nil, errors.ConstMismatch(errors.PhaseDeserialize, enumDomain(values), wire)
			}
			return label, nil
		},
	)
	return it
}

func enumDomain(values map[uint64]string) string {
	names := make([]string, 0, len(values))
	for _, n := range values {
		names = append(names, n)
	}
	sort.Strings(names)
	out := ""
	for i, n := range names {
		if i > 0 {
			out += "|"
		}
		out += n
	}
	return out
}

// OptionItem declares an optional payload behind a 1-byte presence
// tag. A decoded value is a map with "present" set to "none" or
// "some", the latter alongside the payload under "value".
func OptionItem(name string, inner Item) Item {
	inner.Name = "value"
	it := SwitchItem(name, 1,
		Case{ID: 0, Label: "none", Layout: Of()},
		Case{ID: 1, Label: "some", Layout: Of(inner)},
	)
	it.IDTag = "present"
	return it
}

// BitsetItem declares a fixed byte span decoded to a set of named
// flags, MSB first: names[0] is bit 7 of the first byte.
func BitsetItem(name string, flags []string) Item {
	size := (len(flags) + 7) / 8
	it := FixedBytes(name, size)
	it.Custom = NewCustom(
		func(v any) (any, error) {
			set, ok := v.(map[string]bool)
			if !ok {
				return nil, errors.New(errors.PhaseSerialize, errors.KindConstMismatch).
					Detail("bitset item expects map[string]bool, got %T", v).
					Build()
			}
			wire := make([]byte, size)
			for i, flag := range flags {
				if set[flag] {
					wire[i/8] |= 1 << (7 - i%8)
				}
			}
			return wire, nil
		},
		func(v any) (any, error) {
			wire := v.([]byte)
			set := make(map[string]bool, len(flags))
			for i, flag := range flags {
				set[flag] = wire[i/8]&(1<<(7-i%8)) != 0
			}
			return set, nil
		},
	)
	return it
}

// StringItem declares a length-prefixed UTF-8 string.
func StringItem(name string, lengthSize int) Item {
	it := PrefixedBytes(name, lengthSize)
	it.Custom = NewCustom(
		func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, errors.New(errors.PhaseSerialize, errors.KindConstMismatch).
					Detail("string item expects string, got %T", v).
					Build()
			}
			return []byte(s), nil
		},
		func(v any) (any, error) {
			b := v.([]byte)
			if !utf8.Valid(b) {
				return nil, errors.New(errors.PhaseDeserialize, errors.KindConstMismatch).
					Detail("invalid UTF-8 sequence: %x", preview(b)).
					Build()
			}
			return string(b), nil
		},
	)
	return it
}

func preview(b []byte) []byte {
	if len(b) > 32 {
		return b[:32]
	}
	return b
}
