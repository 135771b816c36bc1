package layout

import (
	"bytes"
	stderrors "errors"
	"math/big"
	"testing"

	"github.com/nonergodic/layout/errors"
)

func TestSerialize_Numerics(t *testing.T) {
	tests := []struct {
		name string
		item Item
		data any
		want []byte
	}{
		{"u8", UintItem("", 1), uint64(0xAB), []byte{0xAB}},
		{"u16 big default", UintItem("", 2), uint64(0x1234), []byte{0x12, 0x34}},
		{
			"u16 little",
			Item{Kind: KindUint, Size: 2, Endianness: Little},
			uint64(0x1234),
			[]byte{0x34, 0x12},
		},
		{"u24", UintItem("", 3), uint64(0x010203), []byte{1, 2, 3}},
		{"i16 negative", IntItem("", 2), int64(-2), []byte{0xFF, 0xFE}},
		{
			"i16 little negative",
			Item{Kind: KindInt, Size: 2, Endianness: Little},
			int64(-2),
			[]byte{0xFE, 0xFF},
		},
		{"int accepted for uint field", UintItem("", 2), 80, []byte{0, 80}},
		{"integral float accepted", UintItem("", 1), float64(7), []byte{7}},
		{
			"u72 bigint",
			UintItem("", 9),
			new(big.Int).SetBytes([]byte{0x10, 0x01}),
			[]byte{0, 0, 0, 0, 0, 0, 0, 0x10, 0x01},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Serialize(Single(tt.item), tt.data)
			if err != nil {
				t.Fatalf("Serialize: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Serialize = %x, want %x", got, tt.want)
			}
		})
	}
}

func TestSerialize_OutOfRange(t *testing.T) {
	tests := []struct {
		name string
		item Item
		data any
	}{
		{"u8 overflow", UintItem("", 1), uint64(256)},
		{"u8 negative", UintItem("", 1), int64(-1)},
		{"i8 overflow", IntItem("", 1), int64(128)},
		{"i8 underflow", IntItem("", 1), int64(-129)},
		{"non-integer float", UintItem("", 2), float64(2.5)},
		{"non-numeric", UintItem("", 2), "12"},
		{
			"u16 bigint overflow",
			UintItem("", 2),
			new(big.Int).Lsh(big.NewInt(1), 16),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Serialize(Single(tt.item), tt.data)
			if !stderrors.Is(err, &errors.Error{
				Phase: errors.PhaseSerialize,
				Kind:  errors.KindOutOfRange,
			}) {
				t.Errorf("err = %v, want out_of_range", err)
			}
		})
	}
}

func TestSerialize_SignedBoundaries(t *testing.T) {
	for _, v := range []int64{-128, 127} {
		if _, err := Serialize(Single(IntItem("", 1)), v); err != nil {
			t.Errorf("int8 %d should serialize: %v", v, err)
		}
	}
	for _, v := range []uint64{0, 255} {
		if _, err := Serialize(Single(UintItem("", 1)), v); err != nil {
			t.Errorf("uint8 %d should serialize: %v", v, err)
		}
	}
}

func TestSerialize_BytesShapes(t *testing.T) {
	t.Run("fixed size enforced", func(t *testing.T) {
		got, err := Serialize(Single(FixedBytes("", 3)), []byte{1, 2, 3})
		if err != nil {
			t.Fatalf("Serialize: %v", err)
		}
		if !bytes.Equal(got, []byte{1, 2, 3}) {
			t.Errorf("got %x", got)
		}

		_, err = Serialize(Single(FixedBytes("", 3)), []byte{1, 2})
		if !stderrors.Is(err, &errors.Error{
			Phase: errors.PhaseSerialize,
			Kind:  errors.KindSizeMismatch,
		}) {
			t.Errorf("short payload err = %v, want size_mismatch", err)
		}
	})

	t.Run("length prefix patched after payload", func(t *testing.T) {
		got, err := Serialize(Single(PrefixedBytes("", 2)), []byte{9, 8, 7})
		if err != nil {
			t.Fatalf("Serialize: %v", err)
		}
		if !bytes.Equal(got, []byte{0, 3, 9, 8, 7}) {
			t.Errorf("got %x", got)
		}
	})

	t.Run("little endian prefix", func(t *testing.T) {
		it := PrefixedBytes("", 2)
		it.LengthEndianness = Little
		got, err := Serialize(Single(it), []byte{9})
		if err != nil {
			t.Fatalf("Serialize: %v", err)
		}
		if !bytes.Equal(got, []byte{1, 0, 9}) {
			t.Errorf("got %x", got)
		}
	})

	t.Run("payload too long for prefix", func(t *testing.T) {
		_, err := Serialize(Single(PrefixedBytes("", 1)), make([]byte, 256))
		if !stderrors.Is(err, &errors.Error{
			Phase: errors.PhaseSerialize,
			Kind:  errors.KindOutOfRange,
		}) {
			t.Errorf("err = %v, want out_of_range", err)
		}
	})

	t.Run("nested layout fills region", func(t *testing.T) {
		l := Single(LayoutBytes("", Of(UintItem("a", 2), UintItem("b", 1))))
		got, err := Serialize(l, map[string]any{"a": uint64(0x0102), "b": uint64(3)})
		if err != nil {
			t.Fatalf("Serialize: %v", err)
		}
		if !bytes.Equal(got, []byte{1, 2, 3}) {
			t.Errorf("got %x", got)
		}
	})

	t.Run("prefixed nested layout", func(t *testing.T) {
		it := LayoutBytes("", Of(UintItem("a", 2)))
		it.LengthSize = 1
		got, err := Serialize(Single(it), map[string]any{"a": uint64(7)})
		if err != nil {
			t.Fatalf("Serialize: %v", err)
		}
		if !bytes.Equal(got, []byte{2, 0, 7}) {
			t.Errorf("got %x", got)
		}
	})
}

func TestSerialize_Constants(t *testing.T) {
	t.Run("numeric constant written and checked", func(t *testing.T) {
		it := UintItem("magic", 1)
		it.Custom = NewConst(42)
		l := Of(it)

		got, err := Serialize(l, map[string]any{"magic": uint64(42)})
		if err != nil {
			t.Fatalf("Serialize: %v", err)
		}
		if !bytes.Equal(got, []byte{42}) {
			t.Errorf("got %x", got)
		}

		_, err = Serialize(l, map[string]any{"magic": uint64(43)})
		if !stderrors.Is(err, &errors.Error{
			Phase: errors.PhaseSerialize,
			Kind:  errors.KindConstMismatch,
		}) {
			t.Errorf("err = %v, want constant_mismatch", err)
		}
	})

	t.Run("omitted constant needs no data", func(t *testing.T) {
		it := BoundlessBytes("header")
		it.Custom = NewConstOmit([]byte{0, 42})
		l := Of(it, UintItem("v", 1))

		got, err := Serialize(l, map[string]any{"v": uint64(7)})
		if err != nil {
			t.Fatalf("Serialize: %v", err)
		}
		if !bytes.Equal(got, []byte{0, 42, 7}) {
			t.Errorf("got %x", got)
		}
	})

	t.Run("fixed conversion writes wire face", func(t *testing.T) {
		it := UintItem("tag", 1)
		it.Custom = NewFixed(4, "IPv4")
		l := Of(it)

		got, err := Serialize(l, map[string]any{"tag": "IPv4"})
		if err != nil {
			t.Fatalf("Serialize: %v", err)
		}
		if !bytes.Equal(got, []byte{4}) {
			t.Errorf("got %x", got)
		}

		_, err = Serialize(l, map[string]any{"tag": "IPv6"})
		if !stderrors.Is(err, &errors.Error{
			Phase: errors.PhaseSerialize,
			Kind:  errors.KindConstMismatch,
		}) {
			t.Errorf("err = %v, want constant_mismatch", err)
		}
	})
}

func TestSerialize_Arrays(t *testing.T) {
	t.Run("fixed length asserted", func(t *testing.T) {
		l := Single(FixedArray("", 3, Single(UintItem("", 1))))
		got, err := Serialize(l, []any{uint64(1), uint64(2), uint64(3)})
		if err != nil {
			t.Fatalf("Serialize: %v", err)
		}
		if !bytes.Equal(got, []byte{1, 2, 3}) {
			t.Errorf("got %x", got)
		}

		_, err = Serialize(l, []any{uint64(1)})
		if !stderrors.Is(err, &errors.Error{
			Phase: errors.PhaseSerialize,
			Kind:  errors.KindSizeMismatch,
		}) {
			t.Errorf("err = %v, want size_mismatch", err)
		}
	})

	t.Run("prefixed counts elements", func(t *testing.T) {
		l := Single(PrefixedArray("", 1, Single(UintItem("", 2))))
		got, err := Serialize(l, []any{uint64(1), uint64(2)})
		if err != nil {
			t.Fatalf("Serialize: %v", err)
		}
		if !bytes.Equal(got, []byte{2, 0, 1, 0, 2}) {
			t.Errorf("got %x", got)
		}
	})

	t.Run("typed slices accepted", func(t *testing.T) {
		l := Single(BoundlessArray("", Single(UintItem("", 1))))
		got, err := Serialize(l, []uint64{5, 6})
		if err != nil {
			t.Fatalf("Serialize: %v", err)
		}
		if !bytes.Equal(got, []byte{5, 6}) {
			t.Errorf("got %x", got)
		}
	})
}

func TestSerialize_Switch(t *testing.T) {
	sw := SwitchItem("addr", 1,
		Case{ID: 1, Label: "Name", Layout: Of(PrefixedBytes("value", 1))},
		Case{ID: 4, Label: "IPv4", Layout: Of(FixedBytes("value", 4))},
	)
	sw.IDTag = "type"
	l := Of(sw)

	t.Run("label selects branch", func(t *testing.T) {
		got, err := Serialize(l, map[string]any{
			"addr": map[string]any{"type": "IPv4", "value": []byte{127, 0, 0, 1}},
		})
		if err != nil {
			t.Fatalf("Serialize: %v", err)
		}
		if !bytes.Equal(got, []byte{4, 127, 0, 0, 1}) {
			t.Errorf("got %x", got)
		}
	})

	t.Run("plain id matches unlabelled case", func(t *testing.T) {
		plain := Single(SwitchItem("", 1,
			Case{ID: 7, Layout: Of(UintItem("v", 1))},
		))
		got, err := Serialize(plain, map[string]any{"id": uint64(7), "v": uint64(9)})
		if err != nil {
			t.Fatalf("Serialize: %v", err)
		}
		if !bytes.Equal(got, []byte{7, 9}) {
			t.Errorf("got %x", got)
		}
	})

	t.Run("unmatched discriminant", func(t *testing.T) {
		_, err := Serialize(l, map[string]any{
			"addr": map[string]any{"type": "IPv6", "value": []byte{}},
		})
		if !stderrors.Is(err, &errors.Error{
			Phase: errors.PhaseSerialize,
			Kind:  errors.KindUnknownSwitchID,
		}) {
			t.Errorf("err = %v, want unknown_switch_id", err)
		}
	})

	t.Run("missing discriminant", func(t *testing.T) {
		_, err := Serialize(l, map[string]any{
			"addr": map[string]any{"value": []byte{1, 2, 3, 4}},
		})
		if !stderrors.Is(err, &errors.Error{
			Phase: errors.PhaseSerialize,
			Kind:  errors.KindUnknownField,
		}) {
			t.Errorf("err = %v, want unknown_field", err)
		}
	})
}

func TestSerialize_MissingField(t *testing.T) {
	_, err := Serialize(Of(UintItem("port", 2)), map[string]any{})
	if !stderrors.Is(err, &errors.Error{
		Phase: errors.PhaseSize,
		Kind:  errors.KindUnknownField,
	}) {
		t.Errorf("err = %v, want unknown_field", err)
	}
}

func TestSerialize_ErrorPathNamesItem(t *testing.T) {
	l := Of(UintItem("header", 1), UintItem("port", 2))
	_, err := Serialize(l, map[string]any{"header": uint64(1), "port": uint64(70000)})
	if err == nil {
		t.Fatal("expected error")
	}
	var le *errors.Error
	if !stderrors.As(err, &le) {
		t.Fatalf("err type %T", err)
	}
	if len(le.Path) == 0 || le.Path[0] != "port" {
		t.Errorf("path = %v, want to start with port", le.Path)
	}
}

func TestSerializeInto(t *testing.T) {
	l := Of(UintItem("a", 2))
	data := map[string]any{"a": uint64(0x0102)}

	buf := make([]byte, 10)
	n, err := SerializeInto(l, data, buf)
	if err != nil {
		t.Fatalf("SerializeInto: %v", err)
	}
	if n != 2 {
		t.Errorf("n = %d, want 2", n)
	}
	if !bytes.Equal(buf[:2], []byte{1, 2}) {
		t.Errorf("buf = %x", buf[:2])
	}

	if _, err := SerializeInto(l, data, make([]byte, 1)); err == nil {
		t.Error("undersized buffer must fail")
	}
}

func TestSerialize_ConversionRunsOnce(t *testing.T) {
	calls := 0
	it := PrefixedBytes("payload", 1)
	it.Custom = NewCustom(
		func(v any) (any, error) {
			calls++
			return []byte(v.(string)), nil
		},
		func(v any) (any, error) {
			return string(v.([]byte)), nil
		},
	)
	l := Of(it)

	got, err := Serialize(l, map[string]any{"payload": "hi"})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !bytes.Equal(got, []byte{2, 'h', 'i'}) {
		t.Errorf("got %x", got)
	}
	if calls != 1 {
		t.Errorf("encode conversion ran %d times, want 1", calls)
	}
}
