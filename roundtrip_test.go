package layout

import (
	"bytes"
	"math"
	"math/big"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nonergodic/layout/errors"
)

// endpointLayout is the endpoint message: an omitted two-byte header
// constant, an address switch discriminated by a one-byte id, and a
// big-endian port.
func endpointLayout() Layout {
	header := BoundlessBytes("header")
	header.Custom = NewConstOmit([]byte{0, 42})

	addr := SwitchItem("address", 1,
		Case{ID: 1, Label: "Name", Layout: Of(StringItem("value", 2))},
		Case{ID: 4, Label: "IPv4", Layout: Of(FixedArray("value", 4, Single(UintItem("", 1))))},
	)
	addr.IDTag = "type"

	return Of(header, addr, UintItem("port", 2))
}

func TestEndpoint_IPv4(t *testing.T) {
	l := endpointLayout()
	value := map[string]any{
		"address": map[string]any{
			"type":  "IPv4",
			"value": []any{uint64(127), uint64(0), uint64(0), uint64(1)},
		},
		"port": uint64(80),
	}

	wire, err := Serialize(l, value)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	want := []byte{0, 42, 4, 127, 0, 0, 1, 0, 80}
	if !bytes.Equal(wire, want) {
		t.Fatalf("wire = %v, want %v", wire, want)
	}

	back, err := Deserialize(l, wire)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if diff := cmp.Diff(value, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEndpoint_Name(t *testing.T) {
	l := endpointLayout()
	wire := []byte{0, 42, 1, 0, 9, 108, 111, 99, 97, 108, 104, 111, 115, 116, 0, 80}

	v, err := Deserialize(l, wire)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	want := map[string]any{
		"address": map[string]any{"type": "Name", "value": "localhost"},
		"port":    uint64(80),
	}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Fatalf("value mismatch (-want +got):\n%s", diff)
	}

	back, err := Serialize(l, v)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !bytes.Equal(back, wire) {
		t.Errorf("re-serialized = %v, want %v", back, wire)
	}
}

// mixedWidthsLayout exercises every numeric shape at once: an omitted
// constant, little-endian signed and unsigned fields, a scaled decimal
// behind a /100 conversion, and a 9-byte value behind a hex-string
// conversion.
func mixedWidthsLayout() Layout {
	magic := UintItem("magic", 1)
	magic.Custom = NewConstOmit(42)

	leI16 := IntItem("leI16", 2)
	leI16.Endianness = Little

	leU64 := UintItem("leU64", 8)
	leU64.Endianness = Little

	fixedDec := UintItem("fixedDec", 4)
	fixedDec.Custom = NewCustom(
		func(v any) (any, error) {
			f, ok := v.(float64)
			if !ok {
				return nil, errors.ConstMismatch(errors.PhaseSerialize, "float64", v)
			}
			return uint64(math.Round(f * 100)), nil
		},
		func(v any) (any, error) {
			return float64(v.(uint64)) / 100, nil
		},
	)

	hexnum := UintItem("hexnum", 9)
	hexnum.Custom = NewCustom(
		func(v any) (any, error) {
			s, ok := v.(string)
			if !ok || !strings.HasPrefix(s, "0x") {
				return nil, errors.ConstMismatch(errors.PhaseSerialize, "0x-prefixed string", v)
			}
			n, ok := new(big.Int).SetString(s[2:], 16)
			if !ok {
				return nil, errors.ConstMismatch(errors.PhaseSerialize, "hex digits", s)
			}
			return n, nil
		},
		func(v any) (any, error) {
			return "0x" + v.(*big.Int).Text(16), nil
		},
	)

	return Of(magic, leI16, leU64, fixedDec, hexnum)
}

func TestMixedWidths(t *testing.T) {
	l := mixedWidthsLayout()
	value := map[string]any{
		"leI16":    int64(-2),
		"leU64":    uint64(258),
		"fixedDec": 2.58,
		"hexnum":   "0x1001",
	}

	wire, err := Serialize(l, value)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	want := []byte{
		42,
		254, 255,
		2, 1, 0, 0, 0, 0, 0, 0,
		0, 0, 1, 2,
		0, 0, 0, 0, 0, 0, 0, 16, 1,
	}
	if !bytes.Equal(wire, want) {
		t.Fatalf("wire = %v, want %v", wire, want)
	}
	if len(wire) != 24 {
		t.Fatalf("wire length = %d, want 24", len(wire))
	}

	back, err := Deserialize(l, wire)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	// Widths above 6 bytes decode as arbitrary precision.
	decoded := map[string]any{
		"leI16":    int64(-2),
		"leU64":    big.NewInt(258),
		"fixedDec": 2.58,
		"hexnum":   "0x1001",
	}
	if diff := cmp.Diff(decoded, back, bigIntsByValue); diff != "" {
		t.Fatalf("decoded mismatch (-want +got):\n%s", diff)
	}

	again, err := Serialize(l, back)
	if err != nil {
		t.Fatalf("Serialize decoded: %v", err)
	}
	if !bytes.Equal(again, wire) {
		t.Errorf("re-serialized = %v, want %v", again, wire)
	}
}

func TestLengthPrefixedString(t *testing.T) {
	l := Single(StringItem("", 1))

	wire, err := Serialize(l, "Hello, World!")
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	want := append([]byte{13}, []byte("Hello, World!")...)
	if !bytes.Equal(wire, want) {
		t.Fatalf("wire = %v, want %v", wire, want)
	}
	if len(wire) != 14 {
		t.Fatalf("length = %d, want 14", len(wire))
	}

	back, err := Deserialize(l, wire)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if back != "Hello, World!" {
		t.Errorf("value = %v", back)
	}
}

func TestRoundTrip_LengthAgreement(t *testing.T) {
	layouts := []struct {
		name   string
		layout Layout
		value  any
	}{
		{
			"nested containers",
			Of(
				UintItem("version", 1),
				PrefixedArray("entries", 2, Of(
					UintItem("key", 2),
					PrefixedBytes("payload", 1),
				)),
				BoundlessBytes("trailer"),
			),
			map[string]any{
				"version": uint64(3),
				"entries": []any{
					map[string]any{"key": uint64(1), "payload": []byte{0xAA}},
					map[string]any{"key": uint64(2), "payload": []byte{}},
				},
				"trailer": []byte{9, 9, 9},
			},
		},
		{
			"switch over empty and loaded branches",
			Of(SwitchItem("msg", 1,
				Case{ID: 0, Label: "ping", Layout: Of()},
				Case{ID: 1, Label: "data", Layout: Of(PrefixedBytes("body", 1))},
			)),
			map[string]any{
				"msg": map[string]any{"id": "data", "body": []byte{1, 2, 3}},
			},
		},
		{
			"bytes structured by nested layout",
			Of(
				Item{
					Name:       "frame",
					Kind:       KindBytes,
					LengthSize: 2,
					Layout: &Layout{items: []Item{
						UintItem("seq", 4),
						BoundlessBytes("rest"),
					}},
				},
			),
			map[string]any{
				"frame": map[string]any{"seq": uint64(7), "rest": []byte{5, 5}},
			},
		},
	}

	for _, tt := range layouts {
		t.Run(tt.name, func(t *testing.T) {
			size, err := CalcSize(tt.layout, tt.value)
			if err != nil {
				t.Fatalf("CalcSize: %v", err)
			}
			wire, err := Serialize(tt.layout, tt.value)
			if err != nil {
				t.Fatalf("Serialize: %v", err)
			}
			if len(wire) != size {
				t.Errorf("len(wire) = %d, CalcSize = %d", len(wire), size)
			}
			back, err := Deserialize(tt.layout, wire)
			if err != nil {
				t.Fatalf("Deserialize: %v", err)
			}
			if diff := cmp.Diff(tt.value, back, bigIntsByValue); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
