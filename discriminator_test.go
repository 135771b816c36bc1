package layout

import (
	stderrors "errors"
	"testing"

	"github.com/nonergodic/layout/errors"
)

func mustBuild(t *testing.T, layouts []Layout) *Discriminator {
	t.Helper()
	d, err := BuildDiscriminator(layouts)
	if err != nil {
		t.Fatalf("BuildDiscriminator: %v", err)
	}
	return d
}

func TestDiscriminator_SizeOnly(t *testing.T) {
	ipv4 := Single(FixedArray("", 4, Single(UintItem("", 1))))
	ipv6 := Single(FixedArray("", 8, Single(UintItem("", 2))))
	d := mustBuild(t, []Layout{ipv4, ipv6})

	tests := []struct {
		size int
		want int
		ok   bool
	}{
		{4, 0, true},
		{16, 1, true},
		{5, 0, false},
		{0, 0, false},
		{17, 0, false},
	}
	for _, tt := range tests {
		got, ok := d.Discriminate(make([]byte, tt.size))
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("Discriminate(len %d) = %d, %v; want %d, %v", tt.size, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDiscriminator_ByteAndSize(t *testing.T) {
	a := Of(
		func() Item {
			it := UintItem("m", 2)
			it.Custom = NewConst(0)
			return it
		}(),
		UintItem("v", 1),
	)
	b := Of(
		func() Item {
			it := FixedBytes("m", 2)
			it.Custom = NewConst([]byte{1, 1})
			return it
		}(),
		UintItem("v", 1),
	)
	c := Of(UintItem("x", 2))

	d := mustBuild(t, []Layout{a, b, c})

	tests := []struct {
		wire []byte
		want int
		ok   bool
	}{
		{[]byte{0, 0, 0}, 0, true},
		{[]byte{1, 1, 0}, 1, true},
		{[]byte{0, 0}, 2, true},
		{[]byte{0, 1, 0}, 0, true},
		{[]byte{1, 0, 0}, 1, true},
		{[]byte{2, 0, 0}, 0, false},
		{[]byte{1, 0, 0, 0}, 0, false},
		{[]byte{0}, 0, false},
	}
	for _, tt := range tests {
		got, ok := d.Discriminate(tt.wire)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("Discriminate(%v) = %d, %v; want %d, %v", tt.wire, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDiscriminator_SwitchIds(t *testing.T) {
	// Two layouts distinguished only by their switch id sets.
	l1 := Of(SwitchItem("msg", 1,
		Case{ID: 1, Layout: Of(UintItem("a", 1))},
		Case{ID: 2, Layout: Of(UintItem("b", 1))},
	))
	l2 := Of(SwitchItem("msg", 1,
		Case{ID: 3, Layout: Of(UintItem("c", 1))},
	))

	d := mustBuild(t, []Layout{l1, l2})

	tests := []struct {
		wire []byte
		want int
		ok   bool
	}{
		{[]byte{1, 9}, 0, true},
		{[]byte{2, 9}, 0, true},
		{[]byte{3, 9}, 1, true},
		{[]byte{4, 9}, 0, false},
	}
	for _, tt := range tests {
		got, ok := d.Discriminate(tt.wire)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("Discriminate(%v) = %d, %v; want %d, %v", tt.wire, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDiscriminator_IdenticalSummariesYieldNone(t *testing.T) {
	a := Of(UintItem("x", 2))
	b := Of(UintItem("y", 2))
	d := mustBuild(t, []Layout{a, b})

	if _, ok := d.Discriminate([]byte{1, 2}); ok {
		t.Error("ambiguous input must classify as none, not an arbitrary winner")
	}
}

func TestDiscriminator_SingleCandidate(t *testing.T) {
	d := mustBuild(t, []Layout{Of(UintItem("x", 2))})

	if got, ok := d.Discriminate([]byte{1, 2}); !ok || got != 0 {
		t.Errorf("Discriminate = %d, %v", got, ok)
	}
}

func TestDiscriminator_Soundness(t *testing.T) {
	// A positive match must deserialize without constant or switch-id
	// failures; none means no candidate accepts the buffer.
	hdr := func(b byte) Item {
		it := UintItem("magic", 1)
		it.Custom = NewConst(b)
		return it
	}
	layouts := []Layout{
		Of(hdr(0x10), UintItem("v", 1)),
		Of(hdr(0x20), PrefixedBytes("p", 1)),
	}
	d := mustBuild(t, layouts)

	inputs := [][]byte{
		{0x10, 5},
		{0x20, 1, 9},
		{0x30, 0},
		{0x10},
	}
	for _, wire := range inputs {
		idx, ok := d.Discriminate(wire)
		if !ok {
			continue
		}
		if _, err := Deserialize(layouts[idx], wire); err != nil {
			if stderrors.Is(err, &errors.Error{
				Phase: errors.PhaseDeserialize,
				Kind:  errors.KindConstMismatch,
			}) || stderrors.Is(err, &errors.Error{
				Phase: errors.PhaseDeserialize,
				Kind:  errors.KindUnknownSwitchID,
			}) {
				t.Errorf("Discriminate(%v) = %d but deserialize fails structurally: %v", wire, idx, err)
			}
		}
	}
}

func TestDiscriminator_BuildRejectsMalformed(t *testing.T) {
	bad := Single(Item{Kind: KindBytes, Size: 2, LengthSize: 1})
	_, err := BuildDiscriminator([]Layout{bad})
	if !stderrors.Is(err, &errors.Error{
		Phase: errors.PhaseDiscriminate,
		Kind:  errors.KindMalformedLayout,
	}) {
		t.Errorf("err = %v, want malformed_layout", err)
	}
}

func TestDiscriminator_EmptyBufferAgainstMinima(t *testing.T) {
	d := mustBuild(t, []Layout{
		Of(UintItem("a", 1)),
		Of(UintItem("b", 2)),
	})
	if _, ok := d.Discriminate(nil); ok {
		t.Error("empty buffer matches no candidate")
	}
}
