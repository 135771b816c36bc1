package layout

import (
	"bytes"
	"math/big"
	"reflect"

	"github.com/nonergodic/layout/errors"
	"github.com/nonergodic/layout/internal/numeric"
)

// checkSize verifies an expected byte count against an observed one.
func checkSize(phase errors.Phase, expected, actual int) *errors.Error {
	if expected != actual {
		return errors.SizeMismatch(phase, expected, actual)
	}
	return nil
}

// checkItemSize enforces an item's declared size, when present,
// against the observed byte count of its payload.
func checkItemSize(phase errors.Phase, it *Item, observed int) *errors.Error {
	if it.Size > 0 {
		return checkSize(phase, it.Size, observed)
	}
	return nil
}

// checkNumEquals compares a constant against an observed value by
// numeric value, across native and arbitrary-precision widths.
func checkNumEquals(phase errors.Phase, constant, observed any) *errors.Error {
	if !numeric.Equal(constant, observed) {
		return errors.ConstMismatch(phase, constant, observed)
	}
	return nil
}

// checkBytesEqual compares a constant byte sequence against an
// observed one.
func checkBytesEqual(phase errors.Phase, constant, observed []byte) *errors.Error {
	if !bytes.Equal(constant, observed) {
		return errors.ConstMismatch(phase, constant, observed)
	}
	return nil
}

// checkValueEquals compares a conversion's decoded face against a
// supplied value: numerics by value, byte slices byte-wise, anything
// else structurally.
func checkValueEquals(phase errors.Phase, want, got any) *errors.Error {
	if wb, ok := want.([]byte); ok {
		if gb, ok := got.([]byte); ok {
			return checkBytesEqual(phase, wb, gb)
		}
		return errors.ConstMismatch(phase, want, got)
	}
	if numeric.Equal(want, got) {
		return nil
	}
	if reflect.DeepEqual(want, got) {
		return nil
	}
	return errors.ConstMismatch(phase, want, got)
}

// findIDLayoutPair locates the switch case whose decoded discriminant
// matches data's idTag value. A remapped case matches on its label,
// a plain one on its wire id.
func findIDLayoutPair(it *Item, data map[string]any) (*Case, *errors.Error) {
	tag := it.idTag()
	disc, ok := data[tag]
	if !ok {
		return nil, errors.UnknownField(errors.PhaseSerialize, tag)
	}
	for i := range it.Cases {
		cs := &it.Cases[i]
		if cs.Label != nil {
			if reflect.DeepEqual(cs.Label, disc) || numeric.Equal(cs.Label, disc) {
				return cs, nil
			}
			continue
		}
		if numeric.Equal(cs.ID, disc) {
			return cs, nil
		}
	}
	return nil, errors.UnknownSwitchID(errors.PhaseSerialize, disc)
}

// validateItem enforces the layout invariants the model itself does
// not check. Engines call it on first contact with each item.
func validateItem(phase errors.Phase, it *Item) *errors.Error {
	switch it.Kind {
	case KindUint, KindInt:
		if it.Size < 1 || it.Size > numeric.MaxSize {
			return errors.MalformedLayout(phase, "numeric size %d outside 1..%d", it.Size, numeric.MaxSize)
		}
	case KindBytes:
		if it.Size < 0 {
			return errors.MalformedLayout(phase, "negative bytes size %d", it.Size)
		}
		if it.Size > 0 && it.LengthSize > 0 {
			return errors.MalformedLayout(phase, "size %d and lengthSize %d both set", it.Size, it.LengthSize)
		}
		if it.LengthSize < 0 || it.LengthSize > numeric.SmallSize {
			return errors.MalformedLayout(phase, "lengthSize %d outside 1..%d", it.LengthSize, numeric.SmallSize)
		}
	case KindArray:
		if it.Layout == nil {
			return errors.MalformedLayout(phase, "array item without element layout")
		}
		if it.LengthSize < 0 || it.LengthSize > numeric.SmallSize {
			return errors.MalformedLayout(phase, "lengthSize %d outside 1..%d", it.LengthSize, numeric.SmallSize)
		}
		if it.HasLength && it.LengthSize > 0 {
			return errors.MalformedLayout(phase, "length and lengthSize both set")
		}
		if it.HasLength && it.Length < 0 {
			return errors.MalformedLayout(phase, "negative array length %d", it.Length)
		}
	case KindSwitch:
		if len(it.Cases) == 0 {
			return errors.MalformedLayout(phase, "switch with no cases")
		}
		if it.IDSize < 1 || it.IDSize > numeric.SmallSize {
			return errors.MalformedLayout(phase, "idSize %d outside 1..%d", it.IDSize, numeric.SmallSize)
		}
		seen := make(map[uint64]bool, len(it.Cases))
		for i := range it.Cases {
			cs := &it.Cases[i]
			if seen[cs.ID] {
				return errors.MalformedLayout(phase, "duplicate switch id %d", cs.ID)
			}
			seen[cs.ID] = true
			if cs.Layout.IsSingle() {
				return errors.MalformedLayout(phase, "switch branch must be a proper layout")
			}
			// The discriminant key never doubles as a branch field.
			for j := range cs.Layout.items {
				if cs.Layout.items[j].Name == it.idTag() {
					return errors.MalformedLayout(phase, "branch field %q collides with idTag", it.idTag())
				}
			}
		}
		if !numeric.InUintRange(maxCaseID(it), it.IDSize) {
			return errors.MalformedLayout(phase, "switch id exceeds idSize %d", it.IDSize)
		}
	default:
		return errors.MalformedLayout(phase, "unknown item kind %d", it.Kind)
	}

	if c := it.Custom; c != nil {
		if it.Kind != KindUint && it.Kind != KindInt && it.Kind != KindBytes {
			return errors.MalformedLayout(phase, "conversion on %s item", it.Kind)
		}
		if c.Omit && c.Kind != ConvConst {
			return errors.MalformedLayout(phase, "omit without a constant conversion")
		}
		if c.Kind == ConvCustom && (c.Encode == nil || c.Decode == nil) {
			return errors.MalformedLayout(phase, "custom conversion missing encode or decode")
		}
	}
	return nil
}

func maxCaseID(it *Item) *big.Int {
	max := uint64(0)
	for i := range it.Cases {
		if it.Cases[i].ID > max {
			max = it.Cases[i].ID
		}
	}
	return new(big.Int).SetUint64(max)
}

// checkBoundless verifies that a boundless item only appears in
// terminal position within its proper layout.
func checkBoundless(phase errors.Phase, items []Item) *errors.Error {
	for i := range items {
		if items[i].isBoundless() && i != len(items)-1 {
			return errors.MalformedLayout(phase, "boundless item %q in non-terminal position", items[i].Name)
		}
	}
	return nil
}
