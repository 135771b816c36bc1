package layout

import (
	"reflect"

	"github.com/nonergodic/layout/errors"
)

// convQueue carries custom-conversion outputs from the size pass to
// the serialize pass so each user Encode function runs exactly once.
// Both passes visit items in identical order; the queue is a FIFO.
type convQueue struct {
	vals []any
}

func (q *convQueue) push(v any) {
	if q != nil {
		q.vals = append(q.vals, v)
	}
}

func (q *convQueue) pop() (any, bool) {
	if q == nil || len(q.vals) == 0 {
		return nil, false
	}
	v := q.vals[0]
	q.vals = q.vals[1:]
	return v, true
}

// CalcSize computes the serialized byte count of data under the
// layout. It fails when the value is malformed for the layout.
func CalcSize(l Layout, data any) (int, error) {
	n, err := calcLayoutSize(l, data, nil)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// CalcStaticSize computes the layout's byte count when it is fully
// determined without data. ok is false when the size is unknown.
func CalcStaticSize(l Layout) (n int, ok bool) {
	return staticLayoutSize(l)
}

func calcLayoutSize(l Layout, data any, q *convQueue) (int, *errors.Error) {
	if l.IsSingle() {
		return calcItemSize(l.single, data, q)
	}
	if err := checkBoundless(errors.PhaseSize, l.items); err != nil {
		return 0, err
	}
	m, err := properData(errors.PhaseSize, data)
	if err != nil {
		return 0, err
	}
	total := 0
	for i := range l.items {
		it := &l.items[i]
		v, verr := itemData(errors.PhaseSize, it, m)
		if verr != nil {
			return 0, verr
		}
		n, serr := calcItemSize(it, v, q)
		if serr != nil {
			return 0, serr.WithName(it.Name)
		}
		total += n
	}
	return total, nil
}

// properData coerces the value supplied for a proper layout. nil is
// accepted so all-fixed layouts can be sized without data.
func properData(phase errors.Phase, data any) (map[string]any, *errors.Error) {
	if data == nil {
		return nil, nil
	}
	m, ok := data.(map[string]any)
	if !ok {
		return nil, errors.New(phase, errors.KindIncompleteData).
			Detail("proper layout expects map[string]any, got %T", data).
			Build()
	}
	return m, nil
}

// itemData extracts an item's value from a proper layout's map.
// Constant items with omit never consult the data.
func itemData(phase errors.Phase, it *Item, m map[string]any) (any, *errors.Error) {
	if c := it.Custom; c != nil && c.Kind == ConvConst && c.Omit {
		return nil, nil
	}
	v, ok := m[it.Name]
	if !ok {
		// Constant-like items can be sized (and written) without a
		// supplied value; the equality check is skipped.
		if c := it.Custom; c != nil && c.Kind != ConvCustom {
			return nil, nil
		}
		return nil, errors.UnknownField(phase, it.Name).WithName(it.Name)
	}
	return v, nil
}

func calcItemSize(it *Item, data any, q *convQueue) (int, *errors.Error) {
	if err := validateItem(errors.PhaseSize, it); err != nil {
		return 0, err
	}

	switch it.Kind {
	case KindUint, KindInt:
		return it.Size, nil

	case KindBytes:
		return calcBytesSize(it, data, q)

	case KindArray:
		rv := reflect.ValueOf(data)
		if data == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			return 0, errors.IncompleteData("array expects a slice, got %T", data)
		}
		total := it.LengthSize
		for i := 0; i < rv.Len(); i++ {
			n, err := calcLayoutSize(*it.Layout, rv.Index(i).Interface(), q)
			if err != nil {
				return 0, err.WithName(indexName(i))
			}
			total += n
		}
		return total, nil

	case KindSwitch:
		m, err := properData(errors.PhaseSize, data)
		if err != nil {
			return 0, err
		}
		if m == nil {
			return 0, errors.IncompleteData("switch expects data to select a branch")
		}
		pair, perr := findIDLayoutPair(it, m)
		if perr != nil {
			return 0, perr
		}
		n, serr := calcLayoutSize(pair.Layout, data, q)
		if serr != nil {
			return 0, serr
		}
		return it.IDSize + n, nil
	}
	return 0, errors.MalformedLayout(errors.PhaseSize, "unknown item kind %d", it.Kind)
}

func calcBytesSize(it *Item, data any, q *convQueue) (int, *errors.Error) {
	prefix := it.LengthSize

	if c := it.Custom; c != nil {
		switch c.Kind {
		case ConvConst, ConvFixed:
			if it.Layout != nil {
				wire, err := c.fixedObjectWire(*it.Layout)
				if err != nil {
					return 0, asLayoutError(errors.PhaseSize, err)
				}
				return prefix + len(wire), nil
			}
			b, ok := c.fixedValue().([]byte)
			if !ok {
				return 0, errors.MalformedLayout(errors.PhaseSize,
					"bytes constant must be []byte, got %T", c.fixedValue())
			}
			return prefix + len(b), nil

		case ConvCustom:
			wire, err := c.Encode(data)
			if err != nil {
				return 0, conversionError(errors.PhaseSize, err)
			}
			q.push(wire)
			if it.Layout != nil {
				n, serr := calcLayoutSize(*it.Layout, wire, q)
				if serr != nil {
					return 0, serr
				}
				return prefix + n, nil
			}
			b, ok := wire.([]byte)
			if !ok {
				return 0, errors.IncompleteData("bytes conversion produced %T, want []byte", wire)
			}
			return prefix + len(b), nil
		}
	}

	if it.Layout != nil {
		n, err := calcLayoutSize(*it.Layout, data, q)
		if err != nil {
			return 0, err
		}
		return prefix + n, nil
	}

	b, ok := data.([]byte)
	if !ok {
		return 0, errors.IncompleteData("bytes item expects []byte, got %T", data)
	}
	return prefix + len(b), nil
}

// Static sizing. Unknown bubbles as ok=false; no errors are raised.

func staticLayoutSize(l Layout) (int, bool) {
	if l.IsSingle() {
		return staticItemSize(l.single)
	}
	total := 0
	for i := range l.items {
		n, ok := staticItemSize(&l.items[i])
		if !ok {
			return 0, false
		}
		total += n
	}
	return total, true
}

func staticItemSize(it *Item) (int, bool) {
	switch it.Kind {
	case KindUint, KindInt:
		if it.Size < 1 {
			return 0, false
		}
		return it.Size, true

	case KindBytes:
		if c := it.Custom; c != nil && (c.Kind == ConvConst || c.Kind == ConvFixed) {
			if it.Layout != nil {
				wire, err := c.fixedObjectWire(*it.Layout)
				if err != nil {
					return 0, false
				}
				return it.LengthSize + len(wire), true
			}
			b, ok := c.fixedValue().([]byte)
			if !ok {
				return 0, false
			}
			return it.LengthSize + len(b), true
		}
		if it.Size > 0 {
			return it.Size, true
		}
		if it.Layout != nil {
			n, ok := staticLayoutSize(*it.Layout)
			if !ok {
				return 0, false
			}
			return it.LengthSize + n, true
		}
		return 0, false

	case KindArray:
		if !it.HasLength || it.Layout == nil {
			return 0, false
		}
		elem, ok := staticLayoutSize(*it.Layout)
		if !ok {
			return 0, false
		}
		return it.Length * elem, true

	case KindSwitch:
		common := -1
		for i := range it.Cases {
			n, ok := staticLayoutSize(it.Cases[i].Layout)
			if !ok {
				return 0, false
			}
			if common == -1 {
				common = n
			} else if n != common {
				return 0, false
			}
		}
		if common == -1 {
			return 0, false
		}
		return it.IDSize + common, true
	}
	return 0, false
}
