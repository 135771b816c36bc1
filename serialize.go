package layout

import (
	"math/big"
	"reflect"

	"github.com/nonergodic/layout/errors"
	"github.com/nonergodic/layout/internal/cursor"
	"github.com/nonergodic/layout/internal/numeric"
)

// Serialize encodes data under the layout into a freshly allocated
// buffer of exactly the computed size.
func Serialize(l Layout, data any) ([]byte, error) {
	q := &convQueue{}
	size, serr := calcLayoutSize(l, data, q)
	if serr != nil {
		return nil, serr
	}
	buf := make([]byte, size)
	w := cursor.NewWriter(buf)
	if err := serializeLayout(l, data, w, q); err != nil {
		return nil, err
	}
	if w.Offset() != size {
		return nil, errors.UnderWrite(w.Offset(), size)
	}
	return buf, nil
}

// SerializeInto encodes data at offset 0 of the caller's buffer, which
// may be larger than required, and returns the number of bytes
// written.
func SerializeInto(l Layout, data any, buf []byte) (int, error) {
	q := &convQueue{}
	size, serr := calcLayoutSize(l, data, q)
	if serr != nil {
		return 0, serr
	}
	if size > len(buf) {
		return 0, errors.SizeMismatch(errors.PhaseSerialize, size, len(buf))
	}
	w := cursor.NewWriter(buf[:size])
	if err := serializeLayout(l, data, w, q); err != nil {
		return 0, err
	}
	if w.Offset() != size {
		return 0, errors.UnderWrite(w.Offset(), size)
	}
	return size, nil
}

func serializeLayout(l Layout, data any, w *cursor.Writer, q *convQueue) *errors.Error {
	if l.IsSingle() {
		return serializeItem(l.single, data, w, q)
	}
	if err := checkBoundless(errors.PhaseSerialize, l.items); err != nil {
		return err
	}
	m, err := properData(errors.PhaseSerialize, data)
	if err != nil {
		return err
	}
	for i := range l.items {
		it := &l.items[i]
		v, verr := itemData(errors.PhaseSerialize, it, m)
		if verr != nil {
			return verr
		}
		if serr := serializeItem(it, v, w, q); serr != nil {
			return serr.WithName(it.Name)
		}
	}
	return nil
}

func serializeItem(it *Item, data any, w *cursor.Writer, q *convQueue) *errors.Error {
	if err := validateItem(errors.PhaseSerialize, it); err != nil {
		return err
	}

	switch it.Kind {
	case KindUint, KindInt:
		return serializeNumeric(it, data, w)

	case KindBytes:
		return serializeBytes(it, data, w, q)

	case KindArray:
		return serializeArray(it, data, w, q)

	case KindSwitch:
		m, err := properData(errors.PhaseSerialize, data)
		if err != nil {
			return err
		}
		if m == nil {
			return errors.New(errors.PhaseSerialize, errors.KindIncompleteData).
				Detail("switch expects data to select a branch").
				Build()
		}
		pair, perr := findIDLayoutPair(it, m)
		if perr != nil {
			return perr
		}
		window, werr := w.Reserve(it.IDSize)
		if werr != nil {
			return asLayoutError(errors.PhaseSerialize, werr)
		}
		numeric.Put(window, new(big.Int).SetUint64(pair.ID), it.IDEndianness == Little)
		// The discriminant stays a sibling of the branch fields, so
		// the branch sees the same map.
		return serializeLayout(pair.Layout, data, w, q)
	}
	return errors.MalformedLayout(errors.PhaseSerialize, "unknown item kind %d", it.Kind)
}

func serializeNumeric(it *Item, data any, w *cursor.Writer) *errors.Error {
	wireVal := data
	if c := it.Custom; c != nil {
		switch c.Kind {
		case ConvConst:
			if !c.Omit && data != nil {
				if err := checkNumEquals(errors.PhaseSerialize, c.Const, data); err != nil {
					return err
				}
			}
			wireVal = c.Const
		case ConvFixed:
			if data != nil {
				if err := checkValueEquals(errors.PhaseSerialize, c.To, data); err != nil {
					return err
				}
			}
			wireVal = c.From
		case ConvCustom:
			v, err := c.Encode(data)
			if err != nil {
				return conversionError(errors.PhaseSerialize, err)
			}
			wireVal = v
		}
	}

	v, ok := numeric.Coerce(wireVal)
	if !ok {
		return errors.OutOfRange(errors.PhaseSerialize, wireVal,
			"value is not an integer")
	}
	inRange := numeric.InUintRange(v, it.Size)
	if it.Kind == KindInt {
		inRange = numeric.InIntRange(v, it.Size)
	}
	if !inRange {
		return errors.OutOfRange(errors.PhaseSerialize, v,
			"value "+v.String()+" does not fit "+kindNames[it.Kind]+" of "+itoaBytes(it.Size))
	}

	window, err := w.Reserve(it.Size)
	if err != nil {
		return asLayoutError(errors.PhaseSerialize, err)
	}
	numeric.Put(window, v, it.Endianness == Little)
	return nil
}

func serializeBytes(it *Item, data any, w *cursor.Writer, q *convQueue) *errors.Error {
	var prefixWindow []byte
	if it.LengthSize > 0 {
		window, err := w.Reserve(it.LengthSize)
		if err != nil {
			return asLayoutError(errors.PhaseSerialize, err)
		}
		prefixWindow = window
	}

	payloadStart := w.Offset()

	switch c := it.Custom; {
	case c != nil && (c.Kind == ConvConst || c.Kind == ConvFixed):
		if it.Layout != nil {
			wire, err := c.fixedObjectWire(*it.Layout)
			if err != nil {
				return asLayoutError(errors.PhaseSerialize, err)
			}
			if !c.Omit && data != nil {
				if cerr := checkValueEquals(errors.PhaseSerialize, c.decodedValue(), data); cerr != nil {
					return cerr
				}
			}
			if werr := w.Write(wire); werr != nil {
				return asLayoutError(errors.PhaseSerialize, werr)
			}
		} else {
			b, ok := c.fixedValue().([]byte)
			if !ok {
				return errors.MalformedLayout(errors.PhaseSerialize,
					"bytes constant must be []byte, got %T", c.fixedValue())
			}
			if !c.Omit && data != nil {
				if cerr := checkValueEquals(errors.PhaseSerialize, c.decodedValue(), data); cerr != nil {
					return cerr
				}
			}
			if serr := checkItemSize(errors.PhaseSerialize, it, len(b)); serr != nil {
				return serr
			}
			if werr := w.Write(b); werr != nil {
				return asLayoutError(errors.PhaseSerialize, werr)
			}
		}

	case c != nil && c.Kind == ConvCustom:
		wire, ok := q.pop()
		if !ok {
			// The size pass fills the queue; an empty pop means the
			// two passes diverged.
			return errors.New(errors.PhaseSerialize, errors.KindIncompleteData).
				Detail("conversion cache exhausted").
				Build()
		}
		if it.Layout != nil {
			if serr := serializeLayout(*it.Layout, wire, w, q); serr != nil {
				return serr
			}
		} else {
			b, ok := wire.([]byte)
			if !ok {
				return errors.New(errors.PhaseSerialize, errors.KindIncompleteData).
					Detail("bytes conversion produced %T, want []byte", wire).
					Build()
			}
			if serr := checkItemSize(errors.PhaseSerialize, it, len(b)); serr != nil {
				return serr
			}
			if werr := w.Write(b); werr != nil {
				return asLayoutError(errors.PhaseSerialize, werr)
			}
		}

	case it.Layout != nil:
		if serr := serializeLayout(*it.Layout, data, w, q); serr != nil {
			return serr
		}
		if serr := checkItemSize(errors.PhaseSerialize, it, w.Offset()-payloadStart); serr != nil {
			return serr
		}

	default:
		b, ok := data.([]byte)
		if !ok {
			return errors.New(errors.PhaseSerialize, errors.KindIncompleteData).
				Detail("bytes item expects []byte, got %T", data).
				Build()
		}
		if serr := checkItemSize(errors.PhaseSerialize, it, len(b)); serr != nil {
			return serr
		}
		if werr := w.Write(b); werr != nil {
			return asLayoutError(errors.PhaseSerialize, werr)
		}
	}

	if prefixWindow != nil {
		written := w.Offset() - payloadStart
		count := new(big.Int).SetInt64(int64(written))
		if !numeric.InUintRange(count, it.LengthSize) {
			return errors.OutOfRange(errors.PhaseSerialize, written,
				"payload length "+count.String()+" does not fit prefix of "+itoaBytes(it.LengthSize))
		}
		numeric.Put(prefixWindow, count, it.LengthEndianness == Little)
	}
	return nil
}

func serializeArray(it *Item, data any, w *cursor.Writer, q *convQueue) *errors.Error {
	rv := reflect.ValueOf(data)
	if data == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return errors.New(errors.PhaseSerialize, errors.KindIncompleteData).
			Detail("array expects a slice, got %T", data).
			Build()
	}
	n := rv.Len()

	if it.HasLength && n != it.Length {
		return errors.SizeMismatch(errors.PhaseSerialize, it.Length, n)
	}
	if it.LengthSize > 0 {
		count := new(big.Int).SetInt64(int64(n))
		if !numeric.InUintRange(count, it.LengthSize) {
			return errors.OutOfRange(errors.PhaseSerialize, n,
				"element count "+count.String()+" does not fit prefix of "+itoaBytes(it.LengthSize))
		}
		window, err := w.Reserve(it.LengthSize)
		if err != nil {
			return asLayoutError(errors.PhaseSerialize, err)
		}
		numeric.Put(window, count, it.LengthEndianness == Little)
	}

	for i := 0; i < n; i++ {
		if err := serializeLayout(*it.Layout, rv.Index(i).Interface(), w, q); err != nil {
			return err.WithName(indexName(i))
		}
	}
	return nil
}
