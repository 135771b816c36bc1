package layout

import (
	"math/big"

	"github.com/nonergodic/layout/errors"
	"github.com/nonergodic/layout/internal/cursor"
	"github.com/nonergodic/layout/internal/numeric"
)

// Deserialize decodes the buffer under the layout, requiring that
// every byte is consumed.
func Deserialize(l Layout, data []byte) (any, error) {
	ch := cursor.NewChunk(data)
	v, err := deserializeLayout(l, ch)
	if err != nil {
		return nil, err
	}
	if !ch.Done() {
		return nil, errors.ExcessBytes(ch.Remaining())
	}
	return v, nil
}

// DeserializePartial decodes a prefix of the buffer under the layout
// and returns the value together with the number of bytes read.
func DeserializePartial(l Layout, data []byte) (any, int, error) {
	ch := cursor.NewChunk(data)
	v, err := deserializeLayout(l, ch)
	if err != nil {
		return nil, 0, err
	}
	return v, ch.Offset(), nil
}

func deserializeLayout(l Layout, ch *cursor.Chunk) (any, *errors.Error) {
	if l.IsSingle() {
		v, _, err := deserializeItem(l.single, ch)
		return v, err
	}
	if err := checkBoundless(errors.PhaseDeserialize, l.items); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(l.items))
	for i := range l.items {
		it := &l.items[i]
		v, omitted, err := deserializeItem(it, ch)
		if err != nil {
			return nil, err.WithName(it.Name)
		}
		if !omitted {
			out[it.Name] = v
		}
	}
	return out, nil
}

// deserializeItem decodes one item. omitted reports a constant field
// that carries omit and therefore contributes nothing to the output.
func deserializeItem(it *Item, ch *cursor.Chunk) (value any, omitted bool, err *errors.Error) {
	if verr := validateItem(errors.PhaseDeserialize, it); verr != nil {
		return nil, false, verr
	}

	switch it.Kind {
	case KindUint, KindInt:
		return deserializeNumeric(it, ch)

	case KindBytes:
		return deserializeBytes(it, ch)

	case KindArray:
		v, aerr := deserializeArray(it, ch)
		return v, false, aerr

	case KindSwitch:
		v, serr := deserializeSwitch(it, ch)
		return v, false, serr
	}
	return nil, false, errors.MalformedLayout(errors.PhaseDeserialize, "unknown item kind %d", it.Kind)
}

func deserializeNumeric(it *Item, ch *cursor.Chunk) (any, bool, *errors.Error) {
	raw, terr := ch.Take(it.Size)
	if terr != nil {
		return nil, false, asLayoutError(errors.PhaseDeserialize, terr)
	}

	little := it.Endianness == Little
	var wide *big.Int
	if it.Kind == KindInt {
		wide = numeric.Int(raw, little)
	} else {
		wide = numeric.Uint(raw, little)
	}
	decoded := narrowNumeric(wide, it.Size, it.Kind)

	c := it.Custom
	if c == nil {
		return decoded, false, nil
	}
	switch c.Kind {
	case ConvConst:
		if cerr := checkNumEquals(errors.PhaseDeserialize, c.Const, decoded); cerr != nil {
			return nil, false, cerr
		}
		return decoded, c.Omit, nil
	case ConvFixed:
		if cerr := checkNumEquals(errors.PhaseDeserialize, c.From, decoded); cerr != nil {
			return nil, false, cerr
		}
		return c.To, false, nil
	default:
		v, derr := c.Decode(decoded)
		if derr != nil {
			return nil, false, conversionError(errors.PhaseDeserialize, derr)
		}
		return v, false, nil
	}
}

// narrowNumeric converts the wide decode result to the caller-facing
// representation: native integers up to 6 bytes, big.Int beyond.
func narrowNumeric(v *big.Int, size int, kind Kind) any {
	if size > numeric.SmallSize {
		return v
	}
	if kind == KindInt {
		return v.Int64()
	}
	return v.Uint64()
}

func deserializeBytes(it *Item, ch *cursor.Chunk) (any, bool, *errors.Error) {
	prefixN := -1
	if it.LengthSize > 0 {
		raw, terr := ch.Take(it.LengthSize)
		if terr != nil {
			return nil, false, asLayoutError(errors.PhaseDeserialize, terr)
		}
		prefixN = int(numeric.Uint(raw, it.LengthEndianness == Little).Uint64())
	}

	c := it.Custom
	switch {
	case c != nil && (c.Kind == ConvConst || c.Kind == ConvFixed):
		var want []byte
		if it.Layout != nil {
			wire, werr := c.fixedObjectWire(*it.Layout)
			if werr != nil {
				return nil, false, asLayoutError(errors.PhaseDeserialize, werr)
			}
			want = wire
		} else {
			b, ok := c.fixedValue().([]byte)
			if !ok {
				return nil, false, errors.MalformedLayout(errors.PhaseDeserialize,
					"bytes constant must be []byte, got %T", c.fixedValue())
			}
			want = b
		}
		n := len(want)
		if it.Size > 0 {
			n = it.Size
		} else if prefixN >= 0 {
			n = prefixN
		}
		region, terr := ch.Take(n)
		if terr != nil {
			return nil, false, asLayoutError(errors.PhaseDeserialize, terr)
		}
		if cerr := checkBytesEqual(errors.PhaseDeserialize, want, region); cerr != nil {
			return nil, false, cerr
		}
		return c.decodedValue(), c.Omit, nil

	case it.Layout != nil:
		sub := ch
		if it.Size > 0 || prefixN >= 0 {
			n := it.Size
			if prefixN >= 0 {
				n = prefixN
			}
			carved, serr := ch.Sub(n)
			if serr != nil {
				return nil, false, asLayoutError(errors.PhaseDeserialize, serr)
			}
			sub = carved
		}
		v, derr := deserializeLayout(*it.Layout, sub)
		if derr != nil {
			return nil, false, derr
		}
		if sub != ch && !sub.Done() {
			return nil, false, errors.ExcessBytes(sub.Remaining())
		}
		if c != nil {
			out, cerr := c.Decode(v)
			if cerr != nil {
				return nil, false, conversionError(errors.PhaseDeserialize, cerr)
			}
			return out, false, nil
		}
		return v, false, nil

	default:
		var region []byte
		switch {
		case it.Size > 0:
			r, terr := ch.Take(it.Size)
			if terr != nil {
				return nil, false, asLayoutError(errors.PhaseDeserialize, terr)
			}
			region = r
		case prefixN >= 0:
			r, terr := ch.Take(prefixN)
			if terr != nil {
				return nil, false, asLayoutError(errors.PhaseDeserialize, terr)
			}
			region = r
		default:
			region = ch.TakeRest()
		}
		if c != nil {
			out, cerr := c.Decode(region)
			if cerr != nil {
				return nil, false, conversionError(errors.PhaseDeserialize, cerr)
			}
			return out, false, nil
		}
		// No conversion: hand back a view of the input, not a copy.
		return region, false, nil
	}
}

func deserializeArray(it *Item, ch *cursor.Chunk) (any, *errors.Error) {
	out := []any{}

	decodeOne := func(i int) *errors.Error {
		v, err := deserializeLayout(*it.Layout, ch)
		if err != nil {
			return err.WithName(indexName(i))
		}
		out = append(out, v)
		return nil
	}

	switch {
	case it.HasLength:
		for i := 0; i < it.Length; i++ {
			if err := decodeOne(i); err != nil {
				return nil, err
			}
		}
	case it.LengthSize > 0:
		raw, terr := ch.Take(it.LengthSize)
		if terr != nil {
			return nil, asLayoutError(errors.PhaseDeserialize, terr)
		}
		n := int(numeric.Uint(raw, it.LengthEndianness == Little).Uint64())
		for i := 0; i < n; i++ {
			if err := decodeOne(i); err != nil {
				return nil, err
			}
		}
	default:
		for i := 0; !ch.Done(); i++ {
			if err := decodeOne(i); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func deserializeSwitch(it *Item, ch *cursor.Chunk) (any, *errors.Error) {
	raw, terr := ch.Take(it.IDSize)
	if terr != nil {
		return nil, asLayoutError(errors.PhaseDeserialize, terr)
	}
	id := numeric.Uint(raw, it.IDEndianness == Little).Uint64()

	var pair *Case
	for i := range it.Cases {
		if it.Cases[i].ID == id {
			pair = &it.Cases[i]
			break
		}
	}
	if pair == nil {
		return nil, errors.UnknownSwitchID(errors.PhaseDeserialize, id)
	}

	v, derr := deserializeLayout(pair.Layout, ch)
	if derr != nil {
		return nil, derr
	}
	bm := v.(map[string]any)

	// Splice the discriminant alongside the branch fields: the user
	// label when the id is remapped, the plain wire id otherwise.
	if pair.Label != nil {
		bm[it.idTag()] = pair.Label
	} else {
		bm[it.idTag()] = id
	}
	return bm, nil
}
