package layout

// SetEndianness returns a structurally equal layout in which every
// multi-byte integer carries the given byte order: numeric widths,
// length prefixes, and switch ids alike. Width-1 fields are returned
// unchanged. The original layout is not mutated; recursion is deep
// through nested layouts and every switch branch. Custom conversions
// are opaque to the rewriter.
func SetEndianness(l Layout, e Endianness) Layout {
	if l.IsSingle() {
		it := setItemEndianness(*l.single, e)
		return Single(it)
	}
	items := make([]Item, len(l.items))
	for i := range l.items {
		items[i] = setItemEndianness(l.items[i], e)
	}
	return Layout{items: items}
}

func setItemEndianness(it Item, e Endianness) Item {
	switch it.Kind {
	case KindUint, KindInt:
		if it.Size > 1 {
			it.Endianness = e
		}

	case KindBytes, KindArray:
		if it.LengthSize > 1 {
			it.LengthEndianness = e
		}
		if it.Layout != nil {
			nested := SetEndianness(*it.Layout, e)
			it.Layout = &nested
			// A fixed-object conversion memoizes its wire form against
			// the nested layout; the rewritten copy needs its own cache.
			if c := it.Custom; c != nil && c.Kind != ConvCustom {
				it.Custom = c.clone()
			}
		}

	case KindSwitch:
		if it.IDSize > 1 {
			it.IDEndianness = e
		}
		cases := make([]Case, len(it.Cases))
		for i := range it.Cases {
			cases[i] = it.Cases[i]
			cases[i].Layout = SetEndianness(it.Cases[i].Layout, e)
		}
		it.Cases = cases
	}
	return it
}
