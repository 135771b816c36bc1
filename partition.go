package layout

import (
	"reflect"

	"github.com/nonergodic/layout/errors"
)

// FixedItemsOf returns the sub-layout of items whose values the layout
// itself determines: constants, fixed conversions, and containers
// whose contents are recursively fixed. Items that vanish entirely are
// dropped from the result.
func FixedItemsOf(l Layout) Layout {
	return partitionLayout(l, fixedPartOfItem)
}

// DynamicItemsOf returns the complement of FixedItemsOf: the items a
// caller must supply values for, including every item carrying a
// custom conversion.
func DynamicItemsOf(l Layout) Layout {
	return partitionLayout(l, dynamicPartOfItem)
}

func partitionLayout(l Layout, part func(Item) *Item) Layout {
	if l.IsSingle() {
		if it := part(*l.single); it != nil {
			return Single(*it)
		}
		return Layout{}
	}
	var items []Item
	for i := range l.items {
		if it := part(l.items[i]); it != nil {
			items = append(items, *it)
		}
	}
	return Layout{items: items}
}

func fixedPartOfItem(it Item) *Item {
	if c := it.Custom; c != nil {
		if c.Kind == ConvCustom {
			return nil
		}
		return &it
	}

	switch it.Kind {
	case KindBytes:
		if it.Layout == nil {
			return nil
		}
		sub := FixedItemsOf(*it.Layout)
		if sub.Empty() {
			return nil
		}
		it.Layout = &sub
		return &it

	case KindArray:
		sub := FixedItemsOf(*it.Layout)
		if sub.Empty() {
			return nil
		}
		it.Layout = &sub
		return &it

	case KindSwitch:
		var cases []Case
		for i := range it.Cases {
			sub := FixedItemsOf(it.Cases[i].Layout)
			if sub.Empty() {
				continue
			}
			cs := it.Cases[i]
			cs.Layout = sub
			cases = append(cases, cs)
		}
		if len(cases) == 0 {
			return nil
		}
		it.Cases = cases
		return &it
	}
	return nil
}

func dynamicPartOfItem(it Item) *Item {
	if c := it.Custom; c != nil {
		if c.Kind == ConvCustom {
			return &it
		}
		return nil
	}

	switch it.Kind {
	case KindBytes:
		if it.Layout == nil {
			return &it
		}
		sub := DynamicItemsOf(*it.Layout)
		if sub.Empty() {
			return nil
		}
		it.Layout = &sub
		return &it

	case KindArray:
		sub := DynamicItemsOf(*it.Layout)
		if sub.Empty() {
			return nil
		}
		it.Layout = &sub
		return &it

	case KindSwitch:
		// The discriminant is always caller-supplied, so a switch only
		// vanishes when every branch does.
		var cases []Case
		for i := range it.Cases {
			sub := DynamicItemsOf(it.Cases[i].Layout)
			if sub.Empty() {
				continue
			}
			cs := it.Cases[i]
			cs.Layout = sub
			cases = append(cases, cs)
		}
		if len(cases) == 0 {
			return nil
		}
		it.Cases = cases
		return &it
	}
	return &it
}

// AddFixedValues rehydrates a full value for the layout from the
// dynamic half: fixed items contribute their own values (omitted
// constants contribute nothing), containers recurse, and dynamic items
// are copied from dynamicData by name.
func AddFixedValues(l Layout, dynamicData any) (any, error) {
	v, err := addFixedLayout(l, dynamicData)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func addFixedLayout(l Layout, dynamicData any) (any, *errors.Error) {
	if l.IsSingle() {
		v, _, err := addFixedItem(*l.single, dynamicData, true)
		return v, err
	}
	dm, derr := properData(errors.PhaseSerialize, dynamicData)
	if derr != nil {
		return nil, derr
	}
	out := make(map[string]any, len(l.items))
	for i := range l.items {
		it := &l.items[i]
		v, include, err := addFixedItem(*it, dm[it.Name], dm != nil && hasKey(dm, it.Name))
		if err != nil {
			return nil, err.WithName(it.Name)
		}
		if include {
			out[it.Name] = v
		}
	}
	return out, nil
}

func hasKey(m map[string]any, k string) bool {
	_, ok := m[k]
	return ok
}

// addFixedItem produces the merged value of one item. include reports
// whether the value belongs in the output (omitted constants do not).
func addFixedItem(it Item, dynamic any, supplied bool) (any, bool, *errors.Error) {
	if c := it.Custom; c != nil {
		switch c.Kind {
		case ConvConst:
			if c.Omit {
				return nil, false, nil
			}
			return constDecodedValue(&it, c), true, nil
		case ConvFixed:
			return c.To, true, nil
		case ConvCustom:
			if !supplied {
				return nil, false, errors.UnknownField(errors.PhaseSerialize, it.Name)
			}
			return dynamic, true, nil
		}
	}

	switch it.Kind {
	case KindBytes:
		if it.Layout != nil {
			v, err := addFixedLayout(*it.Layout, dynamic)
			if err != nil {
				return nil, false, err
			}
			return v, true, nil
		}

	case KindArray:
		rv := reflect.ValueOf(dynamic)
		if dynamic == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			return nil, false, errors.New(errors.PhaseSerialize, errors.KindIncompleteData).
				Detail("array expects a slice, got %T", dynamic).
				Build()
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			v, err := addFixedLayout(*it.Layout, rv.Index(i).Interface())
			if err != nil {
				return nil, false, err.WithName(indexName(i))
			}
			out[i] = v
		}
		return out, true, nil

	case KindSwitch:
		dm, derr := properData(errors.PhaseSerialize, dynamic)
		if derr != nil {
			return nil, false, derr
		}
		if dm == nil {
			return nil, false, errors.New(errors.PhaseSerialize, errors.KindIncompleteData).
				Detail("switch expects data to select a branch").
				Build()
		}
		pair, perr := findIDLayoutPair(&it, dm)
		if perr != nil {
			return nil, false, perr
		}
		merged, err := addFixedLayout(pair.Layout, dynamic)
		if err != nil {
			return nil, false, err
		}
		mm := merged.(map[string]any)
		mm[it.idTag()] = dm[it.idTag()]
		return mm, true, nil
	}

	if !supplied {
		return nil, false, errors.UnknownField(errors.PhaseSerialize, it.Name)
	}
	return dynamic, true, nil
}

// constDecodedValue mirrors what deserialize would produce for a
// numeric constant: the narrowed wire representation.
func constDecodedValue(it *Item, c *Conversion) any {
	if it.Kind != KindUint && it.Kind != KindInt {
		return c.Const
	}
	v, ok := coerceNarrow(it, c.Const)
	if !ok {
		return c.Const
	}
	return v
}
