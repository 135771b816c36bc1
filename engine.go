package layout

import (
	stderrors "errors"
	"math/big"
	"strconv"

	"github.com/nonergodic/layout/errors"
	"github.com/nonergodic/layout/internal/numeric"
)

// asLayoutError reuses a structured error when one is available and
// wraps anything else under the given phase.
func asLayoutError(phase errors.Phase, err error) *errors.Error {
	var le *errors.Error
	if stderrors.As(err, &le) {
		return le
	}
	return errors.New(phase, errors.KindIncompleteData).
		Cause(err).
		Detail("nested serialization failed").
		Build()
}

// conversionError wraps a failure from a user conversion function.
// Structured errors pass through so helper conversions keep their
// kinds; foreign errors surface as constant mismatches (the value was
// outside the conversion's domain).
func conversionError(phase errors.Phase, err error) *errors.Error {
	var le *errors.Error
	if stderrors.As(err, &le) {
		return le
	}
	return errors.New(phase, errors.KindConstMismatch).
		Cause(err).
		Detail("conversion rejected value").
		Build()
}

// indexName renders an array index as an error path element, matching
// the items.[3] style of the error paths.
func indexName(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}

func bigFromInt(n int) *big.Int {
	return big.NewInt(int64(n))
}

func bigFromUint(n uint64) *big.Int {
	return new(big.Int).SetUint64(n)
}

// coerceNarrow converts a constant to the representation deserialize
// would produce for the item's width.
func coerceNarrow(it *Item, v any) (any, bool) {
	wide, ok := numeric.Coerce(v)
	if !ok {
		return nil, false
	}
	return narrowNumeric(wide, it.Size, it.Kind), true
}

func itoaBytes(n int) string {
	if n == 1 {
		return "1 byte"
	}
	return strconv.Itoa(n) + " bytes"
}
