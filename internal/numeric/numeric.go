package numeric

import (
	"math"
	"math/big"
)

// SmallSize is the largest byte width decoded as a native Go integer.
// Wider values decode as *big.Int.
const SmallSize = 6

// MaxSize is the largest accepted numeric width in bytes.
const MaxSize = 32

// Coerce converts a supported Go representation to big.Int. It accepts
// the built-in integer types, *big.Int, and floats with an exact
// integral value. The returned value must be treated as read-only: for
// *big.Int inputs it aliases the argument.
func Coerce(v any) (*big.Int, bool) {
	switch n := v.(type) {
	case int:
		return big.NewInt(int64(n)), true
	case int8:
		return big.NewInt(int64(n)), true
	case int16:
		return big.NewInt(int64(n)), true
	case int32:
		return big.NewInt(int64(n)), true
	case int64:
		return big.NewInt(n), true
	case uint:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint8:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint16:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint64:
		return new(big.Int).SetUint64(n), true
	case *big.Int:
		if n == nil {
			return nil, false
		}
		return n, true
	case float32:
		return coerceFloat(float64(n))
	case float64:
		return coerceFloat(n)
	default:
		return nil, false
	}
}

func coerceFloat(f float64) (*big.Int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, false
	}
	i, _ := big.NewFloat(f).Int(nil)
	return i, true
}

// InUintRange reports whether 0 <= v < 2^(8*size).
func InUintRange(v *big.Int, size int) bool {
	if v.Sign() < 0 {
		return false
	}
	return v.BitLen() <= 8*size
}

// InIntRange reports whether -2^(8*size-1) <= v < 2^(8*size-1).
func InIntRange(v *big.Int, size int) bool {
	bound := new(big.Int).Lsh(big.NewInt(1), uint(8*size-1))
	if v.Sign() >= 0 {
		return v.Cmp(bound) < 0
	}
	bound.Neg(bound)
	return v.Cmp(bound) >= 0
}

// Put writes v into dst in two's complement. len(dst) is the width;
// v must already be range-checked for that width.
func Put(dst []byte, v *big.Int, little bool) {
	size := len(dst)
	wire := v
	if v.Sign() < 0 {
		// And with an all-ones mask yields the low bits of the
		// infinite two's complement form as a non-negative value.
		mask := new(big.Int).Lsh(big.NewInt(1), uint(8*size))
		mask.Sub(mask, big.NewInt(1))
		wire = new(big.Int).And(v, mask)
	}

	raw := wire.Bytes() // big-endian, minimal
	for i := range dst {
		dst[i] = 0
	}
	if little {
		for i, b := range raw {
			dst[len(raw)-1-i] = b
		}
	} else {
		copy(dst[size-len(raw):], raw)
	}
}

// Uint reads len(src) bytes as an unsigned integer.
func Uint(src []byte, little bool) *big.Int {
	if little {
		rev := make([]byte, len(src))
		for i, b := range src {
			rev[len(src)-1-i] = b
		}
		return new(big.Int).SetBytes(rev)
	}
	return new(big.Int).SetBytes(src)
}

// Int reads len(src) bytes as a two's complement signed integer.
func Int(src []byte, little bool) *big.Int {
	v := Uint(src, little)
	size := len(src)
	if v.Bit(8*size-1) == 1 {
		span := new(big.Int).Lsh(big.NewInt(1), uint(8*size))
		v.Sub(v, span)
	}
	return v
}

// Equal compares two coercible numerics by value. Either failing to
// coerce compares unequal.
func Equal(a, b any) bool {
	av, ok := Coerce(a)
	if !ok {
		return false
	}
	bv, ok := Coerce(b)
	if !ok {
		return false
	}
	return av.Cmp(bv) == 0
}
