// Package numeric implements width-N integer encoding over math/big.
//
// Layout widths range over 1..6 bytes for 64-bit-safe integers and up
// to 32 bytes for arbitrary precision, in either byte order. There is
// no fixed-width stdlib codec for 3- or 5-byte integers, so the
// encoder writes byte-at-a-time; all arithmetic and range checks run
// in big.Int for exactness regardless of the caller's input type.
package numeric
