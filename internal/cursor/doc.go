// Package cursor provides the bounds-checked buffer accessors shared
// by the serialize and deserialize engines: a Writer that hands out
// reserved sub-slices of the output buffer (so length prefixes can be
// patched in place after the payload is written) and a Chunk that
// bounds reads to a sub-range of the input.
package cursor
