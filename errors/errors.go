package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseSize         Phase = "size"         // size computation
	PhaseSerialize    Phase = "serialize"    // value to bytes
	PhaseDeserialize  Phase = "deserialize"  // bytes to value
	PhaseDiscriminate Phase = "discriminate" // classifier construction
)

// Kind categorizes the error
type Kind string

const (
	KindTruncated       Kind = "truncated"         // read past end of buffer
	KindExcessBytes     Kind = "excess_bytes"      // consume-all violated
	KindUnderWrite      Kind = "under_write"       // computed size overshoots actual write
	KindSizeMismatch    Kind = "size_mismatch"     // declared vs observed size disagree
	KindOutOfRange      Kind = "out_of_range"      // numeric value exceeds width capacity
	KindConstMismatch   Kind = "constant_mismatch" // equality check against a constant failed
	KindUnknownSwitchID Kind = "unknown_switch_id" // wire id has no matching branch
	KindUnknownField    Kind = "unknown_field"     // item name missing from supplied data
	KindIncompleteData  Kind = "incomplete_data"   // size computation needs more data
	KindMalformedLayout Kind = "malformed_layout"  // layout invariant violation
)

// Error is the structured error type used throughout the codec
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// WithName returns a copy of the error with the given item name
// prepended to its path. Engines call this when an error crosses a
// named item boundary so callers can locate the offending field.
func (e *Error) WithName(name string) *Error {
	dup := *e
	dup.Path = append([]string{name}, e.Path...)
	return &dup
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Truncated creates a read-past-end error
func Truncated(phase Phase, need, have int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTruncated,
		Detail: fmt.Sprintf("need %d bytes, have %d", need, have),
	}
}

// ExcessBytes creates a consume-all violation error
func ExcessBytes(remaining int) *Error {
	return &Error{
		Phase:  PhaseDeserialize,
		Kind:   KindExcessBytes,
		Detail: fmt.Sprintf("%d bytes left after decoding", remaining),
	}
}

// UnderWrite creates a serialize undershoot error
func UnderWrite(wrote, expected int) *Error {
	return &Error{
		Phase:  PhaseSerialize,
		Kind:   KindUnderWrite,
		Detail: fmt.Sprintf("wrote %d of %d computed bytes", wrote, expected),
	}
}

// SizeMismatch creates a declared/observed size disagreement error
func SizeMismatch(phase Phase, expected, actual int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindSizeMismatch,
		Detail: fmt.Sprintf("expected %d bytes, got %d", expected, actual),
	}
}

// OutOfRange creates a numeric range error
func OutOfRange(phase Phase, value any, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfRange,
		Detail: detail,
		Value:  value,
	}
}

// ConstMismatch creates a constant equality failure error
func ConstMismatch(phase Phase, expected, actual any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindConstMismatch,
		Detail: fmt.Sprintf("expected %v, got %v", expected, actual),
		Value:  actual,
	}
}

// UnknownSwitchID creates an unmatched wire id error
func UnknownSwitchID(phase Phase, id any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownSwitchID,
		Detail: fmt.Sprintf("wire id %v has no matching branch", id),
		Value:  id,
	}
}

// UnknownField creates a missing data field error
func UnknownField(phase Phase, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownField,
		Detail: fmt.Sprintf("field %q not found in supplied data", name),
	}
}

// IncompleteData creates a size computation failure error
func IncompleteData(detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseSize,
		Kind:   KindIncompleteData,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// MalformedLayout creates a layout invariant violation error
func MalformedLayout(phase Phase, detail string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMalformedLayout,
		Detail: fmt.Sprintf(detail, args...),
	}
}
