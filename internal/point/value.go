package point

import "time"

// Kind identifies the type a control point carries.
type Kind int

const (
	KindBool Kind = iota
	KindFloat
	KindString
)

// String returns a readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Value is a typed control-point value.
//
// Valid is the "unknown" sentinel: a point that has never been written,
// or whose source delivered garbage, carries Valid=false and every typed
// accessor reports no value. Evaluators treat that as "insufficient data"
// and no-op for the cycle.
type Value struct {
	Kind      Kind
	Bool      bool
	Float     float64
	Str       string
	Valid     bool
	UpdatedAt time.Time
}

// Bool creates a valid boolean value.
func Bool(b bool) Value {
	return Value{Kind: KindBool, Bool: b, Valid: true}
}

// Float creates a valid numeric value.
func Float(f float64) Value {
	return Value{Kind: KindFloat, Float: f, Valid: true}
}

// String creates a valid string value.
func String(s string) Value {
	return Value{Kind: KindString, Str: s, Valid: true}
}

// Invalid creates the unknown sentinel for the given kind.
func Invalid(kind Kind) Value {
	return Value{Kind: kind}
}

// Equal reports whether two values are interchangeable for write
// suppression. Timestamps are ignored: a re-write of the same payload is
// not a change.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind || v.Valid != other.Valid {
		return false
	}
	if !v.Valid {
		return true
	}
	switch v.Kind {
	case KindBool:
		return v.Bool == other.Bool
	case KindFloat:
		return v.Float == other.Float
	case KindString:
		return v.Str == other.Str
	default:
		return false
	}
}
