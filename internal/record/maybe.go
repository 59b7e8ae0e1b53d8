package record

import (
	"math"
	"strconv"
)

// Number is the set of numeric types a Maybe can carry.
type Number interface {
	~int | ~float64
}

// Maybe is a numeric field that ALB may replace with a placeholder string.
// Raw always holds the wire text so the value re-encodes unchanged.
type Maybe[T Number] struct {
	Value T
	Raw   string
	Valid bool
}

// Some returns a valid Maybe holding v.
func Some[T Number](v T) Maybe[T] {
	return Maybe[T]{Value: v, Raw: format(v), Valid: true}
}

// Missing returns the placeholder variant carrying raw.
func Missing[T Number](raw string) Maybe[T] {
	return Maybe[T]{Raw: raw}
}

// Get returns the value and whether it was present.
func (m Maybe[T]) Get() (T, bool) {
	return m.Value, m.Valid
}

// String returns the wire representation.
func (m Maybe[T]) String() string {
	if m.Raw == "" && !m.Valid {
		return Placeholder
	}
	return m.Raw
}

// ParseFloat decodes s, falling back to the placeholder variant for any
// token that is not a finite number.
func ParseFloat(s string) Maybe[float64] {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Missing[float64](s)
	}
	return Maybe[float64]{Value: v, Raw: s, Valid: true}
}

// ParseInt decodes s as a base-10 integer, falling back to the placeholder
// variant for any token that is not one.
func ParseInt(s string) Maybe[int] {
	v, err := strconv.Atoi(s)
	if err != nil {
		return Missing[int](s)
	}
	return Maybe[int]{Value: v, Raw: s, Valid: true}
}

func format[T Number](v T) string {
	switch x := any(v).(type) {
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return strconv.FormatFloat(float64(v), 'f', -1, 64)
	}
}
