package filter

import (
	"fmt"
)

// Type is the type of a field visible to filter expressions.
type Type int

const (
	TypeInt Type = iota + 1
	TypeBytes
)

// String returns the name used in expressions and error messages.
func (t Type) String() string {
	switch t {
	case TypeInt:
		return "Int"
	case TypeBytes:
		return "Bytes"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Names of the fields exposed by ELBScheme.
const (
	FieldStatusCode     = "elb_status_code"
	FieldUserAgent      = "user_agent"
	FieldTargetGroupARN = "target_group_arn"
)

// Field declares one named, typed field of a Scheme.
type Field struct {
	Name string
	Type Type
}

// Scheme is the closed set of fields an expression may reference.
// It is immutable once built and safe to share.
type Scheme struct {
	fields []Field
	index  map[string]int
}

// NewScheme builds a scheme from the given fields. Names must be unique.
func NewScheme(fields ...Field) (*Scheme, error) {
	s := &Scheme{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("filter: scheme field with empty name")
		}
		if f.Type != TypeInt && f.Type != TypeBytes {
			return nil, fmt.Errorf("filter: field %s: unsupported type %s", f.Name, f.Type)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("filter: duplicate field %s", f.Name)
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// ELBScheme returns the scheme for ALB access-log records: the status code,
// the user agent and the target group ARN. Changing it breaks every saved
// pipeline configuration.
func ELBScheme() *Scheme {
	s, err := NewScheme(
		Field{Name: FieldStatusCode, Type: TypeInt},
		Field{Name: FieldUserAgent, Type: TypeBytes},
		Field{Name: FieldTargetGroupARN, Type: TypeBytes},
	)
	if err != nil {
		panic(err)
	}
	return s
}

// Lookup returns the type of the named field.
func (s *Scheme) Lookup(name string) (Type, bool) {
	i, ok := s.index[name]
	if !ok {
		return 0, false
	}
	return s.fields[i].Type, true
}

// Fields returns the declared fields in declaration order.
func (s *Scheme) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Len returns the number of declared fields.
func (s *Scheme) Len() int {
	return len(s.fields)
}
