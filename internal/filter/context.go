package filter

import (
	"fmt"
)

type value struct {
	i   int64
	b   string
	set bool
}

// ExecutionContext holds the field values a Predicate is evaluated against.
// One context is meant to be reused across records: set every field, run
// the predicates, then set the fields again for the next record.
type ExecutionContext struct {
	scheme *Scheme
	values []value
}

// NewExecutionContext creates an empty context for scheme.
func NewExecutionContext(scheme *Scheme) *ExecutionContext {
	return &ExecutionContext{
		scheme: scheme,
		values: make([]value, scheme.Len()),
	}
}

// Scheme returns the scheme the context was created for.
func (c *ExecutionContext) Scheme() *Scheme {
	return c.scheme
}

// SetInt assigns an Int field.
func (c *ExecutionContext) SetInt(name string, v int64) error {
	i, err := c.slot(name, TypeInt)
	if err != nil {
		return err
	}
	c.values[i] = value{i: v, set: true}
	return nil
}

// SetBytes assigns a Bytes field.
func (c *ExecutionContext) SetBytes(name string, v string) error {
	i, err := c.slot(name, TypeBytes)
	if err != nil {
		return err
	}
	c.values[i] = value{b: v, set: true}
	return nil
}

// Reset clears every field.
func (c *ExecutionContext) Reset() {
	clear(c.values)
}

func (c *ExecutionContext) slot(name string, want Type) (int, error) {
	i, ok := c.scheme.index[name]
	if !ok {
		return 0, fmt.Errorf("filter: unknown field %s", name)
	}
	if got := c.scheme.fields[i].Type; got != want {
		return 0, fmt.Errorf("filter: field %s is %s, not %s", name, got, want)
	}
	return i, nil
}
