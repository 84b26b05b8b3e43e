package workflow

import (
	"sort"
	"sync/atomic"

	"github.com/google/uuid"
)

// Context is the store shared by every action of one run: a single input
// slot plus string-keyed intermediate values. Actions run one at a time, so
// the store itself is not synchronized. A Context belongs to exactly one run.
type Context struct {
	input    any
	hasInput bool
	values   map[string]any

	bound atomic.Bool
	runID uuid.UUID
}

// NewContext returns an empty, unbound Context.
func NewContext() *Context {
	return &Context{values: make(map[string]any)}
}

// SetInput fills the input slot. It can be called once.
func (c *Context) SetInput(v any) error {
	if c.hasInput {
		return ErrInputAlreadySet
	}
	c.input = v
	c.hasInput = true
	return nil
}

// Input returns the input value and whether one was set.
func (c *Context) Input() (any, bool) {
	return c.input, c.hasInput
}

// InputAs returns the input slot as a T.
func InputAs[T any](c *Context) (T, error) {
	var zero T
	if !c.hasInput {
		return zero, ErrNoInput
	}
	v, ok := c.input.(T)
	if !ok {
		return zero, &KeyTypeError{Key: "<input>", Want: typeName[T](), Got: c.input}
	}
	return v, nil
}

// Set stores v under key, replacing any previous value.
func (c *Context) Set(key string, v any) {
	c.values[key] = v
}

// Lookup returns the raw value stored under key.
func (c *Context) Lookup(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Has reports whether key was written.
func (c *Context) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Keys returns the written keys in sorted order.
func (c *Context) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RunID returns the id of the run this Context is bound to, or uuid.Nil.
func (c *Context) RunID() uuid.UUID {
	if !c.bound.Load() {
		return uuid.Nil
	}
	return c.runID
}

// Get returns the value under key as a T. Reading a key that was never
// written is an error, as is a value of another type.
func Get[T any](c *Context, key string) (T, error) {
	var zero T
	v, ok := c.values[key]
	if !ok {
		return zero, &KeyNotFoundError{Key: key}
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, &KeyTypeError{Key: key, Want: typeName[T](), Got: v}
	}
	return t, nil
}

func (c *Context) bind(id uuid.UUID) error {
	if !c.bound.CompareAndSwap(false, true) {
		return ErrContextInUse
	}
	c.runID = id
	return nil
}
