// Package patch provides an optional-value type for partial update requests.
//
// A Field distinguishes a key that was absent from the JSON body from one that was
// present with a zero value, so "duration": 0 overwrites while a missing duration
// keeps the stored value.
package patch

import (
	"bytes"
	"encoding/json"
)

// Field holds a value that may or may not have been supplied.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Of returns a Field set to v.
func Of[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// UnmarshalJSON is only invoked for keys present in the payload.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Null = true
		var zero T
		f.Value = zero
		return nil
	}
	return json.Unmarshal(data, &f.Value)
}

// MarshalJSON renders unset and null fields as null.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set || f.Null {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Or returns the supplied value, or current when the field was not supplied.
// An explicit null counts as supplied and yields the zero value.
func (f Field[T]) Or(current T) T {
	if !f.Set {
		return current
	}
	return f.Value
}

// Apply overwrites *dst when the field was supplied.
func (f Field[T]) Apply(dst *T) {
	if f.Set {
		*dst = f.Value
	}
}
