package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// Tuple is implemented by fixed-arity positional types. They encode as JSON arrays
// and derive a prefixItems schema with equal minItems and maxItems.
type Tuple interface {
	TupleTypes() []reflect.Type
}

// ArityError reports a JSON array whose length differs from the tuple arity.
type ArityError struct {
	Expected int
	Found    int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("expected %d elements, found %d", e.Expected, e.Found)
}

// Arity returns the element count of a tuple type.
func Arity(t reflect.Type) (int, bool) {
	elems, ok := tupleTypes(t)
	return len(elems), ok
}

func tupleTypes(t reflect.Type) ([]reflect.Type, bool) {
	if t == nil || t.Kind() == reflect.Pointer || !implements(t, tupleType) {
		return nil, false
	}
	return reflect.New(t).Interface().(Tuple).TupleTypes(), true
}

// Void is the unit type. It encodes as JSON null and is the input of
// tools that take no arguments.
type Void struct{}

func (Void) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

func (*Void) UnmarshalJSON(data []byte) error {
	if !bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("expected null, found %s", truncate(data))
	}
	return nil
}

func (Void) JSONSchema() *jsonschema.Schema { return nullSchema() }

// Newtype wraps a single value as a one-element tuple. Declare distinct
// domain types by embedding it:
//
//	type BookingID struct{ schema.Newtype[string] }
//
// Newtype[T] never collapses to the schema of T; its arity stays observable.
type Newtype[T any] struct {
	Value T
}

// NewNewtype wraps v.
func NewNewtype[T any](v T) Newtype[T] { return Newtype[T]{Value: v} }

func (Newtype[T]) TupleTypes() []reflect.Type {
	return []reflect.Type{reflect.TypeFor[T]()}
}

func (n Newtype[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal([1]any{n.Value})
}

func (n *Newtype[T]) UnmarshalJSON(data []byte) error {
	elems, err := splitArray(data, 1)
	if err != nil {
		return err
	}
	return json.Unmarshal(elems[0], &n.Value)
}

// Pair is a two-element tuple.
type Pair[A, B any] struct {
	First  A
	Second B
}

func (Pair[A, B]) TupleTypes() []reflect.Type {
	return []reflect.Type{reflect.TypeFor[A](), reflect.TypeFor[B]()}
}

func (p Pair[A, B]) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.First, p.Second})
}

func (p *Pair[A, B]) UnmarshalJSON(data []byte) error {
	elems, err := splitArray(data, 2)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(elems[0], &p.First); err != nil {
		return err
	}
	return json.Unmarshal(elems[1], &p.Second)
}

// Triple is a three-element tuple.
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

func (Triple[A, B, C]) TupleTypes() []reflect.Type {
	return []reflect.Type{reflect.TypeFor[A](), reflect.TypeFor[B](), reflect.TypeFor[C]()}
}

func (t Triple[A, B, C]) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]any{t.First, t.Second, t.Third})
}

func (t *Triple[A, B, C]) UnmarshalJSON(data []byte) error {
	elems, err := splitArray(data, 3)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(elems[0], &t.First); err != nil {
		return err
	}
	if err := json.Unmarshal(elems[1], &t.Second); err != nil {
		return err
	}
	return json.Unmarshal(elems[2], &t.Third)
}

// splitArray decodes data as a JSON array of exactly n elements.
func splitArray(data []byte, n int) ([]json.RawMessage, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, err
	}
	if len(elems) != n {
		return nil, &ArityError{Expected: n, Found: len(elems)}
	}
	return elems, nil
}

func truncate(data []byte) string {
	const limit = 32
	if len(data) > limit {
		return string(data[:limit]) + "..."
	}
	return string(data)
}
