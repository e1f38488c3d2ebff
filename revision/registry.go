package revision

import (
	"bytes"
	"sync"
)

// UnmarshalFunc decodes data into the value pointed to by v
type UnmarshalFunc func(data []byte, v interface{}) error

// DecodeFunc decodes a serialized revision. The returned value must implement
// Revision to be accepted as one.
type DecodeFunc func(data []byte, unmarshal UnmarshalFunc) (interface{}, error)

// Kind is a named revision type that can be rebuilt from its serialized form
type Kind struct {
	Name   string
	Decode DecodeFunc
}

// TypeResolver resolves a revision type name to its kind
type TypeResolver interface {
	Resolve(name string) (Kind, error)
}

// Registry maps type names to revision kinds. It is safe for concurrent use.
type Registry struct {
	kinds map[string]Kind
	mutex sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		kinds: make(map[string]Kind),
	}
}

// DefaultRegistry creates a registry holding the built-in kinds
func DefaultRegistry() *Registry {
	r := NewRegistry()
	Register[Int64](r, "int64", "long", "integer")
	Register[Float64](r, "float64", "double")
	Register[String](r, "string")
	Register[Decimal](r, "decimal")
	Register[Time](r, "time", "timestamp")
	return r
}

// Register adds the value type T under the first name, the remaining names
// are aliases for the same kind.
func Register[T Revision](r *Registry, name string, aliases ...string) {
	r.RegisterFunc(func(data []byte, unmarshal UnmarshalFunc) (interface{}, error) {
		if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
			return nil, ErrNoValue
		}

		var v T
		if err := unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	}, name, aliases...)
}

// RegisterFunc adds a decode function under the first name and its aliases
func (r *Registry) RegisterFunc(decode DecodeFunc, name string, aliases ...string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	kind := Kind{Name: name, Decode: decode}
	r.kinds[name] = kind
	for _, alias := range aliases {
		r.kinds[alias] = kind
	}
}

// Resolve implements TypeResolver
func (r *Registry) Resolve(name string) (Kind, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	kind, ok := r.kinds[name]
	if !ok {
		return Kind{}, &UnknownTypeError{TypeName: name}
	}
	return kind, nil
}
