package revision

import "fmt"

// UnknownTypeError is returned when a revision type name has no registered kind
type UnknownTypeError struct {
	TypeName string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown revision type %q", e.TypeName)
}

// DeserializationError is returned when a serialized revision could not be
// decoded with any quoting method, or when it decoded into a value that is not
// ordered.
type DeserializationError struct {
	TypeName   string
	Serialized string
	InnerError error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("could not deserialize revision %q as %s -- Inner error: %v", e.Serialized, e.TypeName, e.InnerError)
}

func (e *DeserializationError) Unwrap() error {
	return e.InnerError
}
