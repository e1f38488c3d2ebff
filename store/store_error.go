package store

import (
	"errors"
	"fmt"
)

// ErrorType is the base type of error that are returned
type ErrorType int

const (
	// SerializationFailed is returned when JSON serialization fails
	SerializationFailed ErrorType = iota + 1
	// EntityNotFound is returned when a requested entity was not found
	EntityNotFound
	// VersionConflict is returned when an entity should be saved with a too old version
	VersionConflict
	// InternalError is returned in all other cases
	InternalError
	// EntityAlreadyExists is returned when an entity is added twice
	EntityAlreadyExists
	// NotificationNumberUnset is returned when a notification number is incremented before it was determined
	NotificationNumberUnset
)

func (t ErrorType) String() string {
	switch t {
	case SerializationFailed:
		return "SerializationFailed"
	case EntityNotFound:
		return "EntityNotFound"
	case VersionConflict:
		return "VersionConflict"
	case InternalError:
		return "InternalError"
	case EntityAlreadyExists:
		return "EntityAlreadyExists"
	case NotificationNumberUnset:
		return "NotificationNumberUnset"
	}
	return fmt.Sprintf("ErrorType(%d)", int(t))
}

// EntityError that is returned in case of an error
type EntityError struct {
	Text       string
	ErrorType  ErrorType
	InnerError error
}

func (e EntityError) Error() string {
	if e.InnerError == nil {
		return e.Text
	}
	return fmt.Sprintf("%s -- Inner error: %s", e.Text, e.InnerError)
}

func (e EntityError) Unwrap() error {
	return e.InnerError
}

// IsErrorType reports whether err is, or wraps, an EntityError of type t
func IsErrorType(err error, t ErrorType) bool {
	var ee EntityError
	if errors.As(err, &ee) {
		return ee.ErrorType == t
	}
	return false
}
