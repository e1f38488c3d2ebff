package store

import (
	json "github.com/goccy/go-json"
)

// ConcurrencyControl selects how Append treats a stale optimistic lock version
type ConcurrencyControl int

const (
	// Optimistic rejects an Append whose lock version differs from the stored one
	Optimistic ConcurrencyControl = iota
	// None appends regardless of the stored lock version
	None
)

// NextVersion returns the lock version of the next write of an entity at
// current against a store holding stored. It never lies below either.
func NextVersion(current, stored int64) int64 {
	if current > stored {
		return current + 1
	}
	return stored + 1
}

// Metadata holds the store specific settings passed to Init
type Metadata struct {
	Properties map[string]string
}

// EntityStore is the interface for a versioned entity store. Stores persist
// the PersistView of an entity and keep its optimistic lock version beside it.
type EntityStore interface {
	Init(metadata Metadata) error
	// Add stores the first version of an entity, its lock version becomes 1
	Add(entity *Entity) (*Entity, error)
	// Append stores a new version of an entity and increments its lock version
	Append(entity *Entity, concurrency ConcurrencyControl) (*Entity, error)

	Get(uid string) (*Entity, error)
	GetLatestVersionNumber(uid string) (int64, error)
	GetByVersion(uid string, version int64) (*Entity, error)
}

// MarshalPersisted serializes the persist view of entity
func MarshalPersisted(entity *Entity) ([]byte, error) {
	data, err := json.Marshal(entity.PersistView())
	if err != nil {
		return nil, EntityError{
			Text:       "serializing entity " + entity.EntityUID() + " failed",
			ErrorType:  SerializationFailed,
			InnerError: err,
		}
	}
	return data, nil
}

// UnmarshalPersisted rebuilds an entity from its serialized persist view
func UnmarshalPersisted(data []byte, version int64) (*Entity, error) {
	var p PersistedEntity
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, EntityError{
			Text:       "deserializing persisted entity failed",
			ErrorType:  SerializationFailed,
			InnerError: err,
		}
	}
	return FromPersistView(p, version), nil
}
