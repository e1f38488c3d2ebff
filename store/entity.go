package store

import (
	"fmt"

	"github.com/AndreasM009/entitystore-go/revision"
)

// Entity represents one versioned domain record in the EntityStore.
//
// The revision of an entity arrives as a type name plus a serialized string and
// is rebuilt with DeserializeRevision. An entity is serialized in one of two
// shapes, see PrepareForPersistSerialization and PrepareForOutputSerialization.
// An Entity is not safe for concurrent mutation; it is owned by one processing
// step at a time.
type Entity struct {
	entityType         string
	entityUID          string
	eventKey           string
	eventKeyNotified   *bool
	revisionTypeName   string
	revisionSerialized string
	revision           revision.Revision

	// optimisticLockVersion is compared by stores against the stored version.
	// It never leaves the process in a serialized entity.
	optimisticLockVersion int64
	notificationNumber    *int64

	view View
}

// NewEntity creates an entity identified by uid with an optimistic lock version of 1
func NewEntity(uid string) *Entity {
	return &Entity{
		entityUID:             uid,
		optimisticLockVersion: 1,
	}
}

// EntityType returns the label of the domain concept the entity represents
func (e *Entity) EntityType() string {
	return e.entityType
}

// SetEntityType sets the label of the domain concept the entity represents
func (e *Entity) SetEntityType(entityType string) {
	e.entityType = entityType
}

// EntityUID returns the key the entity is looked up and identified by
func (e *Entity) EntityUID() string {
	return e.entityUID
}

// EventKey returns the key of the event that produced this state
func (e *Entity) EventKey() string {
	return e.eventKey
}

// SetEventKey sets the key of the event that produced this state
func (e *Entity) SetEventKey(eventKey string) {
	e.eventKey = eventKey
}

// EventKeyNotified reports whether the event identified by EventKey resulted
// in a notification. ok is false if this was never recorded.
func (e *Entity) EventKeyNotified() (notified bool, ok bool) {
	if e.eventKeyNotified == nil {
		return false, false
	}
	return *e.eventKeyNotified, true
}

// SetEventKeyNotified records whether the event identified by EventKey resulted in a notification
func (e *Entity) SetEventKeyNotified(notified bool) {
	e.eventKeyNotified = &notified
}

// RevisionTypeName returns the name of the revision kind used by DeserializeRevision
func (e *Entity) RevisionTypeName() string {
	return e.revisionTypeName
}

// SetRevisionTypeName sets the name of the revision kind used by DeserializeRevision
func (e *Entity) SetRevisionTypeName(typeName string) {
	e.revisionTypeName = typeName
}

// RevisionSerialized returns the serialized revision
func (e *Entity) RevisionSerialized() string {
	return e.revisionSerialized
}

// SetRevisionSerialized sets the serialized revision
func (e *Entity) SetRevisionSerialized(serialized string) {
	e.revisionSerialized = serialized
}

// Revision returns the deserialized revision, nil until resolved
func (e *Entity) Revision() revision.Revision {
	return e.revision
}

// SetRevision sets the deserialized revision
func (e *Entity) SetRevision(rev revision.Revision) {
	e.revision = rev
}

// OptimisticLockVersion returns the version compared by stores on Append
func (e *Entity) OptimisticLockVersion() int64 {
	return e.optimisticLockVersion
}

// SetOptimisticLockVersion is used by stores when loading an entity
func (e *Entity) SetOptimisticLockVersion(version int64) {
	e.optimisticLockVersion = version
}

// IncrementOptimisticLockVersion increments the optimistic lock version in
// preparation for an update and returns the new value.
func (e *Entity) IncrementOptimisticLockVersion() int64 {
	e.optimisticLockVersion++
	return e.optimisticLockVersion
}

// NotificationNumber returns how many times the entity has changed as seen by
// downstream systems. ok is false if it was never determined.
func (e *Entity) NotificationNumber() (number int64, ok bool) {
	if e.notificationNumber == nil {
		return 0, false
	}
	return *e.notificationNumber, true
}

// SetNotificationNumber sets the notification number
func (e *Entity) SetNotificationNumber(number int64) {
	e.notificationNumber = &number
}

// DetermineCurrentNotificationNumber initializes the notification number from
// the optimistic lock version unless it is already set.
func (e *Entity) DetermineCurrentNotificationNumber() {
	if e.notificationNumber == nil {
		e.SetNotificationNumber(e.optimisticLockVersion)
	}
}

// IncrementNotificationNumber increments the notification number and returns
// the new value. The number must have been determined or set before.
func (e *Entity) IncrementNotificationNumber() (int64, error) {
	if e.notificationNumber == nil {
		return 0, EntityError{
			Text:      fmt.Sprintf("notification number of entity %s was never determined", e.entityUID),
			ErrorType: NotificationNumberUnset,
		}
	}

	*e.notificationNumber++
	return *e.notificationNumber, nil
}

// DeserializeRevision rebuilds the revision from RevisionTypeName and
// RevisionSerialized, trying the preferred quoting method first. It returns
// the method that succeeded. On failure the entity is left unchanged and the
// error is a *revision.UnknownTypeError or a *revision.DeserializationError.
func (e *Entity) DeserializeRevision(resolver revision.TypeResolver, unmarshal revision.UnmarshalFunc, preferred revision.Method) (revision.Method, error) {
	rev, method, err := revision.Decode(resolver, unmarshal, e.revisionTypeName, e.revisionSerialized, preferred)
	if err != nil {
		return preferred, err
	}

	e.SetRevision(rev)
	return method, nil
}

// SameEntity reports whether other identifies the same entity
func (e *Entity) SameEntity(other *Entity) bool {
	return other != nil && e.entityUID == other.entityUID
}

// Clone returns a copy that shares no mutable state with e
func (e *Entity) Clone() *Entity {
	c := *e
	if e.eventKeyNotified != nil {
		c.SetEventKeyNotified(*e.eventKeyNotified)
	}
	if e.notificationNumber != nil {
		c.SetNotificationNumber(*e.notificationNumber)
	}
	return &c
}

func (e *Entity) String() string {
	n := "<nil>"
	if e.notificationNumber != nil {
		n = fmt.Sprint(*e.notificationNumber)
	}
	return fmt.Sprintf("Entity(entityType=%s, entityUid=%s, eventKey=%s, revisionTypeName=%s, revisionSerialized=%s, revision=%v, optimisticLockVersion=%d, notificationNumber=%s)",
		e.entityType, e.entityUID, e.eventKey, e.revisionTypeName, e.revisionSerialized, e.revision, e.optimisticLockVersion, n)
}
