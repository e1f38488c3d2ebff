package store

import (
	json "github.com/goccy/go-json"

	"github.com/AndreasM009/entitystore-go/revision"
)

// View selects the shape an Entity is serialized in
type View int

const (
	// ViewFull serializes every field except the optimistic lock version
	ViewFull View = iota
	// ViewPersist serializes the raw revision source for durable storage
	ViewPersist
	// ViewOutput serializes the resolved revision for downstream consumers
	ViewOutput
)

// PersistedEntity is the shape written to durable storage. The optimistic lock
// version is kept beside it by the store.
type PersistedEntity struct {
	EntityUID          string `json:"entityUid"`
	EventKey           string `json:"eventKey,omitempty"`
	EventKeyNotified   *bool  `json:"eventKeyNotifiedFlag,omitempty"`
	RevisionTypeName   string `json:"revisionTypeName,omitempty"`
	RevisionSerialized string `json:"revisionSerialized,omitempty"`
	NotificationNumber *int64 `json:"notificationNumber,omitempty"`
}

// OutputEntity is the shape emitted to downstream consumers
type OutputEntity struct {
	EntityType         string            `json:"entityType,omitempty"`
	EntityUID          string            `json:"entityUid"`
	EventKey           string            `json:"eventKey,omitempty"`
	Revision           revision.Revision `json:"revision,omitempty"`
	NotificationNumber *int64            `json:"notificationNumber,omitempty"`
}

// fullEntity is the inbound shape of an update event and the unprepared
// serialized shape. Revision is never read from JSON.
type fullEntity struct {
	EntityType         string            `json:"entityType,omitempty"`
	EntityUID          string            `json:"entityUid"`
	EventKey           string            `json:"eventKey,omitempty"`
	EventKeyNotified   *bool             `json:"eventKeyNotifiedFlag,omitempty"`
	RevisionTypeName   string            `json:"revisionTypeName,omitempty"`
	RevisionSerialized string            `json:"revisionSerialized,omitempty"`
	Revision           revision.Revision `json:"revision,omitempty"`
	NotificationNumber *int64            `json:"notificationNumber,omitempty"`
}

type inboundEntity struct {
	EntityType         string `json:"entityType"`
	EntityUID          string `json:"entityUid"`
	EventKey           string `json:"eventKey"`
	EventKeyNotified   *bool  `json:"eventKeyNotifiedFlag"`
	RevisionTypeName   string `json:"revisionTypeName"`
	RevisionSerialized string `json:"revisionSerialized"`
	NotificationNumber *int64 `json:"notificationNumber"`
}

// PersistView projects the entity onto the shape written to durable storage
func (e *Entity) PersistView() PersistedEntity {
	return PersistedEntity{
		EntityUID:          e.entityUID,
		EventKey:           e.eventKey,
		EventKeyNotified:   copyBool(e.eventKeyNotified),
		RevisionTypeName:   e.revisionTypeName,
		RevisionSerialized: e.revisionSerialized,
		NotificationNumber: copyInt64(e.notificationNumber),
	}
}

// OutputView projects the entity onto the shape emitted to downstream consumers
func (e *Entity) OutputView() OutputEntity {
	return OutputEntity{
		EntityType:         e.entityType,
		EntityUID:          e.entityUID,
		EventKey:           e.eventKey,
		Revision:           e.revision,
		NotificationNumber: copyInt64(e.notificationNumber),
	}
}

// FromPersistView rebuilds an entity loaded from durable storage. The revision
// is unresolved until DeserializeRevision is called.
func FromPersistView(p PersistedEntity, optimisticLockVersion int64) *Entity {
	e := NewEntity(p.EntityUID)
	e.eventKey = p.EventKey
	e.eventKeyNotified = copyBool(p.EventKeyNotified)
	e.SetRevisionTypeName(p.RevisionTypeName)
	e.SetRevisionSerialized(p.RevisionSerialized)
	e.notificationNumber = copyInt64(p.NotificationNumber)
	e.optimisticLockVersion = optimisticLockVersion
	return e
}

// View returns the shape MarshalJSON currently emits
func (e *Entity) View() View {
	return e.view
}

// PrepareForPersistSerialization makes MarshalJSON emit the persist view:
// the revision source fields are present, entity type and revision are not.
func (e *Entity) PrepareForPersistSerialization() {
	e.view = ViewPersist
}

// PrepareForOutputSerialization makes MarshalJSON emit the output view:
// entity type and revision are present, the notified flag and the revision
// source fields are not.
func (e *Entity) PrepareForOutputSerialization() {
	e.view = ViewOutput
}

// MarshalJSON implements json.Marshaler for the view selected last
func (e *Entity) MarshalJSON() ([]byte, error) {
	switch e.view {
	case ViewPersist:
		return json.Marshal(e.PersistView())
	case ViewOutput:
		return json.Marshal(e.OutputView())
	}

	return json.Marshal(fullEntity{
		EntityType:         e.entityType,
		EntityUID:          e.entityUID,
		EventKey:           e.eventKey,
		EventKeyNotified:   e.eventKeyNotified,
		RevisionTypeName:   e.revisionTypeName,
		RevisionSerialized: e.revisionSerialized,
		Revision:           e.revision,
		NotificationNumber: e.notificationNumber,
	})
}

// UnmarshalJSON implements json.Unmarshaler. It reads an update event or a
// persisted entity; a revision field in data is ignored.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var in inboundEntity
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*e = *NewEntity(in.EntityUID)
	e.SetEntityType(in.EntityType)
	e.SetEventKey(in.EventKey)
	e.eventKeyNotified = in.EventKeyNotified
	e.SetRevisionTypeName(in.RevisionTypeName)
	e.SetRevisionSerialized(in.RevisionSerialized)
	e.notificationNumber = in.NotificationNumber
	return nil
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func copyInt64(i *int64) *int64 {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
