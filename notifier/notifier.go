// Package notifier emits the output view of entities to downstream consumers.
package notifier

import (
	"context"

	"github.com/AndreasM009/entitystore-go/store"
)

// Notifier is the interface for emitting changed entities
type Notifier interface {
	// Notify emits the output view of entity. It does not mutate entity.
	Notify(ctx context.Context, entity *store.Entity) error
	Close() error
}
