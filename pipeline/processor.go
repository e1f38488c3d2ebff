// Package pipeline applies update events to stored entities and notifies
// downstream consumers about every accepted change.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/AndreasM009/entitystore-go/notifier"
	"github.com/AndreasM009/entitystore-go/revision"
	"github.com/AndreasM009/entitystore-go/store"
)

// ErrMissingEntityUID is returned for update events without an entity uid
var ErrMissingEntityUID = errors.New("update event without entityUid")

// Outcome describes what processing an event did
type Outcome int

const (
	// Failed means the event was neither persisted nor emitted
	Failed Outcome = iota
	// Created means the entity was stored for the first time
	Created
	// Updated means a newer revision replaced the stored one
	Updated
	// Stale means the stored revision is as new or newer, the event was dropped
	Stale
	// Duplicate means the event was processed before and is dropped
	Duplicate
	// Renotified means the event was processed before and its notification was sent again
	Renotified
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Stale:
		return "stale"
	case Duplicate:
		return "duplicate"
	case Renotified:
		return "renotified"
	}
	return "failed"
}

// Processor applies update events to an EntityStore
type Processor struct {
	store     store.EntityStore
	notifier  notifier.Notifier
	resolver  revision.TypeResolver
	unmarshal revision.UnmarshalFunc
	methods   *methodCache
	workers   int
	log       *zap.Logger
}

// Option configures a Processor
type Option func(*Processor)

// WithLogger sets the logger, the default discards everything
func WithLogger(log *zap.Logger) Option {
	return func(p *Processor) {
		p.log = log
	}
}

// WithPreferredMethod sets the quoting method tried first for entity types
// that have not been seen yet
func WithPreferredMethod(m revision.Method) Option {
	return func(p *Processor) {
		p.methods = newMethodCache(m)
	}
}

// WithUnmarshal replaces the deserializer used for revisions
func WithUnmarshal(unmarshal revision.UnmarshalFunc) Option {
	return func(p *Processor) {
		p.unmarshal = unmarshal
	}
}

// WithWorkers sets the number of workers used by Run
func WithWorkers(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

// NewProcessor creates a processor persisting to s and emitting to n
func NewProcessor(s store.EntityStore, n notifier.Notifier, resolver revision.TypeResolver, opts ...Option) *Processor {
	p := &Processor{
		store:     s,
		notifier:  n,
		resolver:  resolver,
		unmarshal: json.Unmarshal,
		methods:   newMethodCache(revision.WithoutQuotations),
		workers:   1,
		log:       zap.NewNop(),
	}

	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process applies one update event. Events of the same entity must not be
// processed concurrently, Run takes care of that.
func (p *Processor) Process(ctx context.Context, incoming *store.Entity) (Outcome, error) {
	if incoming == nil || incoming.EntityUID() == "" {
		return Failed, ErrMissingEntityUID
	}

	log := p.log.With(zap.String("entityUid", incoming.EntityUID()), zap.String("eventKey", incoming.EventKey()))

	if err := p.deserialize(incoming); err != nil {
		return Failed, err
	}

	stored, err := p.store.Get(incoming.EntityUID())
	if store.IsErrorType(err, store.EntityNotFound) {
		return p.create(ctx, log, incoming)
	}
	if err != nil {
		return Failed, err
	}

	// the persisted shape carries no entity type
	stored.SetEntityType(incoming.EntityType())
	if err := p.deserialize(stored); err != nil {
		return Failed, fmt.Errorf("stored entity %s: %w", stored.EntityUID(), err)
	}

	if incoming.EventKey() != "" && incoming.EventKey() == stored.EventKey() {
		if notified, _ := stored.EventKeyNotified(); notified {
			log.Debug("duplicate event, sending notification again")
			if err := p.notifier.Notify(ctx, stored); err != nil {
				return Failed, err
			}
			return Renotified, nil
		}
		log.Debug("duplicate event dropped")
		return Duplicate, nil
	}

	cmp, err := incoming.Revision().Compare(stored.Revision())
	if err != nil {
		return Failed, err
	}
	if cmp <= 0 {
		log.Debug("stale event dropped",
			zap.Any("revision", incoming.Revision()),
			zap.Any("storedRevision", stored.Revision()))
		return Stale, nil
	}

	return p.update(ctx, log, incoming, stored)
}

func (p *Processor) create(ctx context.Context, log *zap.Logger, incoming *store.Entity) (Outcome, error) {
	incoming.DetermineCurrentNotificationNumber()
	incoming.SetEventKeyNotified(true)

	if _, err := p.store.Add(incoming); err != nil {
		return Failed, err
	}

	// a failed notification leaves the notified flag set, a redelivery of the
	// same event is sent again
	if err := p.notifier.Notify(ctx, incoming); err != nil {
		return Failed, err
	}

	log.Debug("entity created", zap.Any("revision", incoming.Revision()))
	return Created, nil
}

func (p *Processor) update(ctx context.Context, log *zap.Logger, incoming, stored *store.Entity) (Outcome, error) {
	stored.DetermineCurrentNotificationNumber()
	number, _ := stored.NotificationNumber()

	incoming.SetOptimisticLockVersion(stored.OptimisticLockVersion())
	incoming.SetNotificationNumber(number)
	if _, err := incoming.IncrementNotificationNumber(); err != nil {
		return Failed, err
	}
	incoming.SetEventKeyNotified(true)

	if _, err := p.store.Append(incoming, store.Optimistic); err != nil {
		return Failed, err
	}

	if err := p.notifier.Notify(ctx, incoming); err != nil {
		return Failed, err
	}

	log.Debug("entity updated",
		zap.Any("revision", incoming.Revision()),
		zap.Int64("optimisticLockVersion", incoming.OptimisticLockVersion()))
	return Updated, nil
}

func (p *Processor) deserialize(e *store.Entity) error {
	method, err := e.DeserializeRevision(p.resolver, p.unmarshal, p.methods.get(e.EntityType()))
	if err != nil {
		return err
	}

	p.methods.set(e.EntityType(), method)
	return nil
}
