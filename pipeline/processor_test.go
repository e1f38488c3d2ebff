package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/AndreasM009/entitystore-go/revision"
	"github.com/AndreasM009/entitystore-go/store"
	"github.com/AndreasM009/entitystore-go/store/inmemory"
)

type recordingNotifier struct {
	entities []store.OutputEntity
	err      error
	mutex    sync.Mutex
}

func (n *recordingNotifier) Notify(ctx context.Context, entity *store.Entity) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if n.err != nil {
		return n.err
	}
	n.entities = append(n.entities, entity.OutputView())
	return nil
}

func (n *recordingNotifier) Close() error {
	return nil
}

func (n *recordingNotifier) count() int {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return len(n.entities)
}

func newTestProcessor(t *testing.T, opts ...Option) (*Processor, store.EntityStore, *recordingNotifier) {
	s := inmemory.NewStore()
	require.NoError(t, s.Init(store.Metadata{Properties: map[string]string{}}))

	n := &recordingNotifier{}
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	return NewProcessor(s, n, revision.DefaultRegistry(), opts...), s, n
}

func event(uid, eventKey, serialized string) *store.Entity {
	e := store.NewEntity(uid)
	e.SetEntityType("Order")
	e.SetEventKey(eventKey)
	e.SetRevisionTypeName("int64")
	e.SetRevisionSerialized(serialized)
	return e
}

func notificationNumber(t *testing.T, o store.OutputEntity) int64 {
	require.NotNil(t, o.NotificationNumber)
	return *o.NotificationNumber
}

func TestProcessCreate(t *testing.T) {
	p, s, n := newTestProcessor(t)

	outcome, err := p.Process(context.Background(), event("order-1", "evt-1", "1"))
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)

	require.Len(t, n.entities, 1)
	assert.Equal(t, "Order", n.entities[0].EntityType)
	assert.Equal(t, revision.Int64(1), n.entities[0].Revision)
	assert.Equal(t, int64(1), notificationNumber(t, n.entities[0]))

	stored, err := s.Get("order-1")
	require.NoError(t, err)
	assert.Equal(t, "1", stored.RevisionSerialized())
	notified, ok := stored.EventKeyNotified()
	assert.True(t, ok)
	assert.True(t, notified)
}

func TestProcessUpdate(t *testing.T) {
	p, s, n := newTestProcessor(t)
	ctx := context.Background()

	_, err := p.Process(ctx, event("order-1", "evt-1", "1"))
	require.NoError(t, err)

	outcome, err := p.Process(ctx, event("order-1", "evt-2", "5"))
	require.NoError(t, err)
	assert.Equal(t, Updated, outcome)

	outcome, err = p.Process(ctx, event("order-1", "evt-3", "6"))
	require.NoError(t, err)
	assert.Equal(t, Updated, outcome)

	require.Len(t, n.entities, 3)
	assert.Equal(t, revision.Int64(6), n.entities[2].Revision)
	assert.Equal(t, "evt-3", n.entities[2].EventKey)
	assert.Equal(t, int64(2), notificationNumber(t, n.entities[1]))
	assert.Equal(t, int64(3), notificationNumber(t, n.entities[2]))

	version, err := s.GetLatestVersionNumber("order-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)
}

func TestProcessStale(t *testing.T) {
	p, s, n := newTestProcessor(t)
	ctx := context.Background()

	_, err := p.Process(ctx, event("order-1", "evt-1", "5"))
	require.NoError(t, err)

	for _, serialized := range []string{"5", "4"} {
		outcome, err := p.Process(ctx, event("order-1", "evt-"+serialized+"-late", serialized))
		require.NoError(t, err)
		assert.Equal(t, Stale, outcome)
	}

	assert.Equal(t, 1, n.count())
	version, err := s.GetLatestVersionNumber("order-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestProcessDuplicateRenotifies(t *testing.T) {
	p, s, n := newTestProcessor(t)
	ctx := context.Background()

	_, err := p.Process(ctx, event("order-1", "evt-1", "1"))
	require.NoError(t, err)
	_, err = p.Process(ctx, event("order-1", "evt-2", "2"))
	require.NoError(t, err)

	outcome, err := p.Process(ctx, event("order-1", "evt-2", "2"))
	require.NoError(t, err)
	assert.Equal(t, Renotified, outcome)

	require.Len(t, n.entities, 3)
	assert.Equal(t, n.entities[1], n.entities[2])

	version, err := s.GetLatestVersionNumber("order-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
}

func TestProcessDuplicateWithoutNotification(t *testing.T) {
	p, s, n := newTestProcessor(t)

	silent := event("order-1", "evt-1", "1")
	silent.SetEventKeyNotified(false)
	_, err := s.Add(silent)
	require.NoError(t, err)

	outcome, err := p.Process(context.Background(), event("order-1", "evt-1", "1"))
	require.NoError(t, err)
	assert.Equal(t, Duplicate, outcome)
	assert.Equal(t, 0, n.count())
}

func TestProcessFailedNotificationIsSentOnRedelivery(t *testing.T) {
	p, _, n := newTestProcessor(t)
	ctx := context.Background()

	n.err = errors.New("broker unavailable")
	outcome, err := p.Process(ctx, event("order-1", "evt-1", "1"))
	assert.NotNil(t, err)
	assert.Equal(t, Failed, outcome)

	n.err = nil
	outcome, err = p.Process(ctx, event("order-1", "evt-1", "1"))
	require.NoError(t, err)
	assert.Equal(t, Renotified, outcome)
	assert.Equal(t, 1, n.count())
}

func TestProcessInvalidRevision(t *testing.T) {
	p, s, n := newTestProcessor(t)
	ctx := context.Background()

	outcome, err := p.Process(ctx, event("order-1", "evt-1", "one"))
	var deserialization *revision.DeserializationError
	assert.True(t, errors.As(err, &deserialization))
	assert.Equal(t, Failed, outcome)

	unknown := event("order-2", "evt-1", "1")
	unknown.SetRevisionTypeName("does.not.Exist")
	outcome, err = p.Process(ctx, unknown)
	var unknownType *revision.UnknownTypeError
	assert.True(t, errors.As(err, &unknownType))
	assert.Equal(t, Failed, outcome)

	assert.Equal(t, 0, n.count())
	_, err = s.Get("order-1")
	assert.True(t, store.IsErrorType(err, store.EntityNotFound))
}

func TestProcessMissingEntityUID(t *testing.T) {
	p, _, _ := newTestProcessor(t)

	_, err := p.Process(context.Background(), event("", "evt-1", "1"))
	assert.True(t, errors.Is(err, ErrMissingEntityUID))
}

func TestProcessNilEvent(t *testing.T) {
	p, _, n := newTestProcessor(t)

	outcome, err := p.Process(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrMissingEntityUID))
	assert.Equal(t, Failed, outcome)
	assert.Equal(t, 0, n.count())
}

func TestProcessIncomparableRevisions(t *testing.T) {
	p, _, n := newTestProcessor(t)
	ctx := context.Background()

	_, err := p.Process(ctx, event("order-1", "evt-1", "1"))
	require.NoError(t, err)

	other := event("order-1", "evt-2", "b")
	other.SetRevisionTypeName("string")
	outcome, err := p.Process(ctx, other)
	assert.True(t, errors.Is(err, revision.ErrIncomparable))
	assert.Equal(t, Failed, outcome)
	assert.Equal(t, 1, n.count())
}

func TestProcessRemembersMethod(t *testing.T) {
	p, _, _ := newTestProcessor(t, WithPreferredMethod(revision.WithQuotations))

	e := event("order-1", "evt-1", "1")
	_, err := p.Process(context.Background(), e)
	require.NoError(t, err)

	assert.Equal(t, revision.WithoutQuotations, p.methods.get("Order"))
	assert.Equal(t, revision.WithQuotations, p.methods.get("Invoice"))
}
