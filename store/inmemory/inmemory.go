package inmemory

import (
	"fmt"
	"sync"

	"github.com/AndreasM009/entitystore-go/store"
)

type inmemory struct {
	entities map[string]map[int64][]byte
	versions map[string]int64
	mutex    sync.Mutex
}

// NewStore creates a new in memory store
func NewStore() store.EntityStore {
	return &inmemory{}
}

func (s *inmemory) Init(metadata store.Metadata) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.versions = make(map[string]int64)
	s.entities = make(map[string]map[int64][]byte)
	return nil
}

func (s *inmemory) Add(entity *store.Entity) (*store.Entity, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.versions[entity.EntityUID()]; exists {
		return nil, store.EntityError{
			Text:      fmt.Sprintf("An entity with id %s already exists", entity.EntityUID()),
			ErrorType: store.EntityAlreadyExists,
		}
	}

	data, err := store.MarshalPersisted(entity)
	if err != nil {
		return nil, err
	}

	entity.SetOptimisticLockVersion(1)
	s.versions[entity.EntityUID()] = 1
	s.entities[entity.EntityUID()] = map[int64][]byte{1: data}
	return entity.Clone(), nil
}

func (s *inmemory) Append(entity *store.Entity, concurrency store.ConcurrencyControl) (*store.Entity, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	version, exists := s.versions[entity.EntityUID()]

	if !exists {
		return nil, store.EntityError{
			Text:      fmt.Sprintf("Entity with ID %s does not exist", entity.EntityUID()),
			ErrorType: store.EntityNotFound,
		}
	}

	if concurrency == store.Optimistic && version != entity.OptimisticLockVersion() {
		return nil, store.EntityError{
			Text:      fmt.Sprintf("Entity %s has gone stale, newer version already available (OOL)", entity.EntityUID()),
			ErrorType: store.VersionConflict,
		}
	}

	data, err := store.MarshalPersisted(entity)
	if err != nil {
		return nil, err
	}

	version = store.NextVersion(entity.OptimisticLockVersion(), version)
	entity.SetOptimisticLockVersion(version)
	s.versions[entity.EntityUID()] = version
	s.entities[entity.EntityUID()][version] = data
	return entity.Clone(), nil
}

func (s *inmemory) Get(uid string) (*store.Entity, error) {
	s.mutex.Lock()
	version, exists := s.versions[uid]
	s.mutex.Unlock()

	if !exists {
		return nil, store.EntityError{
			Text:      fmt.Sprintf("Entity with ID %s does not exist", uid),
			ErrorType: store.EntityNotFound,
		}
	}

	return s.GetByVersion(uid, version)
}

func (s *inmemory) GetLatestVersionNumber(uid string) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	version, exists := s.versions[uid]

	if !exists {
		return 0, store.EntityError{
			Text:      fmt.Sprintf("Entity with ID %s does not exist", uid),
			ErrorType: store.EntityNotFound,
		}
	}

	return version, nil
}

func (s *inmemory) GetByVersion(uid string, version int64) (*store.Entity, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ebv, exists := s.entities[uid]
	if !exists {
		return nil, store.EntityError{
			Text:      fmt.Sprintf("Entity with ID %s does not exist", uid),
			ErrorType: store.EntityNotFound,
		}
	}

	data, exists := ebv[version]

	if !exists {
		return nil, store.EntityError{
			Text:      fmt.Sprintf("Version %v of entity with ID %s does not exist", version, uid),
			ErrorType: store.EntityNotFound,
		}
	}

	// a fresh entity per call, callers never share state with the store
	return store.UnmarshalPersisted(data, version)
}
