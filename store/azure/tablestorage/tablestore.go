package tablestorage

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Azure/azure-sdk-for-go/storage"

	"github.com/AndreasM009/entitystore-go/store"
)

const (
	entityTableName        = "entitystoreentities"
	entityVersionTableName = "entitystoreversion"

	storageAccountName = "storageAccount"
	storageAccountKey  = "storageAccountKey"
	tableNameSuffix    = "tableSuffix"

	timeout = 10
)

type (
	tablestore struct {
		storageAccount         string
		storageAccountKey      string
		client                 storage.Client
		entityTableName        string
		entityVersionTableName string
	}
)

// NewStore creates a new Azure Table Storage based entity store
func NewStore() store.EntityStore {
	return &tablestore{}
}

func (s *tablestore) Init(metadata store.Metadata) error {
	s.storageAccount = metadata.Properties[storageAccountName]
	s.storageAccountKey = metadata.Properties[storageAccountKey]
	suffix := metadata.Properties[tableNameSuffix]
	s.entityTableName = fmt.Sprintf("%s%s", entityTableName, suffix)
	s.entityVersionTableName = fmt.Sprintf("%s%s", entityVersionTableName, suffix)

	client, err := storage.NewBasicClient(s.storageAccount, s.storageAccountKey)
	if err != nil {
		return err
	}

	s.client = client

	tbls := client.GetTableService()

	etbl := tbls.GetTableReference(s.entityTableName)

	if err := etbl.Get(timeout, storage.FullMetadata); err != nil {
		if err := etbl.Create(timeout, storage.EmptyPayload, nil); err != nil {
			return err
		}
	}

	vtbl := tbls.GetTableReference(s.entityVersionTableName)

	if err := vtbl.Get(timeout, storage.FullMetadata); err != nil {
		if err := vtbl.Create(timeout, storage.EmptyPayload, nil); err != nil {
			return err
		}
	}

	return nil
}

func (s *tablestore) Add(entity *store.Entity) (*store.Entity, error) {
	entity.SetOptimisticLockVersion(1)

	vtbl := s.getVersionTable()
	vety := s.makeVersionTableEntity(vtbl, entity)

	etbl := s.getEntityTable()
	eety, err := s.makeEntityTableEntity(etbl, entity)
	if err != nil {
		return nil, err
	}

	if err := vety.Insert(storage.EmptyPayload, nil); err != nil {
		if statusCode(err) == http.StatusConflict {
			return nil, store.EntityError{
				Text:       fmt.Sprintf("An entity with id %s already exists", entity.EntityUID()),
				ErrorType:  store.EntityAlreadyExists,
				InnerError: err,
			}
		}
		return nil, internalError("insert version entity failed", err)
	}

	if err := eety.Insert(storage.EmptyPayload, nil); err != nil {
		return nil, internalError("insert entity failed", err)
	}

	return entity, nil
}

func (s *tablestore) Append(entity *store.Entity, concurrency store.ConcurrencyControl) (*store.Entity, error) {
	vtbl := s.getVersionTable()

	var version int64
	for {
		vety := vtbl.GetEntityReference(entity.EntityUID(), entity.EntityUID())

		// load version of entity, increment it and try to save it.
		// load full metadata, to check etag in merge
		if err := vety.Get(timeout, storage.FullMetadata, nil); err != nil {
			return nil, notFoundError(entity.EntityUID(), err)
		}

		var err error
		version, err = versionOf(vety)
		if err != nil {
			return nil, err
		}

		// check if we have the current version of the entity or not
		if concurrency == store.Optimistic && entity.OptimisticLockVersion() != version {
			// there is a newer version already stored, as we do OOL (Optimistic Offline Lock)
			// we return an error here
			return nil, store.EntityError{
				Text:      fmt.Sprintf("Entity %s gone stale, newer version already available (OOL)", entity.EntityUID()),
				ErrorType: store.VersionConflict,
			}
		}

		version = store.NextVersion(entity.OptimisticLockVersion(), version)
		vety.Properties["version"] = version

		err = vety.Update(false, nil)
		if err == nil {
			break
		}

		if statusCode(err) != http.StatusPreconditionFailed {
			return nil, internalError("update version entity failed", err)
		}

		// the entity was updated by another writer in between
		if concurrency == store.Optimistic {
			return nil, store.EntityError{
				Text:       fmt.Sprintf("Entity %s gone stale, newer version already available (OOL)", entity.EntityUID()),
				ErrorType:  store.VersionConflict,
				InnerError: err,
			}
		}
	}

	entity.SetOptimisticLockVersion(version)
	etbl := s.getEntityTable()
	eety, err := s.makeEntityTableEntity(etbl, entity)
	if err != nil {
		return nil, err
	}

	if err := eety.Insert(storage.EmptyPayload, nil); err != nil {
		// TODO: the version row is already incremented here, roll it back with an etag checked update
		return nil, internalError("insert entity failed", err)
	}

	return entity, nil
}

func (s *tablestore) Get(uid string) (*store.Entity, error) {
	version, err := s.GetLatestVersionNumber(uid)
	if err != nil {
		return nil, err
	}
	return s.GetByVersion(uid, version)
}

func (s *tablestore) GetLatestVersionNumber(uid string) (int64, error) {
	vtbl := s.getVersionTable()
	vety := vtbl.GetEntityReference(uid, uid)

	if err := vety.Get(timeout, storage.FullMetadata, nil); err != nil {
		return int64(0), notFoundError(uid, err)
	}

	return versionOf(vety)
}

func (s *tablestore) GetByVersion(uid string, version int64) (*store.Entity, error) {
	tbl := s.getEntityTable()
	ety := tbl.GetEntityReference(uid, fmt.Sprintf("%v", version))

	if err := ety.Get(timeout, storage.FullMetadata, nil); err != nil {
		return nil, notFoundError(uid, err)
	}

	version, err := strconv.ParseInt(ety.RowKey, 10, 64)
	if err != nil {
		return nil, internalError("invalid row key of entity", err)
	}

	data, ok := ety.Properties["data"].(string)
	if !ok {
		return nil, internalError("invalid type assertion for property data", nil)
	}

	return store.UnmarshalPersisted([]byte(data), version)
}

func (s *tablestore) makeVersionTableEntity(table *storage.Table, entity *store.Entity) *storage.Entity {
	props := map[string]interface{}{
		"version": entity.OptimisticLockVersion(),
	}

	e := table.GetEntityReference(entity.EntityUID(), entity.EntityUID())
	e.Properties = props
	return e
}

func (s *tablestore) makeEntityTableEntity(table *storage.Table, entity *store.Entity) (*storage.Entity, error) {
	data, err := store.MarshalPersisted(entity)
	if err != nil {
		return nil, err
	}

	props := map[string]interface{}{
		"data": string(data),
	}

	e := table.GetEntityReference(entity.EntityUID(), fmt.Sprintf("%v", entity.OptimisticLockVersion()))
	e.Properties = props
	return e, nil
}

func (s *tablestore) getVersionTable() *storage.Table {
	svc := s.client.GetTableService()
	return svc.GetTableReference(s.entityVersionTableName)
}

func (s *tablestore) getEntityTable() *storage.Table {
	svc := s.client.GetTableService()
	return svc.GetTableReference(s.entityTableName)
}

func versionOf(vety *storage.Entity) (int64, error) {
	version, ok := vety.Properties["version"].(int64)
	if !ok {
		return 0, internalError("invalid type assertion for property version", nil)
	}
	return version, nil
}

func statusCode(err error) int {
	switch e := err.(type) {
	case storage.AzureStorageServiceError:
		return e.StatusCode
	case *storage.AzureStorageServiceError:
		return e.StatusCode
	}
	return 0
}

func notFoundError(uid string, err error) error {
	if statusCode(err) == http.StatusNotFound {
		return store.EntityError{
			Text:       fmt.Sprintf("Entity with ID %s does not exist", uid),
			ErrorType:  store.EntityNotFound,
			InnerError: err,
		}
	}
	return internalError(fmt.Sprintf("loading entity %s failed", uid), err)
}

func internalError(text string, err error) error {
	return store.EntityError{
		Text:       text,
		ErrorType:  store.InternalError,
		InnerError: err,
	}
}
