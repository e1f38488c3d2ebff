package cosmosdb

import (
	"fmt"

	"github.com/a8m/documentdb"
	json "github.com/goccy/go-json"

	"github.com/AndreasM009/entitystore-go/store"
)

type cosmosconnectioninfo struct {
	URL       string `json:"url"`
	MasterKey string `json:"masterKey"`
	Database  string `json:"database"`
	Container string `json:"container"`
}

type cosmosdb struct {
	connectionInfo cosmosconnectioninfo
	database       *documentdb.Database
	container      *documentdb.Collection
	client         *documentdb.DocumentDB
}

type cosmosentity struct {
	documentdb.Document
	ID       string                 `json:"id"`
	EntityID string                 `json:"entityId"`
	Version  int64                  `json:"version"`
	Type     string                 `json:"type"`
	Data     *store.PersistedEntity `json:"data"`
}

type cosmosdbentityversion struct {
	documentdb.Document
	ID       string `json:"id"`
	EntityID string `json:"entityId"`
	Version  int64  `json:"version"`
	Type     string `json:"type"`
}

// NewStore create a new comsosdb store
func NewStore() store.EntityStore {
	return &cosmosdb{}
}

func (c *cosmosdb) Init(metadata store.Metadata) error {
	s, err := json.Marshal(metadata.Properties)
	if err != nil {
		return err
	}

	var info cosmosconnectioninfo
	err = json.Unmarshal(s, &info)
	if err != nil {
		return err
	}

	if info.URL == "" || info.MasterKey == "" {
		return store.EntityError{
			Text:      "CosmosDB entitystore: url and masterKey are required",
			ErrorType: store.InternalError,
		}
	}
	c.connectionInfo = info

	client := documentdb.New(info.URL, &documentdb.Config{
		MasterKey: &documentdb.Key{
			Key: info.MasterKey,
		},
	})

	dbs, err := client.QueryDatabases(&documentdb.Query{
		Query: "SELECT * FROM ROOT r WHERE r.id=@id",
		Parameters: []documentdb.Parameter{
			{Name: "@id", Value: info.Database},
		},
	})

	if err != nil {
		return err
	} else if len(dbs) == 0 {
		return fmt.Errorf("Database %s for CosmosDB entitystore does not exit or was not found", info.Database)
	}

	c.database = &dbs[0]
	cntrs, err := client.QueryCollections(c.database.Self, &documentdb.Query{
		Query: "SELECT * FROM ROOT r WHERE r.id = @id",
		Parameters: []documentdb.Parameter{
			{Name: "@id", Value: info.Container},
		},
	})

	if err != nil {
		return err
	} else if len(cntrs) == 0 {
		return fmt.Errorf("Container %s in Database %s for CosmosDB entitystore not found", info.Container, info.Database)
	}

	c.container = &cntrs[0]
	c.client = client
	return nil
}

func (c *cosmosdb) Add(entity *store.Entity) (*store.Entity, error) {
	uid := entity.EntityUID()

	cosmosVersion := cosmosdbentityversion{
		ID:       uid,
		EntityID: uid,
		Version:  1,
		Type:     "version",
	}

	rqoptions := []documentdb.CallOption{
		documentdb.PartitionKey(uid),
	}

	_, err := c.client.CreateDocument(c.container.Self, cosmosVersion, rqoptions...)

	if err != nil {
		if isConflict(err) {
			return nil, store.EntityError{
				Text:       fmt.Sprintf("An entity with id %s already exists", uid),
				ErrorType:  store.EntityAlreadyExists,
				InnerError: err,
			}
		}
		return nil, store.EntityError{
			Text:       "insert version entity failed",
			ErrorType:  store.InternalError,
			InnerError: err,
		}
	}

	entity.SetOptimisticLockVersion(1)
	_, err = c.client.CreateDocument(c.container.Self, makeCosmosEntity(entity), rqoptions...)
	if err != nil {
		return nil, store.EntityError{
			Text:       "insert entity failed",
			ErrorType:  store.InternalError,
			InnerError: err,
		}
	}

	return entity, nil
}

func (c *cosmosdb) Append(entity *store.Entity, concurrency store.ConcurrencyControl) (*store.Entity, error) {
	version, err := c.getNextVersionNumber(entity, concurrency)

	if err != nil {
		return nil, err
	}

	entity.SetOptimisticLockVersion(version)

	options := []documentdb.CallOption{
		documentdb.PartitionKey(entity.EntityUID()),
	}

	_, err = c.client.CreateDocument(c.container.Self, makeCosmosEntity(entity), options...)

	if err != nil {
		return nil, store.EntityError{
			Text:       "failed to append new entity version",
			ErrorType:  store.InternalError,
			InnerError: err,
		}
	}

	return entity, nil
}

func (c *cosmosdb) Get(uid string) (*store.Entity, error) {
	version, err := c.GetLatestVersionNumber(uid)
	if err != nil {
		return nil, err
	}
	return c.GetByVersion(uid, version)
}

func (c *cosmosdb) GetLatestVersionNumber(uid string) (int64, error) {
	options := []documentdb.CallOption{
		documentdb.PartitionKey(uid),
	}

	cosmosVersions := []cosmosdbentityversion{}
	_, err := c.client.QueryDocuments(c.container.Self, &documentdb.Query{
		Query: "SELECT r.version FROM ROOT r WHERE r.id=@id and r.type=@type",
		Parameters: []documentdb.Parameter{
			{Name: "@id", Value: uid},
			{Name: "@type", Value: "version"},
		},
	}, &cosmosVersions, options...)

	if err != nil || len(cosmosVersions) == 0 {
		return int64(0), store.EntityError{
			Text:       "failed to load version of entity",
			ErrorType:  store.EntityNotFound,
			InnerError: err,
		}
	}

	return cosmosVersions[0].Version, nil
}

func (c *cosmosdb) GetByVersion(uid string, version int64) (*store.Entity, error) {
	options := []documentdb.CallOption{
		documentdb.PartitionKey(uid),
	}

	cosmosEntities := []cosmosentity{}
	_, err := c.client.QueryDocuments(c.container.Self, &documentdb.Query{
		Query: "SELECT * FROM ROOT r WHERE r.id=@id and r.type=@type",
		Parameters: []documentdb.Parameter{
			{Name: "@id", Value: makeEntityVersion(uid, version)},
			{Name: "@type", Value: "entity"},
		},
	}, &cosmosEntities, options...)

	if err != nil || len(cosmosEntities) == 0 || cosmosEntities[0].Data == nil {
		return nil, store.EntityError{
			Text:       "failed to load entity",
			ErrorType:  store.EntityNotFound,
			InnerError: err,
		}
	}

	return store.FromPersistView(*cosmosEntities[0].Data, cosmosEntities[0].Version), nil
}

func (c *cosmosdb) getNextVersionNumber(entity *store.Entity, concurrency store.ConcurrencyControl) (int64, error) {
	uid := entity.EntityUID()
	rqoptions := []documentdb.CallOption{
		documentdb.PartitionKey(uid),
	}

	for {
		cosmosVersions := []cosmosdbentityversion{}

		_, err := c.client.QueryDocuments(c.container.Self, &documentdb.Query{
			Query: "SELECT * FROM ROOT r WHERE r.id=@id and r.type=@type",
			Parameters: []documentdb.Parameter{
				{Name: "@id", Value: uid},
				{Name: "@type", Value: "version"},
			},
		}, &cosmosVersions, rqoptions...)

		if err != nil || len(cosmosVersions) == 0 {
			return 0, store.EntityError{
				Text:       fmt.Sprintf("CosmosDB entitystore: Version for %s not found", uid),
				ErrorType:  store.EntityNotFound,
				InnerError: err,
			}
		}

		cosmosVersion := &cosmosVersions[0]

		// check current version
		if concurrency == store.Optimistic && entity.OptimisticLockVersion() != cosmosVersion.Version {
			return 0, store.EntityError{
				Text:      "entity has gone stale, a newer version already exists",
				ErrorType: store.VersionConflict,
			}
		}

		cosmosVersion.Version = store.NextVersion(entity.OptimisticLockVersion(), cosmosVersion.Version)

		options := append(rqoptions, documentdb.IfMatch(cosmosVersion.Etag))

		_, err = c.client.UpsertDocument(c.container.Self, cosmosVersion, options...)

		if err == nil {
			return cosmosVersion.Version, nil
		}

		if !isPreconditionFailed(err) {
			return 0, store.EntityError{
				Text:       "failed to update version of entity",
				ErrorType:  store.InternalError,
				InnerError: err,
			}
		}

		if concurrency == store.Optimistic {
			return 0, store.EntityError{
				Text:      "entity has gone stale, a newer version already exists",
				ErrorType: store.VersionConflict,
			}
		}
		// last writer wins, reload the version and try again
	}
}

func makeCosmosEntity(entity *store.Entity) cosmosentity {
	persisted := entity.PersistView()
	return cosmosentity{
		ID:       makeEntityVersion(entity.EntityUID(), entity.OptimisticLockVersion()),
		EntityID: entity.EntityUID(),
		Version:  entity.OptimisticLockVersion(),
		Data:     &persisted,
		Type:     "entity",
	}
}

func makeEntityVersion(id string, version int64) string {
	return fmt.Sprintf("%s--%d", id, version)
}

func isPreconditionFailed(err error) bool {
	rqerror, ok := err.(documentdb.RequestError)
	return ok && rqerror.Code == "412"
}

func isConflict(err error) bool {
	rqerror, ok := err.(documentdb.RequestError)
	return ok && rqerror.Code == "409"
}
