package tablestorage

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AndreasM009/entitystore-go/store"
)

var (
	storageAccountFlag    *string
	storageAccountKeyFlag *string
	testMetadata          store.Metadata
	emptyTestMetadata     store.Metadata
)

func init() {
	storageAccountFlag = flag.String("storageaccount", "", "name of storage account to use")
	storageAccountKeyFlag = flag.String("storageaccountkey", "", "key of storage account to use")
	emptyTestMetadata.Properties = map[string]string{}
}

func initMetadata(t *testing.T, suffix string) {
	if *storageAccountFlag == "" {
		t.Skip("no storage account configured, pass -storageaccount and -storageaccountkey")
	}

	testMetadata.Properties = map[string]string{
		storageAccountName: *storageAccountFlag,
		storageAccountKey:  *storageAccountKeyFlag,
		tableNameSuffix:    suffix,
	}
}

func destroyTestData(t *testing.T, s *tablestore) {
	tsvc := s.client.GetTableService()
	etbl := tsvc.GetTableReference(s.entityTableName)
	err := etbl.Delete(30, nil)
	assert.Nil(t, err)

	vtbl := tsvc.GetTableReference(s.entityVersionTableName)
	err = vtbl.Delete(30, nil)
	assert.Nil(t, err)
}

func newEntity(uid, serialized string) *store.Entity {
	ety := store.NewEntity(uid)
	ety.SetEntityType("Order")
	ety.SetEventKey("evt-" + serialized)
	ety.SetRevisionTypeName("int64")
	ety.SetRevisionSerialized(serialized)
	return ety
}

func TestInitEmptyMetadata(t *testing.T) {
	// test empty credentials
	s := NewStore()
	err := s.Init(emptyTestMetadata)
	assert.NotNil(t, err)
}

func TestInit(t *testing.T) {
	initMetadata(t, "t1")
	t.Logf("name:%s", testMetadata.Properties[storageAccountName])

	// test init with connectionstrings
	s := NewStore()
	err := s.Init(testMetadata)
	assert.Nil(t, err)
	destroyTestData(t, s.(*tablestore))
}

func TestAddEntity(t *testing.T) {
	initMetadata(t, "t2")
	s := NewStore()
	err := s.Init(testMetadata)
	assert.Nil(t, err)

	defer destroyTestData(t, s.(*tablestore))

	ety2, err := s.Add(newEntity("1234", "1"))

	assert.Nil(t, err)
	assert.NotNil(t, ety2)
	assert.Equal(t, int64(1), ety2.OptimisticLockVersion())

	e, err := s.Add(ety2)
	assert.True(t, store.IsErrorType(err, store.EntityAlreadyExists))
	assert.Nil(t, e)
}

func TestAppend(t *testing.T) {
	initMetadata(t, "t3")
	s := NewStore()
	err := s.Init(testMetadata)
	assert.Nil(t, err)

	defer destroyTestData(t, s.(*tablestore))

	ety2, err := s.Add(newEntity("1234", "1"))

	assert.Nil(t, err)
	assert.NotNil(t, ety2)
	assert.Equal(t, int64(1), ety2.OptimisticLockVersion())

	ety2.SetRevisionSerialized("2")

	ety3, err := s.Append(ety2, store.Optimistic)
	assert.Nil(t, err)
	assert.NotNil(t, ety3)
	assert.Equal(t, int64(2), ety3.OptimisticLockVersion())
}

func TestAppendOldVersion(t *testing.T) {
	initMetadata(t, "t4")
	s := NewStore()
	err := s.Init(testMetadata)
	assert.Nil(t, err)

	defer destroyTestData(t, s.(*tablestore))

	ety, err := s.Add(newEntity("1234", "1"))

	assert.Nil(t, err)
	assert.NotNil(t, ety)
	assert.Equal(t, int64(1), ety.OptimisticLockVersion())

	ety.SetRevisionSerialized("2")

	ety, err = s.Append(ety, store.Optimistic)
	assert.Nil(t, err)
	assert.NotNil(t, ety)
	assert.Equal(t, int64(2), ety.OptimisticLockVersion())

	etyOld := newEntity("1234", "3")

	ety, err = s.Append(etyOld, store.Optimistic)
	assert.NotNil(t, err)
	assert.Nil(t, ety)

	enterr, ok := err.(store.EntityError)
	assert.True(t, ok)
	assert.Equal(t, store.VersionConflict, enterr.ErrorType)
}

func TestGetLatestVersionNumber(t *testing.T) {
	initMetadata(t, "t5")
	s := NewStore()
	err := s.Init(testMetadata)
	assert.Nil(t, err)

	defer destroyTestData(t, s.(*tablestore))

	ety, err := s.Add(newEntity("1234", "1"))

	assert.Nil(t, err)
	assert.NotNil(t, ety)

	ety.SetRevisionSerialized("2")

	ety, err = s.Append(ety, store.Optimistic)
	assert.Nil(t, err)
	assert.NotNil(t, ety)
	assert.Equal(t, int64(2), ety.OptimisticLockVersion())

	version, err := s.GetLatestVersionNumber("1234")
	assert.Nil(t, err)
	assert.Equal(t, int64(2), version)
}

func TestGetLatestVersionNumberMissingEntity(t *testing.T) {
	initMetadata(t, "t6")
	s := NewStore()
	err := s.Init(testMetadata)
	assert.Nil(t, err)

	defer destroyTestData(t, s.(*tablestore))

	version, err := s.GetLatestVersionNumber("1234")
	assert.True(t, store.IsErrorType(err, store.EntityNotFound))
	assert.Equal(t, int64(0), version)
}

func TestGetByVersion(t *testing.T) {
	initMetadata(t, "t7")
	s := NewStore()
	err := s.Init(testMetadata)
	assert.Nil(t, err)

	defer destroyTestData(t, s.(*tablestore))

	ety, err := s.Add(newEntity("1234", "1"))

	assert.Nil(t, err)
	assert.NotNil(t, ety)

	res, err := s.GetByVersion("1234", 1)
	assert.Nil(t, err)
	assert.NotNil(t, res)
	assert.Equal(t, "1", res.RevisionSerialized())
	assert.Equal(t, "evt-1", res.EventKey())

	ety.SetRevisionSerialized("2")

	ety, err = s.Append(ety, store.Optimistic)
	assert.Nil(t, err)
	assert.NotNil(t, ety)

	res, err = s.Get("1234")
	assert.Nil(t, err)
	assert.NotNil(t, res)
	assert.Equal(t, "2", res.RevisionSerialized())
	assert.Equal(t, int64(2), res.OptimisticLockVersion())
}

func TestConcurrencyNone(t *testing.T) {
	initMetadata(t, "t9")
	s := NewStore()
	err := s.Init(testMetadata)
	assert.Nil(t, err)

	defer destroyTestData(t, s.(*tablestore))

	_, err = s.Add(newEntity("1234", "1"))
	assert.Nil(t, err)

	ety := newEntity("1234", "2")

	ety, err = s.Append(ety, store.None)
	assert.Nil(t, err)
	assert.Equal(t, int64(2), ety.OptimisticLockVersion())

	ety.SetRevisionSerialized("3")
	ety.SetOptimisticLockVersion(0)

	ety, err = s.Append(ety, store.None)
	assert.Nil(t, err)
	assert.Equal(t, int64(3), ety.OptimisticLockVersion())
}
