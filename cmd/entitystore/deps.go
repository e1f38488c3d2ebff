package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/AndreasM009/entitystore-go/config"
	"github.com/AndreasM009/entitystore-go/notifier"
	"github.com/AndreasM009/entitystore-go/notifier/kafka"
	"github.com/AndreasM009/entitystore-go/notifier/writer"
	"github.com/AndreasM009/entitystore-go/store"
	"github.com/AndreasM009/entitystore-go/store/azure/cosmosdb"
	"github.com/AndreasM009/entitystore-go/store/azure/tablestorage"
	"github.com/AndreasM009/entitystore-go/store/inmemory"
)

// newLogger builds the process logger. Logs go to stderr, stdout is reserved
// for notifications.
func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}

	return zc.Build()
}

func newStore(cfg config.StoreConfig) (store.EntityStore, error) {
	var s store.EntityStore
	switch cfg.Type {
	case config.StoreInMemory:
		s = inmemory.NewStore()
	case config.StoreCosmosDB:
		s = cosmosdb.NewStore()
	case config.StoreTableStorage:
		s = tablestorage.NewStore()
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}

	if err := s.Init(store.Metadata{Properties: cfg.Properties}); err != nil {
		return nil, fmt.Errorf("initializing %s store: %w", cfg.Type, err)
	}
	return s, nil
}

// stdout hides the Closer of os.Stdout from the writer notifier
type stdout struct {
	io.Writer
}

func newNotifier(cfg config.NotifierConfig) (notifier.Notifier, error) {
	switch cfg.Type {
	case config.NotifierStdout:
		return writer.NewNotifier(stdout{os.Stdout}), nil
	case config.NotifierKafka:
		return kafka.NewNotifier(kafka.Params{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		})
	}
	return nil, fmt.Errorf("unknown notifier type %q", cfg.Type)
}
