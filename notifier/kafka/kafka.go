// Package kafka publishes entity notifications to a kafka topic.
package kafka

import (
	"context"
	"errors"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	sdk "github.com/segmentio/kafka-go"

	"github.com/AndreasM009/entitystore-go/notifier"
	"github.com/AndreasM009/entitystore-go/store"
)

const (
	// NotificationIDHeader carries a unique id per emitted message
	NotificationIDHeader = "notification-id"
	// EntityTypeHeader carries the entity type, if present
	EntityTypeHeader = "entity-type"
)

// Params provides configuration for the kafka notifier
type Params struct {
	// Required
	Brokers []string
	Topic   string
}

// Validate ensures required params are set
func (p Params) Validate() error {
	if len(p.Brokers) == 0 {
		return errors.New("kafka brokers are required")
	}
	if p.Topic == "" {
		return errors.New("kafka topic is required")
	}
	return nil
}

// messageWriter is the part of *sdk.Writer used by the notifier
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...sdk.Message) error
	Close() error
}

type kafkaNotifier struct {
	writer messageWriter
}

// NewNotifier creates a notifier writing to the configured topic. Messages are
// keyed by entity uid so all notifications of an entity land in order on one
// partition.
func NewNotifier(params Params) (notifier.Notifier, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return newNotifier(&sdk.Writer{
		Addr:         sdk.TCP(params.Brokers...),
		Topic:        params.Topic,
		RequiredAcks: sdk.RequireAll,
		Balancer:     &sdk.Hash{},
	}), nil
}

func newNotifier(w messageWriter) *kafkaNotifier {
	return &kafkaNotifier{writer: w}
}

func (n *kafkaNotifier) Notify(ctx context.Context, entity *store.Entity) error {
	msg, err := toMessage(entity)
	if err != nil {
		return err
	}
	return n.writer.WriteMessages(ctx, msg)
}

func (n *kafkaNotifier) Close() error {
	return n.writer.Close()
}

func toMessage(entity *store.Entity) (sdk.Message, error) {
	serialized, err := json.Marshal(entity.OutputView())
	if err != nil {
		return sdk.Message{}, store.EntityError{
			Text:       "serializing notification of entity " + entity.EntityUID() + " failed",
			ErrorType:  store.SerializationFailed,
			InnerError: err,
		}
	}

	headers := []sdk.Header{
		{Key: NotificationIDHeader, Value: []byte(uuid.New().String())},
	}
	if entity.EntityType() != "" {
		headers = append(headers, sdk.Header{Key: EntityTypeHeader, Value: []byte(entity.EntityType())})
	}

	return sdk.Message{
		Key:     []byte(entity.EntityUID()),
		Value:   serialized,
		Headers: headers,
	}, nil
}
