package accounts

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/segmentio/kafka-go"
)

// KafkaPublisher emits lifecycle events to Kafka topics. Messages are
// keyed by user id so per-user ordering survives partitioning.
type KafkaPublisher struct {
	registered   *kafka.Writer
	loggedIn     *kafka.Writer
	writeTimeout time.Duration
	logger       Logger
}

var _ EventPublisher = (*KafkaPublisher)(nil)

// KafkaPublisherOption customizes publisher construction
type KafkaPublisherOption func(*KafkaPublisher)

// WithKafkaLogger overrides the publisher logger
func WithKafkaLogger(logger Logger) KafkaPublisherOption {
	return func(p *KafkaPublisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithKafkaWriteTimeout bounds every publish call
func WithKafkaWriteTimeout(timeout time.Duration) KafkaPublisherOption {
	return func(p *KafkaPublisher) {
		if timeout > 0 {
			p.writeTimeout = timeout
		}
	}
}

func NewKafkaPublisher(brokers []string, opts ...KafkaPublisherOption) *KafkaPublisher {
	p := &KafkaPublisher{
		registered: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  TopicUserRegistered,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		loggedIn: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  TopicUserLoggedIn,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		writeTimeout: 5 * time.Second,
		logger:       defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *KafkaPublisher) PublishUserRegistered(ctx context.Context, event UserRegisteredEvent) error {
	return p.publish(ctx, p.registered, event.UserID, event)
}

func (p *KafkaPublisher) PublishUserLoggedIn(ctx context.Context, event UserLoggedInEvent) error {
	return p.publish(ctx, p.loggedIn, event.UserID, event)
}

func (p *KafkaPublisher) publish(ctx context.Context, writer *kafka.Writer, userID int64, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode event")
	}

	ctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	err = writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(userID, 10)),
		Value: payload,
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to publish event").
			WithMetadata(map[string]any{"topic": writer.Topic})
	}

	return nil
}

// Close flushes and closes both topic writers
func (p *KafkaPublisher) Close() error {
	if err := p.registered.Close(); err != nil {
		return err
	}
	return p.loggedIn.Close()
}
