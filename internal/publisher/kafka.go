// Package publisher bridges domain events onto the kafka transport using
// watermill. Delivery is at-least-once; order is preserved within one
// PublishAll call because messages go out sequentially on one topic.
package publisher

import (
	"context"
	"encoding/json"

	"github.com/Shopify/sarama"
	"github.com/ThreeDotsLabs/watermill"
	wkafka "github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v4"

	"github.com/streamforge/billing/internal/config"
	"github.com/streamforge/billing/internal/domain/events"
	ierr "github.com/streamforge/billing/internal/errors"
	"github.com/streamforge/billing/internal/kafka"
	"github.com/streamforge/billing/internal/logger"
	"github.com/streamforge/billing/internal/types"
)

type kafkaPublisher struct {
	publisher message.Publisher
	topic     string
	logger    *logger.Logger
}

// NewKafkaPublisher builds the watermill kafka publisher for domain events.
func NewKafkaPublisher(cfg *config.Configuration, log *logger.Logger) (events.Publisher, error) {
	saramaConfig := kafka.GetSaramaConfig(cfg)

	pub, err := wkafka.NewPublisher(
		wkafka.PublisherConfig{
			Brokers:               cfg.Kafka.Brokers,
			Marshaler:             wkafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaConfig,
		},
		watermill.NopLogger{},
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to create kafka publisher").
			Mark(ierr.ErrSystem)
	}

	return &kafkaPublisher{
		publisher: pub,
		topic:     cfg.Kafka.Topic,
		logger:    log,
	}, nil
}

func (p *kafkaPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishAll(ctx, []events.DomainEvent{event})
}

func (p *kafkaPublisher) PublishAll(ctx context.Context, evts []events.DomainEvent) error {
	for _, e := range evts {
		payload, err := json.Marshal(e)
		if err != nil {
			return ierr.WithError(err).
				WithHintf("Failed to marshal event %s", e.EventName()).
				Mark(ierr.ErrSystem)
		}

		msg := message.NewMessage(watermill.NewUUID(), payload)
		msg.Metadata.Set("event_name", e.EventName())
		msg.Metadata.Set("tenant_id", types.GetTenantID(ctx))

		// Transient broker errors are retried with exponential backoff so a
		// leader election does not fail the surrounding transaction.
		operation := func() error {
			return p.publisher.Publish(p.topic, msg)
		}
		if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)); err != nil {
			p.logger.Errorw("failed to publish event",
				"event_name", e.EventName(),
				"error", err)
			return ierr.WithError(err).
				WithHintf("Failed to publish event %s", e.EventName()).
				Mark(ierr.ErrSystem)
		}

		p.logger.Debugw("published event",
			"event_name", e.EventName(),
			"topic", p.topic)
	}
	return nil
}

// NewKafkaSubscriber builds the watermill subscriber the invoice worker
// consumes plan change events from.
func NewKafkaSubscriber(cfg *config.Configuration) (message.Subscriber, error) {
	saramaConfig := kafka.GetSaramaConfig(cfg)

	sub, err := wkafka.NewSubscriber(
		wkafka.SubscriberConfig{
			Brokers:               cfg.Kafka.Brokers,
			Unmarshaler:           wkafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaConfig,
			ConsumerGroup:         cfg.Kafka.ConsumerGroup,
			InitializeTopicDetails: &sarama.TopicDetail{
				NumPartitions:     1,
				ReplicationFactor: 1,
			},
		},
		watermill.NopLogger{},
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to create kafka subscriber").
			Mark(ierr.ErrSystem)
	}
	return sub, nil
}
