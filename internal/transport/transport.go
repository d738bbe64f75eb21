// Package transport holds the broker-facing side of the emitter: a producer
// that accepts encoded payloads and a consumer that hands raw payloads back
// per topic.
package transport

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// DeliverFunc receives one raw payload for a topic, in arrival order.
type DeliverFunc func(topic, payload string)

// Transport is the minimal broker client used by the emitter.
type Transport interface {
	// Produce hands one payload to the broker for topic. Retries belong to the
	// implementation.
	Produce(ctx context.Context, topic, payload string) error
	// Subscribe starts delivering payloads for topic until Unsubscribe or Close.
	// Subscribing to an already subscribed topic is a no-op.
	Subscribe(ctx context.Context, topic string, deliver DeliverFunc) error
	Unsubscribe(ctx context.Context, topic string) error
	Close() error
}

// Options carries the producer/consumer settings shared by all transports.
type Options struct {
	ClientID      string
	RequireAcks   int
	Compression   bool
	ConsumerGroup string
}

// Connect builds the transport addressed by connectionString. An empty string
// yields a Mock; "redis://" and "rediss://" URLs yield Redis; anything else is
// read as a comma-separated Kafka broker list with an optional "kafka://" prefix.
func Connect(connectionString string, opts Options, logger *log.Logger) (Transport, error) {
	if logger == nil {
		logger = log.Default()
	}
	switch {
	case connectionString == "":
		return NewMock(), nil
	case strings.HasPrefix(connectionString, "redis://"), strings.HasPrefix(connectionString, "rediss://"):
		return NewRedisFromURL(connectionString, logger)
	default:
		brokers := splitBrokers(strings.TrimPrefix(connectionString, "kafka://"))
		if len(brokers) == 0 {
			return nil, fmt.Errorf("transport: no brokers in %q", connectionString)
		}
		return NewKafka(KafkaConfig{
			Brokers:       brokers,
			ClientID:      opts.ClientID,
			ConsumerGroup: opts.ConsumerGroup,
			RequireAcks:   opts.RequireAcks,
			Compression:   opts.Compression,
		}, logger)
	}
}

func splitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
