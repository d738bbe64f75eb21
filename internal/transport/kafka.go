package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig holds Kafka-specific configuration options.
type KafkaConfig struct {
	Brokers       []string
	ClientID      string
	ConsumerGroup string
	RequireAcks   int
	Compression   bool
}

// Kafka implements Transport with a shared producer and one consumer-group
// reader per subscribed topic.
type Kafka struct {
	cfg       KafkaConfig
	writer    *kafka.Writer
	transport *kafka.Transport
	logger    *log.Logger

	mu      sync.Mutex
	readers map[string]*kafkaSubscription
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc
}

type kafkaSubscription struct {
	reader *kafka.Reader
	cancel context.CancelFunc
	done   chan struct{}
}

// NewKafka creates the producer immediately; readers are created per topic on Subscribe.
func NewKafka(cfg KafkaConfig, logger *log.Logger) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("transport: at least one Kafka broker address is required")
	}
	if logger == nil {
		logger = log.Default()
	}
	if cfg.ConsumerGroup == "" {
		cfg.ConsumerGroup = cfg.ClientID
	}
	if cfg.ConsumerGroup == "" {
		cfg.ConsumerGroup = "kafka-emitter"
	}

	tr := &kafka.Transport{ClientID: cfg.ClientID}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequireAcks),
		AllowAutoTopicCreation: true,
		Transport:              tr,
		ErrorLogger:            logger,
	}
	if cfg.Compression {
		writer.Compression = kafka.Gzip
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Kafka{
		cfg:       cfg,
		writer:    writer,
		transport: tr,
		logger:    logger,
		readers:   make(map[string]*kafkaSubscription),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Produce writes one message to topic and waits for the configured acks.
func (k *Kafka) Produce(ctx context.Context, topic, payload string) error {
	k.mu.Lock()
	closed := k.closed
	k.mu.Unlock()
	if closed {
		return errTransportClosed
	}
	msg := kafka.Message{Topic: topic, Value: []byte(payload)}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("transport: write to kafka %s: %w", topic, err)
	}
	return nil
}

// Subscribe starts a consumer-group reader for topic.
func (k *Kafka) Subscribe(ctx context.Context, topic string, deliver DeliverFunc) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return errTransportClosed
	}
	if _, ok := k.readers[topic]; ok {
		return nil
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.cfg.Brokers,
		Topic:    topic,
		GroupID:  k.cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  500 * time.Millisecond,
		Dialer: &kafka.Dialer{
			ClientID:  k.cfg.ClientID,
			Timeout:   10 * time.Second,
			DualStack: true,
		},
		ErrorLogger: k.logger,
	})
	subCtx, cancel := context.WithCancel(k.ctx)
	sub := &kafkaSubscription{reader: reader, cancel: cancel, done: make(chan struct{})}
	k.readers[topic] = sub
	go k.consumeLoop(subCtx, topic, sub, deliver)
	return nil
}

func (k *Kafka) consumeLoop(ctx context.Context, topic string, sub *kafkaSubscription, deliver DeliverFunc) {
	defer close(sub.done)
	for {
		msg, err := sub.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			k.logger.Printf("transport kafka consumer %s error: %v", topic, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		deliver(topic, string(msg.Value))
	}
}

// Unsubscribe stops and closes the reader for topic.
func (k *Kafka) Unsubscribe(ctx context.Context, topic string) error {
	k.mu.Lock()
	sub, ok := k.readers[topic]
	if !ok {
		k.mu.Unlock()
		return nil
	}
	delete(k.readers, topic)
	k.mu.Unlock()
	return sub.stop()
}

func (s *kafkaSubscription) stop() error {
	s.cancel()
	<-s.done
	return s.reader.Close()
}

// Close shuts down all readers and the producer.
func (k *Kafka) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	readers := k.readers
	k.readers = make(map[string]*kafkaSubscription)
	k.mu.Unlock()

	k.cancel()
	var errs []error
	for _, sub := range readers {
		if err := sub.stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := k.writer.Close(); err != nil {
		errs = append(errs, err)
	}
	k.transport.CloseIdleConnections()
	return errors.Join(errs...)
}

var _ Transport = (*Kafka)(nil)
