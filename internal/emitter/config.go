package emitter

import (
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-kafka-emitter/internal/codec"
	"go-kafka-emitter/internal/transport"
)

const (
	// DefaultRequireAcks is the producer acknowledgement count when Config leaves it zero.
	DefaultRequireAcks = 1
	// DefaultFlushInterval is the background flusher period when Config leaves it zero.
	DefaultFlushInterval = 100 * time.Millisecond

	closeFlushTimeout = 5 * time.Second
)

// Config is fixed once the Emitter is built.
type Config struct {
	// ClientID identifies this instance to the broker. Defaults to a random
	// "instance-xxxxxxx" tag.
	ClientID string
	// ConnectionString selects the transport; empty means an in-process mock.
	ConnectionString string
	// RequireAcks is passed to the producer. Zero means the default of 1.
	RequireAcks int
	// Compression is always enabled.
	Compression   bool
	ConsumerGroup string
	Codec         string

	// FlushInterval is the period of the background flusher.
	FlushInterval time.Duration
	// ManualFlush disables the background flusher and the flush on Close.
	ManualFlush bool
	// MaxBuffered caps each receive and send buffer. Zero is unbounded.
	MaxBuffered int

	// OnListenerError observes listener panics and failed async results.
	OnListenerError func(topic string, err error)
}

// NewClientID returns a random instance tag.
func NewClientID() string {
	return "instance-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
}

func (c Config) withDefaults() Config {
	if c.ClientID == "" {
		c.ClientID = NewClientID()
	}
	if c.RequireAcks == 0 {
		c.RequireAcks = DefaultRequireAcks
	}
	c.Compression = true
	if c.ConsumerGroup == "" {
		c.ConsumerGroup = c.ClientID
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	return c
}

// TransportFactory builds the transport on first use.
type TransportFactory func(cfg Config, logger *log.Logger) (transport.Transport, error)

// DefaultTransportFactory picks the transport from cfg.ConnectionString.
func DefaultTransportFactory(cfg Config, logger *log.Logger) (transport.Transport, error) {
	return transport.Connect(cfg.ConnectionString, transport.Options{
		ClientID:      cfg.ClientID,
		RequireAcks:   cfg.RequireAcks,
		Compression:   cfg.Compression,
		ConsumerGroup: cfg.ConsumerGroup,
	}, logger)
}

// Option customises an Emitter beyond its Config.
type Option func(*Emitter)

// WithTransportFactory replaces the transport constructor.
func WithTransportFactory(f TransportFactory) Option {
	return func(e *Emitter) { e.factory = f }
}

// WithCodec overrides the codec named in Config.
func WithCodec(c codec.Codec) Option {
	return func(e *Emitter) { e.codec = c }
}
