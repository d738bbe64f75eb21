// Package emitter exposes a broker connection through an event-emitter API
// and dispatches inbound messages per topic in order, pausing a topic while
// its listeners' asynchronous work is outstanding.
package emitter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"go-kafka-emitter/internal/codec"
	"go-kafka-emitter/internal/core"
	"go-kafka-emitter/internal/fsm"
	"go-kafka-emitter/internal/transport"
)

// Emitter owns the listener registry, both buffer sets, the pause set and
// one state machine per listened topic.
// All methods are safe for concurrent use; listeners always run on the
// Emitter's dispatch goroutine.
type Emitter struct {
	cfg     Config
	codec   codec.Codec
	factory TransportFactory
	logger  *log.Logger

	mu           sync.Mutex
	listeners    map[string][]*Listener
	receiveBuf   map[string]*queue[interface{}]
	sendBuf      map[string]*queue[string]
	states       map[string]*fsm.Machine[core.TopicState, topicEvent]
	waves        map[string]uint64
	manual       map[string]bool
	waveSeq      uint64
	consumerInit bool
	producerInit bool
	closed       bool

	connMu    sync.Mutex
	transport transport.Transport

	subMu      sync.Mutex
	subscribed map[string]bool

	flushMu sync.Mutex

	loop   *loop
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds an Emitter. Nothing touches the transport until the first Emit
// or the first On.
func New(cfg Config, logger *log.Logger, opts ...Option) (*Emitter, error) {
	if logger == nil {
		logger = log.Default()
	}
	cfg = cfg.withDefaults()
	e := &Emitter{
		cfg:        cfg,
		factory:    DefaultTransportFactory,
		logger:     logger,
		listeners:  make(map[string][]*Listener),
		receiveBuf: make(map[string]*queue[interface{}]),
		sendBuf:    make(map[string]*queue[string]),
		states:     make(map[string]*fsm.Machine[core.TopicState, topicEvent]),
		waves:      make(map[string]uint64),
		manual:     make(map[string]bool),
		subscribed: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.codec == nil {
		c, err := codec.ByName(cfg.Codec)
		if err != nil {
			return nil, err
		}
		e.codec = c
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.loop = newLoop()
	if !cfg.ManualFlush {
		e.wg.Add(1)
		go e.flushLoop()
	}
	return e, nil
}

// Config returns the effective configuration.
func (e *Emitter) Config() Config { return e.cfg }

// connect returns the memoized transport, creating it on first use.
func (e *Emitter) connect() (transport.Transport, error) {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	if e.transport != nil {
		return e.transport, nil
	}
	if e.ctx.Err() != nil {
		return nil, ErrClosed
	}
	tr, err := e.factory(e.cfg, e.logger)
	if err != nil {
		return nil, fmt.Errorf("emitter: connect: %w", err)
	}
	e.transport = tr
	return tr, nil
}

func (e *Emitter) initConsumer() {
	if _, err := e.connect(); err != nil {
		e.logger.Println("emitter: init consumer", err)
	}
}

func (e *Emitter) initProducer() {
	if _, err := e.connect(); err != nil {
		e.logger.Println("emitter: init producer", err)
	}
}

// syncSubscription brings the transport subscription for topic in line with
// whether the topic has listeners.
func (e *Emitter) syncSubscription(topic string) {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	e.mu.Lock()
	want := len(e.listeners[topic]) > 0 && !e.closed
	e.mu.Unlock()
	if want == e.subscribed[topic] {
		return
	}
	tr, err := e.connect()
	if err != nil {
		e.logger.Println("emitter: subscription", topic, err)
		return
	}
	if want {
		if err := tr.Subscribe(e.ctx, topic, e.deliver); err != nil {
			e.logger.Println("emitter: subscribe", topic, err)
			return
		}
		e.subscribed[topic] = true
		return
	}
	delete(e.subscribed, topic)
	if err := tr.Unsubscribe(e.ctx, topic); err != nil {
		e.logger.Println("emitter: unsubscribe", topic, err)
	}
}

func (e *Emitter) deliver(topic, payload string) {
	e.receive(topic, payload)
}

// Close flushes what it can (unless ManualFlush), stops dispatching and
// closes the transport. It must not be called from a listener.
func (e *Emitter) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	pending := 0
	for _, q := range e.sendBuf {
		pending += q.len()
	}
	e.mu.Unlock()

	var errs []error
	if !e.cfg.ManualFlush && pending > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), closeFlushTimeout)
		if err := e.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
		cancel()
	}
	e.cancel()
	e.loop.stop()
	e.wg.Wait()

	e.connMu.Lock()
	tr := e.transport
	e.connMu.Unlock()
	if tr != nil {
		if err := tr.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
