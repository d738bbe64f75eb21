package transport

import (
	"context"
	"sort"
	"sync"
)

// Mock is the in-process transport used when no connection string is
// configured. It keeps produced payloads and lets callers inject inbound ones.
type Mock struct {
	mu          sync.Mutex
	produced    map[string][]string
	subscribers map[string]DeliverFunc
	produceErr  error
	closed      bool
}

// NewMock returns an empty Mock transport.
func NewMock() *Mock {
	return &Mock{
		produced:    make(map[string][]string),
		subscribers: make(map[string]DeliverFunc),
	}
}

// FailProduce makes every following Produce return err. Pass nil to recover.
func (m *Mock) FailProduce(err error) {
	m.mu.Lock()
	m.produceErr = err
	m.mu.Unlock()
}

// Produce records payload for topic, or fails as set by FailProduce.
func (m *Mock) Produce(ctx context.Context, topic, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errTransportClosed
	}
	if m.produceErr != nil {
		return m.produceErr
	}
	m.produced[topic] = append(m.produced[topic], payload)
	return nil
}

// Produced returns a copy of the payloads accepted for topic.
func (m *Mock) Produced(topic string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.produced[topic]...)
}

// Subscribe registers deliver for topic; the first subscriber is kept.
func (m *Mock) Subscribe(ctx context.Context, topic string, deliver DeliverFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errTransportClosed
	}
	if _, ok := m.subscribers[topic]; !ok {
		m.subscribers[topic] = deliver
	}
	return nil
}

// Unsubscribe drops the subscriber of topic.
func (m *Mock) Unsubscribe(ctx context.Context, topic string) error {
	m.mu.Lock()
	delete(m.subscribers, topic)
	m.mu.Unlock()
	return nil
}

// Subscribed lists the topics with an active subscription, sorted.
func (m *Mock) Subscribed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	topics := make([]string, 0, len(m.subscribers))
	for t := range m.subscribers {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// Inject delivers payload to the subscriber of topic, reporting whether one existed.
func (m *Mock) Inject(topic, payload string) bool {
	m.mu.Lock()
	deliver, ok := m.subscribers[topic]
	m.mu.Unlock()
	if !ok {
		return false
	}
	deliver(topic, payload)
	return true
}

// Close drops every subscriber and rejects further use.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed = true
	m.subscribers = make(map[string]DeliverFunc)
	m.mu.Unlock()
	return nil
}

var _ Transport = (*Mock)(nil)
