package emitter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// Emit encodes value now and queues the payload for topic. Later changes to
// value do not affect what is sent. The first Emit ever opens the producer
// side of the transport.
func (e *Emitter) Emit(topic string, value interface{}) error {
	payload, err := e.codec.Encode(value)
	if err != nil {
		return &EncodeError{Topic: topic, Err: err}
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	first := !e.producerInit
	e.producerInit = true
	buf, ok := e.sendBuf[topic]
	if !ok {
		buf = &queue[string]{}
		e.sendBuf[topic] = buf
	}
	if e.cfg.MaxBuffered > 0 && buf.len() >= e.cfg.MaxBuffered {
		e.mu.Unlock()
		return ErrSendBufferFull
	}
	buf.push(payload)
	e.mu.Unlock()

	if first {
		e.initProducer()
	}
	return nil
}

// Flush hands queued payloads to the transport, topic by topic in sorted
// order and FIFO within a topic. A payload leaves its buffer only once the
// transport accepted it; the first failure on a topic stops that topic.
func (e *Emitter) Flush(ctx context.Context) error {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	e.mu.Lock()
	topics := make([]string, 0, len(e.sendBuf))
	for topic, q := range e.sendBuf {
		if q.len() > 0 {
			topics = append(topics, topic)
		}
	}
	e.mu.Unlock()
	if len(topics) == 0 {
		return nil
	}
	sort.Strings(topics)

	tr, err := e.connect()
	if err != nil {
		return err
	}
	var errs []error
	for _, topic := range topics {
		for {
			e.mu.Lock()
			payload, ok := e.sendBuf[topic].peek()
			e.mu.Unlock()
			if !ok {
				break
			}
			if err := tr.Produce(ctx, topic, payload); err != nil {
				errs = append(errs, fmt.Errorf("emitter: flush %s: %w", topic, err))
				break
			}
			e.mu.Lock()
			e.sendBuf[topic].pop()
			e.mu.Unlock()
		}
		if ctx.Err() != nil {
			break
		}
	}
	return errors.Join(errs...)
}

func (e *Emitter) flushLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			if err := e.Flush(e.ctx); err != nil && e.ctx.Err() == nil {
				e.logger.Println("emitter: background flush", err)
			}
		}
	}
}

// sendBuffer returns a copy of topic's queued payloads.
func (e *Emitter) sendBuffer(topic string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, ok := e.sendBuf[topic]
	if !ok {
		return nil
	}
	return q.snapshot()
}
