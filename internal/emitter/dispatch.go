package emitter

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// receive decodes payload and queues it for topic. It reports false when the
// payload is malformed, nobody listens on topic, or the buffer is full.
func (e *Emitter) receive(topic, payload string) bool {
	msg, err := e.codec.Decode(payload)
	if err != nil {
		e.logger.Println("emitter: dropping payload on", topic, err)
		return false
	}
	e.mu.Lock()
	buf, ok := e.receiveBuf[topic]
	if !ok || e.closed {
		e.mu.Unlock()
		return false
	}
	if e.cfg.MaxBuffered > 0 && buf.len() >= e.cfg.MaxBuffered {
		e.mu.Unlock()
		e.logger.Println("emitter: receive buffer full, dropping message on", topic)
		return false
	}
	buf.push(msg)
	e.triggerLocked(topic, topicBuffered)
	e.mu.Unlock()
	e.schedule(topic)
	return true
}

func (e *Emitter) schedule(topic string) {
	e.loop.post(func() { e.dispatch(topic) })
}

// dispatch runs one cycle for topic: pop a single message, hand it to every
// listener, and pause the topic if any of them returned a pending result.
func (e *Emitter) dispatch(topic string) {
	e.mu.Lock()
	if e.pausedLocked(topic) {
		e.mu.Unlock()
		return
	}
	buf, ok := e.receiveBuf[topic]
	if !ok {
		e.mu.Unlock()
		return
	}
	msg, ok := buf.pop()
	if !ok {
		e.mu.Unlock()
		return
	}
	// Captured before listeners run: they may enqueue or remove and must not
	// change this cycle's view.
	more := buf.len() > 0
	listeners := append([]*Listener(nil), e.listeners[topic]...)
	e.mu.Unlock()

	var wave []*Future
	for _, l := range listeners {
		if f := e.invoke(topic, l, msg); f != nil {
			wave = append(wave, f)
		}
	}
	if len(wave) == 0 {
		e.mu.Lock()
		if !e.hasBufferedLocked(topic) {
			e.triggerLocked(topic, topicDrained)
		}
		e.mu.Unlock()
		if more {
			e.schedule(topic)
		}
		return
	}
	id, ok := e.pauseWave(topic)
	if !ok {
		return
	}
	e.awaitWave(topic, id, wave)
}

func (e *Emitter) invoke(topic string, l *Listener, msg interface{}) (f *Future) {
	defer func() {
		if r := recover(); r != nil {
			e.listenerFailed(topic, fmt.Errorf("emitter: listener panic: %v", r))
			f = nil
		}
	}()
	res := l.Call(msg)
	if !res.IsPending() {
		return nil
	}
	return res.Future()
}

// awaitWave waits for every future of the wave, ignoring failures, then
// posts the resume back to the dispatch goroutine.
func (e *Emitter) awaitWave(topic string, id uint64, wave []*Future) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		var g errgroup.Group
		for _, f := range wave {
			f := f
			g.Go(func() error {
				if err := f.Wait(e.ctx); err != nil && e.ctx.Err() == nil {
					e.listenerFailed(topic, err)
				}
				return nil
			})
		}
		_ = g.Wait()
		if e.ctx.Err() != nil {
			return
		}
		e.loop.post(func() { e.settleWave(topic, id) })
	}()
}

func (e *Emitter) listenerFailed(topic string, err error) {
	e.logger.Println("emitter: listener on", topic, "failed:", err)
	if e.cfg.OnListenerError != nil {
		e.cfg.OnListenerError(topic, err)
	}
}
