package emitter

import (
	"sort"
	"sync/atomic"
)

// On registers l for topic. Registering the same handle twice is a no-op.
// The first registration ever opens the consumer side of the transport; the
// first registration on a topic creates its receive buffer and subscribes.
func (e *Emitter) On(topic string, l *Listener) {
	if l == nil {
		return
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	first := !e.consumerInit
	e.consumerInit = true
	if _, ok := e.receiveBuf[topic]; !ok {
		e.receiveBuf[topic] = &queue[interface{}]{}
		e.states[topic] = topicStates.New()
		if e.manual[topic] {
			e.states[topic].Trigger(topicSuspended)
		}
	}
	if indexOf(e.listeners[topic], l) == -1 {
		e.listeners[topic] = append(e.listeners[topic], l)
	}
	e.mu.Unlock()

	if first {
		e.initConsumer()
	}
	e.syncSubscription(topic)
}

// Once registers l for a single delivery. The wrapper unregisters itself
// before calling l. RemoveListener(topic, l) also removes the wrapper.
func (e *Emitter) Once(topic string, l *Listener) {
	if l == nil {
		return
	}
	var fired atomic.Bool
	w := &Listener{origin: l}
	w.fn = func(msg interface{}) Result {
		if !fired.CompareAndSwap(false, true) {
			return Immediate(nil)
		}
		e.RemoveListener(topic, w)
		return l.Call(msg)
	}
	e.On(topic, w)
}

// RemoveListener unregisters l from topic. Removing the last listener drops
// the topic's receive buffer and pause entry and ends its subscription.
// Unknown topics or listeners are ignored.
func (e *Emitter) RemoveListener(topic string, l *Listener) {
	e.mu.Lock()
	removed, emptied := e.removeLocked(topic, l)
	e.mu.Unlock()
	if removed && emptied {
		e.syncSubscription(topic)
	}
}

func (e *Emitter) removeLocked(topic string, l *Listener) (removed, emptied bool) {
	ls, ok := e.listeners[topic]
	if !ok {
		return false, false
	}
	i := -1
	for j, x := range ls {
		if x.matches(l) {
			i = j
			break
		}
	}
	if i == -1 {
		return false, false
	}
	next := make([]*Listener, 0, len(ls)-1)
	next = append(next, ls[:i]...)
	next = append(next, ls[i+1:]...)
	if len(next) > 0 {
		e.listeners[topic] = next
		return true, false
	}
	delete(e.listeners, topic)
	delete(e.receiveBuf, topic)
	delete(e.states, topic)
	delete(e.waves, topic)
	delete(e.manual, topic)
	return true, true
}

// RemoveAllListeners clears the given topics, or every topic in sorted order
// when none are given.
func (e *Emitter) RemoveAllListeners(topics ...string) {
	if len(topics) == 0 {
		topics = e.EventNames()
	}
	for _, topic := range topics {
		for _, l := range e.Listeners(topic) {
			e.RemoveListener(topic, l)
		}
	}
}

// Listeners returns a copy of topic's listeners in registration order.
func (e *Emitter) Listeners(topic string) []*Listener {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Listener{}, e.listeners[topic]...)
}

// ListenerCount returns how many listeners topic has.
func (e *Emitter) ListenerCount(topic string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[topic])
}

// EventNames lists topics with at least one listener, sorted.
func (e *Emitter) EventNames() []string {
	e.mu.Lock()
	names := make([]string, 0, len(e.listeners))
	for topic := range e.listeners {
		names = append(names, topic)
	}
	e.mu.Unlock()
	sort.Strings(names)
	return names
}

func indexOf(ls []*Listener, l *Listener) int {
	for i, x := range ls {
		if x == l {
			return i
		}
	}
	return -1
}
