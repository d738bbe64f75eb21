package emitter

import (
	"go-kafka-emitter/internal/core"
	"go-kafka-emitter/internal/fsm"
)

type topicEvent int

const (
	topicBuffered  topicEvent = iota // a message joined the receive buffer
	topicDrained                     // a dispatch cycle left the buffer empty
	topicSuspended                   // manual pause or async wave started
	topicReleased                    // the last pause on the topic was lifted
)

var topicStates = fsm.MustTable(core.TopicIdle,
	fsm.Transition[core.TopicState, topicEvent]{From: core.TopicIdle, Event: topicBuffered, To: core.TopicRunning},
	fsm.Transition[core.TopicState, topicEvent]{From: core.TopicRunning, Event: topicBuffered, To: core.TopicRunning},
	fsm.Transition[core.TopicState, topicEvent]{From: core.TopicPaused, Event: topicBuffered, To: core.TopicPaused},
	fsm.Transition[core.TopicState, topicEvent]{From: core.TopicRunning, Event: topicDrained, To: core.TopicIdle},
	fsm.Transition[core.TopicState, topicEvent]{From: core.TopicIdle, Event: topicSuspended, To: core.TopicPaused},
	fsm.Transition[core.TopicState, topicEvent]{From: core.TopicRunning, Event: topicSuspended, To: core.TopicPaused},
	fsm.Transition[core.TopicState, topicEvent]{From: core.TopicPaused, Event: topicSuspended, To: core.TopicPaused},
	fsm.Transition[core.TopicState, topicEvent]{From: core.TopicPaused, Event: topicReleased, To: core.TopicIdle},
)

// Pause stops dispatch for topic. Pausing twice is the same as pausing once.
func (e *Emitter) Pause(topic string) {
	e.mu.Lock()
	e.manual[topic] = true
	e.triggerLocked(topic, topicSuspended)
	e.mu.Unlock()
}

// Resume lifts a pause set by Pause and restarts dispatch if messages are
// waiting. A pause held by an outstanding async wave stays in place.
func (e *Emitter) Resume(topic string) {
	e.mu.Lock()
	was := e.manual[topic]
	delete(e.manual, topic)
	pending := was && e.releaseLocked(topic)
	e.mu.Unlock()
	if pending {
		e.schedule(topic)
	}
}

// IsPaused reports whether dispatch for topic is held, manually or by an async wave.
func (e *Emitter) IsPaused(topic string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pausedLocked(topic)
}

// State reports where topic is in its dispatch cycle.
func (e *Emitter) State(topic string) core.TopicState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m, ok := e.states[topic]; ok {
		return m.State()
	}
	if e.pausedLocked(topic) {
		return core.TopicPaused
	}
	return core.TopicIdle
}

// pauseWave pauses topic on behalf of an async wave and returns the wave id,
// or false if the topic lost all its listeners meanwhile.
func (e *Emitter) pauseWave(topic string) (uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.listeners[topic]; !ok {
		return 0, false
	}
	e.waveSeq++
	e.waves[topic] = e.waveSeq
	e.triggerLocked(topic, topicSuspended)
	return e.waveSeq, true
}

// settleWave ends wave id on topic. A stale id, left over from listeners
// removed mid-wave, changes nothing.
func (e *Emitter) settleWave(topic string, id uint64) {
	e.mu.Lock()
	if cur, ok := e.waves[topic]; !ok || cur != id {
		e.mu.Unlock()
		return
	}
	delete(e.waves, topic)
	pending := e.releaseLocked(topic)
	e.mu.Unlock()
	if pending {
		e.schedule(topic)
	}
}

// releaseLocked moves topic out of Paused once nothing holds it and reports
// whether a dispatch cycle is needed.
func (e *Emitter) releaseLocked(topic string) bool {
	if e.pausedLocked(topic) {
		return false
	}
	e.triggerLocked(topic, topicReleased)
	if !e.hasBufferedLocked(topic) {
		return false
	}
	e.triggerLocked(topic, topicBuffered)
	return true
}

func (e *Emitter) pausedLocked(topic string) bool {
	_, wave := e.waves[topic]
	return wave || e.manual[topic]
}

func (e *Emitter) triggerLocked(topic string, ev topicEvent) {
	if m, ok := e.states[topic]; ok {
		m.Trigger(ev)
	}
}

func (e *Emitter) hasBufferedLocked(topic string) bool {
	q, ok := e.receiveBuf[topic]
	return ok && q.len() > 0
}
