package emitter

import (
	"errors"
	"reflect"
	"sort"
	"testing"

	"go-kafka-emitter/internal/core"
)

func bufferKeys(e *Emitter) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := make([]string, 0, len(e.receiveBuf))
	for k := range e.receiveBuf {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func bufferLen(e *Emitter, topic string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if q, ok := e.receiveBuf[topic]; ok {
		return q.len()
	}
	return -1
}

func TestReceiveIgnoresTopicsWithoutListeners(t *testing.T) {
	env := newTestEmitter(t, Config{})
	env.e.On("some-other-topic", ListenerFunc(func(interface{}) {}))
	env.e.Pause("some-other-topic")
	before := bufferKeys(env.e)
	if !reflect.DeepEqual(before, []string{"some-other-topic"}) {
		t.Fatalf("unexpected buffers %v", before)
	}
	if env.e.receive("my-topic", `{"test":"some-data"}`) {
		t.Fatal("expected false for a topic without listeners")
	}
	if got := bufferKeys(env.e); !reflect.DeepEqual(got, before) {
		t.Fatalf("buffers changed: %v", got)
	}
	if n := bufferLen(env.e, "some-other-topic"); n != 0 {
		t.Fatalf("other topic buffer mutated: %d", n)
	}
}

func TestReceiveDropsMalformedPayloads(t *testing.T) {
	env := newTestEmitter(t, Config{})
	env.e.On("my-topic", ListenerFunc(func(interface{}) {}))
	env.e.On("my-topic", ListenerFunc(func(interface{}) {}))
	env.e.Pause("my-topic")
	for _, payload := range []string{"sadđ{ßªðđ{ªßđð{ªđ{{", `{"test":`, ""} {
		if env.e.receive("my-topic", payload) {
			t.Fatalf("expected false for %q", payload)
		}
		if n := bufferLen(env.e, "my-topic"); n != 0 {
			t.Fatalf("buffer mutated by %q: %d entries", payload, n)
		}
	}
}

func TestReceiveQueuesMessage(t *testing.T) {
	env := newTestEmitter(t, Config{})
	env.e.On("my-topic", ListenerFunc(func(interface{}) {}))
	env.e.Pause("my-topic")
	if !env.e.receive("my-topic", `{"test":"whatever"}`) {
		t.Fatal("expected true when the message was added")
	}
	if n := bufferLen(env.e, "my-topic"); n != 1 {
		t.Fatalf("expected 1 buffered message, got %d", n)
	}
	if s := env.e.State("my-topic"); s != core.TopicPaused {
		t.Fatalf("expected paused state, got %s", s)
	}
}

func TestReceiveRespectsMaxBuffered(t *testing.T) {
	env := newTestEmitter(t, Config{MaxBuffered: 2})
	env.e.On("t", ListenerFunc(func(interface{}) {}))
	env.e.Pause("t")
	for i, want := range []bool{true, true, false} {
		if got := env.e.receive("t", `{}`); got != want {
			t.Fatalf("receive #%d: expected %v got %v", i, want, got)
		}
	}
}

func TestDispatchDeliversDecodedMessagesInOrder(t *testing.T) {
	env := newTestEmitter(t, Config{})
	a := make(chan interface{}, 8)
	b := make(chan interface{}, 8)
	var calls []string
	env.e.On("t", NewListener(func(msg interface{}) Result {
		calls = append(calls, "a")
		a <- msg
		return Immediate(nil)
	}))
	env.e.On("t", NewListener(func(msg interface{}) Result {
		calls = append(calls, "b")
		b <- msg
		return Immediate(nil)
	}))
	for _, p := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		if !env.mock.Inject("t", p) {
			t.Fatal("expected transport subscription")
		}
	}
	for i := 1; i <= 3; i++ {
		want := map[string]interface{}{"n": float64(i)}
		if got := recv(t, a); !reflect.DeepEqual(got, want) {
			t.Fatalf("listener a: expected %v got %v", want, got)
		}
		if got := recv(t, b); !reflect.DeepEqual(got, want) {
			t.Fatalf("listener b: expected %v got %v", want, got)
		}
	}
	if !reflect.DeepEqual(calls, []string{"a", "b", "a", "b", "a", "b"}) {
		t.Fatalf("listeners not called in registration order: %v", calls)
	}
}

func TestAsyncResultHoldsNextMessage(t *testing.T) {
	env := newTestEmitter(t, Config{})
	order := make(chan interface{}, 8)
	futA := NewFuture()
	env.e.On("t", NewListener(func(msg interface{}) Result {
		order <- msg
		if msg == "A" {
			return Pending(futA)
		}
		return Immediate(nil)
	}))
	env.e.Pause("t")
	for _, p := range []string{`"A"`, `"B"`, `"C"`} {
		if !env.e.receive("t", p) {
			t.Fatalf("receive %s failed", p)
		}
	}
	env.e.Resume("t")

	if v := recv(t, order); v != "A" {
		t.Fatalf("expected A first, got %v", v)
	}
	expectNone(t, order)
	if !env.e.IsPaused("t") {
		t.Fatal("topic should be paused while A is pending")
	}

	futA.Resolve(errors.New("A failed"))
	for _, want := range []string{"B", "C"} {
		if v := recv(t, order); v != want {
			t.Fatalf("expected %s got %v", want, v)
		}
	}
	eventually(t, func() bool { return !env.e.IsPaused("t") })
}

func TestAsyncWaveWaitsForEveryListener(t *testing.T) {
	env := newTestEmitter(t, Config{})
	got := make(chan interface{}, 8)
	f1, f2 := NewFuture(), NewFuture()
	env.e.On("t", NewListener(func(msg interface{}) Result {
		if msg == float64(1) {
			return Pending(f1)
		}
		return Immediate(nil)
	}))
	env.e.On("t", NewListener(func(msg interface{}) Result {
		got <- msg
		if msg == float64(1) {
			return Pending(f2)
		}
		return Immediate(nil)
	}))
	env.mock.Inject("t", `1`)
	env.mock.Inject("t", `2`)
	if v := recv(t, got); v != float64(1) {
		t.Fatalf("expected 1 got %v", v)
	}
	f1.Resolve(nil)
	expectNone(t, got)
	f2.Resolve(nil)
	if v := recv(t, got); v != float64(2) {
		t.Fatalf("expected 2 got %v", v)
	}
}

func TestListenerFailuresAreIsolated(t *testing.T) {
	failures := make(chan interface{}, 8)
	env := newTestEmitter(t, Config{OnListenerError: func(topic string, err error) {
		failures <- topic
	}})
	got := make(chan interface{}, 8)
	env.e.On("t", ListenerFunc(func(interface{}) { panic("broken listener") }))
	env.e.On("t", AsyncListener(func(interface{}) error { return errors.New("async failure") }))
	env.e.On("t", collector(got))

	env.mock.Inject("t", `"x"`)
	env.mock.Inject("t", `"y"`)
	for _, want := range []string{"x", "y"} {
		if v := recv(t, got); v != want {
			t.Fatalf("expected %s got %v", want, v)
		}
	}
	for i := 0; i < 4; i++ {
		if topic := recv(t, failures); topic != "t" {
			t.Fatalf("unexpected failure topic %v", topic)
		}
	}
}

func TestPauseResume(t *testing.T) {
	env := newTestEmitter(t, Config{})
	got := make(chan interface{}, 4)
	env.e.On("t", collector(got))
	env.e.Pause("t")
	env.e.Pause("t")
	env.mock.Inject("t", `"held"`)
	expectNone(t, got)

	env.e.Resume("t")
	if v := recv(t, got); v != "held" {
		t.Fatalf("expected held message, got %v", v)
	}
	env.e.Resume("t")
	if env.e.IsPaused("t") {
		t.Fatal("topic should not be paused")
	}
}

func TestManualPauseOutlivesWave(t *testing.T) {
	env := newTestEmitter(t, Config{})
	got := make(chan interface{}, 4)
	fut := NewFuture()
	env.e.On("t", NewListener(func(msg interface{}) Result {
		got <- msg
		if msg == "first" {
			env.e.Pause("t")
			return Pending(fut)
		}
		return Immediate(nil)
	}))
	env.mock.Inject("t", `"first"`)
	env.mock.Inject("t", `"second"`)
	recv(t, got)

	fut.Resolve(nil)
	expectNone(t, got)
	if !env.e.IsPaused("t") {
		t.Fatal("settling the wave must not lift a manual pause")
	}
	env.e.Resume("t")
	if v := recv(t, got); v != "second" {
		t.Fatalf("expected second, got %v", v)
	}
}

func TestResumeKeepsWavePause(t *testing.T) {
	env := newTestEmitter(t, Config{})
	got := make(chan interface{}, 4)
	futA := NewFuture()
	env.e.On("t", NewListener(func(msg interface{}) Result {
		got <- msg
		if msg == "A" {
			return Pending(futA)
		}
		return Immediate(nil)
	}))
	env.mock.Inject("t", `"A"`)
	env.mock.Inject("t", `"B"`)
	if v := recv(t, got); v != "A" {
		t.Fatalf("expected A, got %v", v)
	}
	eventually(t, func() bool { return env.e.IsPaused("t") })

	env.e.Resume("t")
	expectNone(t, got)
	if !env.e.IsPaused("t") || env.e.State("t") != core.TopicPaused {
		t.Fatal("Resume must not lift a pause held by an outstanding wave")
	}

	futA.Resolve(nil)
	if v := recv(t, got); v != "B" {
		t.Fatalf("expected B after A settled, got %v", v)
	}
}

func TestStateFollowsDispatchCycle(t *testing.T) {
	env := newTestEmitter(t, Config{})
	entered := make(chan interface{}, 4)
	release := make(chan struct{})
	defer func() {
		select {
		case <-release:
		default:
			close(release)
		}
	}()
	fut := NewFuture()
	env.e.On("t", NewListener(func(msg interface{}) Result {
		entered <- msg
		if msg == "block" {
			<-release
			return Immediate(nil)
		}
		return Pending(fut)
	}))
	if s := env.e.State("t"); s != core.TopicIdle {
		t.Fatalf("expected idle before any message, got %s", s)
	}

	env.mock.Inject("t", `"block"`)
	env.mock.Inject("t", `"wave"`)
	recv(t, entered)
	if s := env.e.State("t"); s != core.TopicRunning {
		t.Fatalf("expected running while messages are dispatched, got %s", s)
	}

	close(release)
	if v := recv(t, entered); v != "wave" {
		t.Fatalf("expected wave message, got %v", v)
	}
	eventually(t, func() bool { return env.e.State("t") == core.TopicPaused })

	fut.Resolve(nil)
	eventually(t, func() bool { return env.e.State("t") == core.TopicIdle })
}

func TestRemovedListenerWaveIsIgnored(t *testing.T) {
	env := newTestEmitter(t, Config{})
	oldFut, newFut := NewFuture(), NewFuture()
	first := make(chan interface{}, 2)
	second := make(chan interface{}, 2)
	old := NewListener(func(msg interface{}) Result {
		first <- msg
		return Pending(oldFut)
	})
	env.e.On("t", old)
	env.mock.Inject("t", `1`)
	recv(t, first)
	eventually(t, func() bool { return env.e.IsPaused("t") })

	env.e.RemoveListener("t", old)
	if env.e.IsPaused("t") {
		t.Fatal("removing the last listener must clear the pause")
	}

	env.e.On("t", NewListener(func(msg interface{}) Result {
		second <- msg
		return Pending(newFut)
	}))
	env.mock.Inject("t", `2`)
	if v := recv(t, second); v != float64(2) {
		t.Fatalf("expected 2 got %v", v)
	}
	eventually(t, func() bool { return env.e.IsPaused("t") })

	oldFut.Resolve(nil)
	expectNone(t, second)
	if !env.e.IsPaused("t") {
		t.Fatal("a stale wave must not resume the topic")
	}
	newFut.Resolve(nil)
	eventually(t, func() bool { return !env.e.IsPaused("t") })
}

func TestStateIdleWithoutListeners(t *testing.T) {
	env := newTestEmitter(t, Config{})
	if s := env.e.State("nothing"); s != core.TopicIdle {
		t.Fatalf("expected idle, got %s", s)
	}
}
