package emitter

import (
	"context"
	"errors"
	"log"
	"reflect"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"go-kafka-emitter/internal/codec"
	"go-kafka-emitter/internal/transport"
)

func TestConfigDefaults(t *testing.T) {
	e, err := New(Config{ManualFlush: true}, quiet)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer e.Close()
	cfg := e.Config()
	if !strings.HasPrefix(cfg.ClientID, "instance-") || len(cfg.ClientID) != len("instance-")+7 {
		t.Fatalf("unexpected client id %q", cfg.ClientID)
	}
	if cfg.RequireAcks != 1 {
		t.Fatalf("expected acks 1, got %d", cfg.RequireAcks)
	}
	if !cfg.Compression {
		t.Fatal("compression should always be enabled")
	}
	if cfg.ConsumerGroup != cfg.ClientID {
		t.Fatalf("consumer group should default to client id, got %q", cfg.ConsumerGroup)
	}
	if cfg.FlushInterval != DefaultFlushInterval {
		t.Fatalf("unexpected flush interval %v", cfg.FlushInterval)
	}
	if other := NewClientID(); other == cfg.ClientID {
		t.Fatalf("client ids should be random, got %q twice", other)
	}
}

func TestConfigKeepsExplicitValues(t *testing.T) {
	e, err := New(Config{
		ClientID:         "test-instance",
		ConnectionString: "localhost:9092",
		RequireAcks:      1337,
		ManualFlush:      true,
	}, quiet)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer e.Close()
	cfg := e.Config()
	if cfg.ClientID != "test-instance" || cfg.RequireAcks != 1337 || cfg.ConnectionString != "localhost:9092" {
		t.Fatalf("explicit values overwritten: %+v", cfg)
	}
}

func TestUnknownCodec(t *testing.T) {
	if _, err := New(Config{Codec: "xml"}, quiet); err == nil {
		t.Fatal("expected error for unknown codec")
	}
}

func TestWithCodecOverridesConfig(t *testing.T) {
	mock := transport.NewMock()
	e, err := New(Config{Codec: "xml", ManualFlush: true}, quiet, WithCodec(codec.Msgpack{}), mockFactory(mock))
	if err != nil {
		t.Fatalf("WithCodec should bypass codec lookup: %v", err)
	}
	defer e.Close()
	if err := e.Emit("t", "x"); err != nil {
		t.Fatalf("emit: %v", err)
	}
	payload := e.sendBuffer("t")[0]
	if v, err := (codec.Msgpack{}).Decode(payload); err != nil || v != "x" {
		t.Fatalf("expected msgpack payload, got %q (%v)", payload, err)
	}
}

func TestConnectFailureIsReported(t *testing.T) {
	boom := errors.New("dial failed")
	e, err := New(Config{ManualFlush: true}, quiet, WithTransportFactory(func(Config, *log.Logger) (transport.Transport, error) {
		return nil, boom
	}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer e.Close()
	if err := e.Emit("t", 1); err != nil {
		t.Fatalf("emit should queue even when the producer cannot connect: %v", err)
	}
	if err := e.Flush(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected connect error from flush, got %v", err)
	}
	if got := e.sendBuffer("t"); len(got) != 1 {
		t.Fatalf("payload should stay queued, got %v", got)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	env := newTestEmitter(t, Config{})
	env.e.On("t", ListenerFunc(func(interface{}) {}))
	for i := 0; i < 2; i++ {
		if err := env.e.Close(); err != nil {
			t.Fatalf("close %d: %v", i, err)
		}
	}
	if env.mock.Inject("t", `1`) {
		t.Fatal("transport should have no subscribers after close")
	}
}

func TestRedisEndToEnd(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	e, err := New(Config{ConnectionString: "redis://" + mr.Addr(), ManualFlush: true}, quiet)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer e.Close()

	ch := make(chan interface{}, 1)
	e.On("orders", collector(ch))
	sent := map[string]interface{}{"id": float64(7), "status": "created"}
	if err := e.Emit("orders", sent); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if err := e.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := recv(t, ch); !reflect.DeepEqual(got, sent) {
		t.Fatalf("expected %v got %v", sent, got)
	}
}
