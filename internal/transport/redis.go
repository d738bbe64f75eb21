package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var errTransportClosed = errors.New("transport: closed")

// Redis implements Transport using Redis Pub/Sub with automatic reconnection.
type Redis struct {
	mu            sync.Mutex
	client        *redis.Client
	options       *redis.Options
	subscriptions map[string]*redisSubscription
	retired       []*redis.Client
	logger        *log.Logger
	closed        bool
	ctx           context.Context
	cancel        context.CancelFunc
}

type redisSubscription struct {
	client *redis.Client
	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRedis creates a Redis-backed transport using the given options.
func NewRedis(opts *redis.Options, logger *log.Logger) *Redis {
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Redis{
		client:        redis.NewClient(opts),
		options:       opts,
		subscriptions: make(map[string]*redisSubscription),
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// NewRedisFromURL parses a redis:// URL and creates the transport.
func NewRedisFromURL(url string, logger *log.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("transport: parse redis url: %w", err)
	}
	return NewRedis(opts, logger), nil
}

// ensureConnection pings the server and reconnects if necessary.
// Callers must hold r.mu.
func (r *Redis) ensureConnection(ctx context.Context) {
	if err := r.client.Ping(ctx).Err(); err != nil {
		r.logger.Println("transport reconnecting to Redis", err)
		old := r.client
		r.client = redis.NewClient(r.options)
		r.retireLocked(old)
	}
}

// retireLocked closes a replaced client. Subscriptions read through their
// client's pool, so a client still serving one is kept until it ends.
func (r *Redis) retireLocked(old *redis.Client) {
	for _, sub := range r.subscriptions {
		if sub.client == old {
			r.retired = append(r.retired, old)
			return
		}
	}
	if err := old.Close(); err != nil {
		r.logger.Println("transport close replaced Redis client", err)
	}
}

// sweepRetiredLocked closes retired clients no subscription uses any more.
func (r *Redis) sweepRetiredLocked() {
	kept := r.retired[:0]
	for _, c := range r.retired {
		inUse := false
		for _, sub := range r.subscriptions {
			if sub.client == c {
				inUse = true
				break
			}
		}
		if inUse {
			kept = append(kept, c)
			continue
		}
		if err := c.Close(); err != nil {
			r.logger.Println("transport close replaced Redis client", err)
		}
	}
	r.retired = kept
}

// Produce publishes payload on the channel named after topic.
func (r *Redis) Produce(ctx context.Context, topic, payload string) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return errTransportClosed
	}
	r.ensureConnection(ctx)
	client := r.client
	r.mu.Unlock()
	if err := client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("transport: redis publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe listens on topic and waits for the server to confirm the
// subscription, so payloads published after it returns are not missed.
func (r *Redis) Subscribe(ctx context.Context, topic string, deliver DeliverFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errTransportClosed
	}
	if _, ok := r.subscriptions[topic]; ok {
		return nil
	}
	r.ensureConnection(ctx)
	ps := r.client.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("transport: redis subscribe %s: %w", topic, err)
	}
	subCtx, cancel := context.WithCancel(r.ctx)
	sub := &redisSubscription{client: r.client, pubsub: ps, cancel: cancel, done: make(chan struct{})}
	r.subscriptions[topic] = sub
	go r.receiveLoop(subCtx, topic, sub, deliver)
	return nil
}

func (r *Redis) receiveLoop(ctx context.Context, topic string, sub *redisSubscription, deliver DeliverFunc) {
	defer close(sub.done)
	for {
		msg, err := sub.pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Println("transport receive error", topic, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		deliver(topic, msg.Payload)
	}
}

// Unsubscribe stops listening on a topic and waits for its receive loop to exit.
func (r *Redis) Unsubscribe(ctx context.Context, topic string) error {
	r.mu.Lock()
	sub, ok := r.subscriptions[topic]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.subscriptions, topic)
	r.mu.Unlock()
	err := sub.stop()

	r.mu.Lock()
	r.sweepRetiredLocked()
	r.mu.Unlock()
	return err
}

func (s *redisSubscription) stop() error {
	s.cancel()
	err := s.pubsub.Close()
	<-s.done
	return err
}

// Close terminates all subscriptions and closes the client.
func (r *Redis) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	subs := r.subscriptions
	r.subscriptions = make(map[string]*redisSubscription)
	retired := r.retired
	r.retired = nil
	r.mu.Unlock()

	r.cancel()
	var errs []error
	for _, sub := range subs {
		if err := sub.stop(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range retired {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.client.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

var _ Transport = (*Redis)(nil)
