package wmPubsub

import (
	"context"
	"log/slog"
	"sync"

	"crescer/pkg/types/pubsub"

	"github.com/pkg/errors"
)

var (
	ErrInvalidPubSubConfig = errors.New("invalid pubsub config")
	ErrClosed              = errors.New("pubsub closed")
)

var _ pubsub.PubSub = (*PubSub)(nil)

// PubSub fans each published message out to every current subscriber.
// Slow subscribers lose messages instead of blocking the publisher.
type PubSub struct {
	topic      string
	ctx        context.Context
	logger     *slog.Logger
	buffer     int
	replayLast bool

	mu     sync.Mutex
	subs   map[int]chan []byte
	nextID int
	last   []byte
	closed bool
}

type Option func(*PubSub)

func WithContext(ctx context.Context) Option {
	return func(ps *PubSub) {
		ps.ctx = ctx
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(ps *PubSub) {
		ps.logger = l
	}
}

func WithTopic(topic string) Option {
	return func(ps *PubSub) {
		ps.topic = topic
	}
}

// WithBuffer sets the per-subscriber channel capacity.
func WithBuffer(n int) Option {
	return func(ps *PubSub) {
		ps.buffer = n
	}
}

// WithReplayLast delivers the most recent message to new subscribers right away.
func WithReplayLast() Option {
	return func(ps *PubSub) {
		ps.replayLast = true
	}
}

func (ps *PubSub) IsValid() error {
	switch {
	case ps.ctx == nil:
		return errors.Wrap(ErrInvalidPubSubConfig, "ctx cannot be nil")
	case ps.logger == nil:
		return errors.Wrap(ErrInvalidPubSubConfig, "logger cannot be nil")
	case ps.topic == "":
		return errors.Wrap(ErrInvalidPubSubConfig, "topic cannot be empty")
	case ps.buffer < 1:
		return errors.Wrap(ErrInvalidPubSubConfig, "buffer must be positive")
	default:
		return nil
	}
}

func New(opts ...Option) (*PubSub, error) {
	ps := &PubSub{
		buffer: 10,
		subs:   make(map[int]chan []byte),
	}

	for _, opt := range opts {
		opt(ps)
	}

	if err := ps.IsValid(); err != nil {
		return nil, err
	}

	go func() {
		<-ps.ctx.Done()
		ps.close()
	}()

	return ps, nil
}

func (ps *PubSub) Publish(payload []byte) error {
	if err := ps.ctx.Err(); err != nil {
		return err
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.closed {
		return ErrClosed
	}

	ps.last = payload
	for id, ch := range ps.subs {
		select {
		case ch <- payload:
		default:
			ps.logger.Warn("subscriber channel full, dropping message", "topic", ps.topic, "subscriber", id)
		}
	}
	return nil
}

func (ps *PubSub) Subscribe() (<-chan []byte, func(), error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.closed {
		return nil, nil, ErrClosed
	}

	id := ps.nextID
	ps.nextID++
	ch := make(chan []byte, ps.buffer)
	if ps.replayLast && ps.last != nil {
		ch <- ps.last
	}
	ps.subs[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			ps.mu.Lock()
			defer ps.mu.Unlock()
			if sub, ok := ps.subs[id]; ok {
				delete(ps.subs, id)
				close(sub)
			}
		})
	}
	return ch, unsubscribe, nil
}

func (ps *PubSub) Subscribers() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.subs)
}

func (ps *PubSub) close() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.closed = true
	for id, ch := range ps.subs {
		delete(ps.subs, id)
		close(ch)
	}
}
