package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"
)

// Sink receives committed events in Seq order.
type Sink interface {
	Name() string
	Publish(ctx context.Context, events []Event) error
}

// MemSink keeps every published event in memory.
type MemSink struct {
	mu     sync.Mutex
	events []Event
}

// Name implements Sink.
func (s *MemSink) Name() string { return "memory" }

// Publish implements Sink.
func (s *MemSink) Publish(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

// Events returns a copy of everything published so far.
func (s *MemSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// OfKind returns the published events of one kind.
func (s *MemSink) OfKind(kind Kind) []Event {
	var out []Event
	for _, ev := range s.Events() {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// JetStreamPublisher is the subset of jetstream.JetStream used by NATSSink.
type JetStreamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSSink publishes each event to JetStream subject "<prefix>.<kind>".
// The outbox sequence is used as the message ID so redelivery after a
// restart is de-duplicated by the stream.
type NATSSink struct {
	js     JetStreamPublisher
	prefix string
}

// NewNATSSink creates a JetStream sink. prefix defaults to "receipt.events".
func NewNATSSink(js JetStreamPublisher, prefix string) *NATSSink {
	if prefix == "" {
		prefix = "receipt.events"
	}
	return &NATSSink{js: js, prefix: prefix}
}

// Name implements Sink.
func (s *NATSSink) Name() string { return "nats" }

// Subject returns the subject an event kind is published on.
func (s *NATSSink) Subject(kind Kind) string { return s.prefix + "." + string(kind) }

// Publish implements Sink.
func (s *NATSSink) Publish(ctx context.Context, events []Event) error {
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("eventlog: marshal event %d: %w", ev.Seq, err)
		}
		msgID := strconv.FormatUint(ev.Seq, 10)
		if _, err := s.js.Publish(ctx, s.Subject(ev.Kind), data, jetstream.WithMsgID(msgID)); err != nil {
			return fmt.Errorf("eventlog: publish event %d to nats: %w", ev.Seq, err)
		}
	}
	return nil
}

// RedisSink publishes each event as JSON on channel "<prefix>:<kind>" and
// records the highest delivered sequence under "<prefix>:last_seq".
type RedisSink struct {
	rdb    *redis.Client
	prefix string
}

// raiseLastSeq sets KEYS[1] to ARGV[1] unless it already holds a higher
// sequence. Both are decimal strings without leading zeros, so a longer
// string is the larger number.
var raiseLastSeq = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur and (#cur > #ARGV[1] or (#cur == #ARGV[1] and cur >= ARGV[1])) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1])
return 1
`)

// NewRedisSink creates a Redis pub/sub sink. prefix defaults to "receipt:events".
func NewRedisSink(rdb *redis.Client, prefix string) *RedisSink {
	if prefix == "" {
		prefix = "receipt:events"
	}
	return &RedisSink{rdb: rdb, prefix: prefix}
}

// Name implements Sink.
func (s *RedisSink) Name() string { return "redis" }

// Channel returns the channel an event kind is published on.
func (s *RedisSink) Channel(kind Kind) string { return s.prefix + ":" + string(kind) }

// LastSeqKey is the key holding the highest delivered sequence.
func (s *RedisSink) LastSeqKey() string { return s.prefix + ":last_seq" }

// Publish implements Sink.
func (s *RedisSink) Publish(ctx context.Context, events []Event) error {
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("eventlog: marshal event %d: %w", ev.Seq, err)
		}
		if err := s.rdb.Publish(ctx, s.Channel(ev.Kind), data).Err(); err != nil {
			return fmt.Errorf("eventlog: publish event %d to redis: %w", ev.Seq, err)
		}
		err = raiseLastSeq.Run(ctx, s.rdb, []string{s.LastSeqKey()}, strconv.FormatUint(ev.Seq, 10)).Err()
		if err != nil {
			return fmt.Errorf("eventlog: record last seq: %w", err)
		}
	}
	return nil
}

// LastSeq returns the highest sequence delivered through this sink, or 0.
func (s *RedisSink) LastSeq(ctx context.Context) (uint64, error) {
	n, err := s.rdb.Get(ctx, s.LastSeqKey()).Uint64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}
