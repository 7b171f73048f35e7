// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	xglog "github.com/ManuGH/worldflow/internal/log"
	"github.com/ManuGH/worldflow/internal/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Decoder turns a wire payload back into a typed message for topic.
type Decoder func(topic string, data []byte) (Message, error)

// RedisBus bridges notifications across processes over Redis pub/sub, e.g.
// from an external QA driver into the running game. Payloads travel as JSON.
type RedisBus struct {
	client *redis.Client
	prefix string
	decode Decoder
	logger zerolog.Logger
}

// NewRedisBus returns a bus that maps topic to channel prefix+topic. A nil
// decoder delivers json.RawMessage payloads.
func NewRedisBus(client *redis.Client, prefix string, decode Decoder) *RedisBus {
	if decode == nil {
		decode = func(_ string, data []byte) (Message, error) {
			return json.RawMessage(append([]byte(nil), data...)), nil
		}
	}
	return &RedisBus{
		client: client,
		prefix: prefix,
		decode: decode,
		logger: xglog.WithComponent("bus.redis"),
	}
}

func (b *RedisBus) channel(topic string) string {
	return b.prefix + topic
}

func (b *RedisBus) Publish(ctx context.Context, topic string, msg Message) error {
	if ctx == nil {
		return fmt.Errorf("publish context is nil")
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %q payload: %w", topic, err)
	}
	if err := b.client.Publish(ctx, b.channel(topic), data).Err(); err != nil {
		metrics.IncBusDropReason(topic, "redis_error")
		return fmt.Errorf("publish topic %q: %w", topic, err)
	}
	metrics.IncBusPublished(topic)
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, topic string) (Subscriber, error) {
	ps := b.client.Subscribe(ctx, b.channel(topic))
	// Wait for the subscription confirmation so nothing published after
	// Subscribe returns is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe topic %q: %w", topic, err)
	}

	s := &redisSub{
		ps:     ps,
		out:    make(chan Message, subscriberBuf),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go s.pump(topic, b.decode, b.logger)
	return s, nil
}

type redisSub struct {
	ps        *redis.PubSub
	out       chan Message
	done      chan struct{}
	exited    chan struct{}
	closeOnce sync.Once
}

func (s *redisSub) pump(topic string, decode Decoder, logger zerolog.Logger) {
	defer close(s.exited)
	for m := range s.ps.Channel() {
		msg, err := decode(topic, []byte(m.Payload))
		if err != nil {
			metrics.IncBusDropReason(topic, "decode_error")
			logger.Warn().Err(err).Str(xglog.FieldTopic, topic).Msg("dropping undecodable notification")
			continue
		}
		select {
		case s.out <- msg:
		case <-s.done:
			return
		}
	}
}

func (s *redisSub) C() <-chan Message {
	return s.out
}

func (s *redisSub) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.ps.Close()
		<-s.exited
		close(s.out)
	})
	return err
}

var _ Bus = (*RedisBus)(nil)
