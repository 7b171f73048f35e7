// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bus is the notification channel between the reset pipeline and
// scene transitions: topic-based publish/subscribe with typed helpers.
package bus

import (
	"context"
	"sync"
)

// Message is any notification payload.
type Message = any

// Bus publishes messages to every current subscriber of a topic.
type Bus interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Subscribe(ctx context.Context, topic string) (Subscriber, error)
}

// Subscriber receives messages for one topic until closed.
type Subscriber interface {
	C() <-chan Message
	Close() error
}

// Topic binds a topic name to its payload type.
type Topic[T any] string

// Name returns the wire topic name.
func (t Topic[T]) Name() string { return string(t) }

// Publish sends v on t.
func (t Topic[T]) Publish(ctx context.Context, b Bus, v T) error {
	return b.Publish(ctx, string(t), v)
}

// Listen subscribes to t and calls fn for every payload of type T, in order,
// on a dedicated goroutine. Payloads of any other type are ignored. The
// returned stop function closes the subscription and waits for the goroutine.
func (t Topic[T]) Listen(ctx context.Context, b Bus, fn func(T)) (stop func(), err error) {
	sub, err := b.Subscribe(ctx, string(t))
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case msg, ok := <-sub.C():
				if !ok {
					return
				}
				if v, ok := msg.(T); ok {
					fn(v)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = sub.Close()
			<-done
		})
	}, nil
}

// Nop discards every publish and hands out subscriptions that never deliver.
type Nop struct{}

func (Nop) Publish(context.Context, string, Message) error { return nil }

func (Nop) Subscribe(context.Context, string) (Subscriber, error) {
	return &nopSub{ch: make(chan Message)}, nil
}

type nopSub struct {
	ch   chan Message
	once sync.Once
}

func (s *nopSub) C() <-chan Message { return s.ch }

func (s *nopSub) Close() error {
	s.once.Do(func() { close(s.ch) })
	return nil
}
