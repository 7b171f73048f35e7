// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/worldflow/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, counter.Write(metric))
	return metric.GetCounter().GetValue()
}

func TestMemoryBusPublishContextTimeoutIncrementsDropMetrics(t *testing.T) {
	b := NewMemoryBus()
	sub, err := b.Subscribe(context.Background(), "topic")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	// Fill subscriber channel to capacity so next publish blocks.
	for i := 0; i < cap(sub.C()); i++ {
		require.NoError(t, b.Publish(context.Background(), "topic", "msg"))
	}

	initial := getCounterValue(t, metrics.BusDroppedTotal.WithLabelValues("topic", "timeout"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = b.Publish(ctx, "topic", "blocked")
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	final := getCounterValue(t, metrics.BusDroppedTotal.WithLabelValues("topic", "timeout"))
	require.Greater(t, final, initial, "expected reasoned bus drop counter to increase")
}

func TestMemoryBusPublishRejectsNilContext(t *testing.T) {
	b := NewMemoryBus()
	//lint:ignore SA1012 nil context is the case under test
	err := b.Publish(nil, "topic", "msg")
	require.Error(t, err)
	require.Contains(t, err.Error(), "context is nil")
}

func TestMemoryBusCloseUnblocksPublisher(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := NewMemoryBus()
	sub, err := b.Subscribe(context.Background(), "topic")
	require.NoError(t, err)
	for i := 0; i < cap(sub.C()); i++ {
		require.NoError(t, b.Publish(context.Background(), "topic", i))
	}

	published := make(chan error, 1)
	go func() {
		published <- b.Publish(context.Background(), "topic", "late")
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	select {
	case err := <-published:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("publisher stayed blocked after subscriber close")
	}
	assert.Equal(t, 0, b.SubscriberCount("topic"))
}

type ping struct{ N int }

func TestTopicListenDeliversTypedInOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := NewMemoryBus()
	topic := Topic[ping]("ping")
	assert.Equal(t, "ping", topic.Name())

	var mu sync.Mutex
	var got []int
	done := make(chan struct{})
	stop, err := topic.Listen(context.Background(), b, func(p ping) {
		mu.Lock()
		got = append(got, p.N)
		n := len(got)
		mu.Unlock()
		if n == 3 {
			close(done)
		}
	})
	require.NoError(t, err)
	defer stop()

	require.NoError(t, b.Publish(context.Background(), "ping", "not a ping"))
	for i := 1; i <= 3; i++ {
		require.NoError(t, topic.Publish(context.Background(), b, ping{N: i}))
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not receive all pings")
	}
	stop()
	stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, got)
}
