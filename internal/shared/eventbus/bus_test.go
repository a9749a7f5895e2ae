package eventbus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_SubscribePublish(t *testing.T) {
	bus := NewEventBus(nil)
	var called bool
	bus.Subscribe("test", func(ctx context.Context, event Event) error {
		called = true
		assert.Equal(t, "test", event.Type())
		assert.Equal(t, "workouts", event.Data())
		return nil
	})
	err := bus.Publish(context.Background(), NewEvent("test", "workouts", "unit"))
	assert.NoError(t, err)
	assert.True(t, called)
}

func TestEventBus_AsyncPublish(t *testing.T) {
	bus := NewEventBusWithConfig(nil, BusConfig{AsyncProcessing: true})
	ch := make(chan struct{}, 1)
	bus.Subscribe("async", func(ctx context.Context, event Event) error {
		ch <- struct{}{}
		return nil
	})
	require.NoError(t, bus.Publish(context.Background(), NewEvent("async", nil, "unit")))
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for async event")
	}
}

func TestEventBus_UnsubscribeRemovesOnlyThatHandler(t *testing.T) {
	bus := NewEventBus(nil)
	var first, second int32
	unsubFirst := bus.Subscribe("ev", func(ctx context.Context, event Event) error {
		atomic.AddInt32(&first, 1)
		return nil
	})
	bus.Subscribe("ev", func(ctx context.Context, event Event) error {
		atomic.AddInt32(&second, 1)
		return nil
	})
	assert.Equal(t, 2, bus.SubscriberCount("ev"))

	unsubFirst()
	unsubFirst()
	assert.Equal(t, 1, bus.SubscriberCount("ev"))

	require.NoError(t, bus.Publish(context.Background(), NewEvent("ev", nil, "unit")))
	assert.Equal(t, int32(0), atomic.LoadInt32(&first))
	assert.Equal(t, int32(1), atomic.LoadInt32(&second))
}

func TestEventBus_RetriesThenFails(t *testing.T) {
	bus := NewEventBusWithConfig(nil, BusConfig{MaxRetries: 2, RetryDelay: time.Millisecond})
	var calls int32
	bus.Subscribe("fail", func(ctx context.Context, event Event) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("nope")
	})
	err := bus.Publish(context.Background(), NewEvent("fail", nil, "unit"))
	assert.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestEventBus_PublishAndForget(t *testing.T) {
	bus := NewEventBus(nil)
	var wg sync.WaitGroup
	wg.Add(1)
	bus.Subscribe("forget", func(ctx context.Context, event Event) error {
		wg.Done()
		return nil
	})
	bus.PublishAndForget(context.Background(), NewEvent("forget", nil, "unit"))
	wait := make(chan struct{})
	go func() {
		wg.Wait()
		close(wait)
	}()
	select {
	case <-wait:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for PublishAndForget")
	}
}
