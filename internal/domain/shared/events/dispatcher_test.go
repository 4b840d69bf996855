package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(eventType string) BaseEvent {
	return BaseEvent{
		AggregateID: "device:dev_test00000001",
		EventType:   eventType,
		OccurredAt:  time.Now(),
		Version:     1,
	}
}

func TestInMemoryEventDispatcher(t *testing.T) {
	t.Run("delivers to subscribed handler", func(t *testing.T) {
		d := NewInMemoryEventDispatcher(10)
		require.NoError(t, d.Start())

		var mu sync.Mutex
		var received []string
		handler := NewSimpleEventHandler("device.registered", func(e DomainEvent) error {
			mu.Lock()
			defer mu.Unlock()
			received = append(received, e.GetEventType())
			return nil
		})
		require.NoError(t, d.Subscribe("device.registered", handler))

		require.NoError(t, d.Publish(testEvent("device.registered")))
		require.NoError(t, d.Publish(testEvent("device.status.changed")))

		// Stop drains the channel, so delivery is complete afterwards.
		require.NoError(t, d.Stop())

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"device.registered"}, received)
	})

	t.Run("publish before start fails", func(t *testing.T) {
		d := NewInMemoryEventDispatcher(10)
		assert.Error(t, d.Publish(testEvent("device.registered")))
	})

	t.Run("double start fails", func(t *testing.T) {
		d := NewInMemoryEventDispatcher(10)
		require.NoError(t, d.Start())
		assert.Error(t, d.Start())
		require.NoError(t, d.Stop())
	})

	t.Run("subscribe validates arguments", func(t *testing.T) {
		d := NewInMemoryEventDispatcher(10)
		assert.Error(t, d.Subscribe("", NewSimpleEventHandler("x", nil)))
		assert.Error(t, d.Subscribe("device.registered", nil))
	})

	t.Run("publish all stops at the first failure", func(t *testing.T) {
		d := NewInMemoryEventDispatcher(1)
		require.NoError(t, d.Start())
		defer func() { _ = d.Stop() }()

		// Without a consumer for this type the second publish overflows
		// the single-slot buffer only if delivery has not caught up, so
		// use a blocking handler to hold the channel full.
		block := make(chan struct{})
		handler := NewSimpleEventHandler("device.slow", func(DomainEvent) error {
			<-block
			return nil
		})
		require.NoError(t, d.Subscribe("device.slow", handler))

		batch := []DomainEvent{
			testEvent("device.slow"),
			testEvent("device.slow"),
			testEvent("device.slow"),
		}
		err := d.PublishAll(batch)
		assert.Error(t, err)
		close(block)
	})
}
