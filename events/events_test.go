package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBus_EmitReachesSubscribers(t *testing.T) {
	bus := NewBus()
	received := make(chan Event, 1)

	bus.Subscribe(EventTypeUserRegistered, func(ctx context.Context, e Event) {
		received <- e
	})

	bus.Emit(context.Background(), UserRegisteredEvent{TelegramID: 42})

	select {
	case e := <-received:
		ev, ok := e.(UserRegisteredEvent)
		assert.True(t, ok)
		assert.Equal(t, int64(42), ev.TelegramID)
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestBus_HandlerPanicIsContained(t *testing.T) {
	bus := NewBus()
	received := make(chan struct{}, 1)

	bus.Subscribe(EventTypeReferralCompleted, func(ctx context.Context, e Event) {
		panic("boom")
	})
	bus.Subscribe(EventTypeReferralCompleted, func(ctx context.Context, e Event) {
		received <- struct{}{}
	})

	bus.Emit(context.Background(), ReferralCompletedEvent{ReferrerTelegramID: 1, ReferredTelegramID: 2})

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("second handler was not invoked")
	}
}

func TestTransactionalBus_FlushAndDiscard(t *testing.T) {
	real := NewBus()
	received := make(chan Event, 2)
	real.Subscribe(EventTypeResultsAnnounced, func(ctx context.Context, e Event) {
		received <- e
	})

	t.Run("discard drops pending events", func(t *testing.T) {
		tb := NewTransactionalBus(real)
		tb.Publish(ResultsAnnouncedEvent{ContestID: 1})
		tb.Discard()
		assert.NoError(t, tb.Flush(context.Background()))

		select {
		case <-received:
			t.Fatal("discarded event was emitted")
		case <-time.After(100 * time.Millisecond):
		}
	})

	t.Run("flush emits pending events", func(t *testing.T) {
		tb := NewTransactionalBus(real)
		tb.Publish(ResultsAnnouncedEvent{ContestID: 2})
		assert.NoError(t, tb.Flush(context.Background()))

		select {
		case e := <-received:
			ev := e.(ResultsAnnouncedEvent)
			assert.Equal(t, int64(2), ev.ContestID)
		case <-time.After(time.Second):
			t.Fatal("pending event was not emitted after flush")
		}
	})
}
