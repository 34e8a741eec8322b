package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"realty_leads_backend/platform/logger"
)

type testEvent struct {
	BaseEvent
}

func (e testEvent) EventName() string { return "test.event" }

func TestPublishSurvivesPanickingHandler(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		panic("subscriber bug")
	}))

	done := make(chan struct{})
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		close(done)
		return nil
	}))

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent()})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("healthy handler did not run after a sibling panicked")
	}
}

func TestPublishSyncReturnsPanicAsError(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		panic("subscriber bug")
	}))
	handlerErr := errors.New("handler failed")
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		return handlerErr
	}))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	if err == nil {
		t.Fatal("expected joined errors from panicking and failing handlers")
	}
	if !errors.Is(err, handlerErr) {
		t.Fatalf("expected handler error in join, got %v", err)
	}
}

func TestPublishSyncJoinsHandlerErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	first := errors.New("first failed")
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		return first
	}))
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	if !errors.Is(err, first) {
		t.Fatalf("expected first handler error, got %v", err)
	}
}
