package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waifubot/backend/internal/domain/shared"
	"go.uber.org/zap/zaptest"
)

type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", "agg-1", time.Now()),
		Data:            "test data",
	}
}

type testHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panics     bool
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panics {
		panic("boom")
	}
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func startedBus(t *testing.T) *InMemoryEventBus {
	t.Helper()
	bus := NewInMemoryEventBus(zaptest.NewLogger(t))
	require.NoError(t, bus.Start(context.Background()))
	return bus
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := startedBus(t)
	handler := newTestHandler("exchange.accepted")
	bus.Subscribe(handler)

	event := newTestEvent("exchange.accepted")
	require.NoError(t, bus.Publish(context.Background(), event))

	require.Len(t, handler.getHandled(), 1)
	assert.Equal(t, event, handler.getHandled()[0])
}

func TestInMemoryEventBus_OnlyMatchingTypes(t *testing.T) {
	bus := startedBus(t)
	accepted := newTestHandler("exchange.accepted")
	declined := newTestHandler("exchange.declined")
	bus.Subscribe(accepted)
	bus.Subscribe(declined)

	require.NoError(t, bus.Publish(context.Background(),
		newTestEvent("exchange.accepted"),
		newTestEvent("exchange.accepted"),
		newTestEvent("exchange.declined"),
	))

	assert.Len(t, accepted.getHandled(), 2)
	assert.Len(t, declined.getHandled(), 1)
	assert.Equal(t, BusStats{Published: 3, Dispatched: 3}, bus.Stats())
}

func TestInMemoryEventBus_WildcardHandler(t *testing.T) {
	bus := startedBus(t)
	all := newTestHandler()
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("a"), newTestEvent("b")))

	assert.Len(t, all.getHandled(), 2)
}

func TestInMemoryEventBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := startedBus(t)
	failing := newTestHandler("x")
	failing.err = errors.New("audit store down")
	panicking := newTestHandler("x")
	panicking.panics = true
	healthy := newTestHandler("x")
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent("x"))

	require.NoError(t, err)
	assert.Len(t, healthy.getHandled(), 1)
	assert.Equal(t, int64(2), bus.Stats().Failed)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := startedBus(t)
	handler := newTestHandler("x")
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("x")))

	assert.Empty(t, handler.getHandled())
}

func TestInMemoryEventBus_StoppedBusDrops(t *testing.T) {
	bus := NewInMemoryEventBus(zaptest.NewLogger(t))
	handler := newTestHandler("x")
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("x")))
	assert.Empty(t, handler.getHandled())

	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("x")))
	require.NoError(t, bus.Stop(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("x")))

	assert.Len(t, handler.getHandled(), 1)
}
