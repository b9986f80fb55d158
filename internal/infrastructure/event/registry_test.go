package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry_Register(t *testing.T) {
	r := NewHandlerRegistry()
	h1 := newTestHandler()
	h2 := newTestHandler()
	wildcard := newTestHandler()

	r.Register(h1, "a", "b")
	r.Register(h2, "a")
	r.Register(wildcard)

	handlers := r.GetHandlers("a")
	assert.Len(t, handlers, 3)
	assert.Same(t, h1, handlers[0])
	assert.Same(t, wildcard, handlers[2])

	assert.Len(t, r.GetHandlers("b"), 2)
	assert.Len(t, r.GetHandlers("unknown"), 1)
	assert.Equal(t, 3, r.Count())
}

func TestHandlerRegistry_RegisterTwiceIsIgnored(t *testing.T) {
	r := NewHandlerRegistry()
	h := newTestHandler()

	r.Register(h, "a")
	r.Register(h, "a")

	assert.Len(t, r.GetHandlers("a"), 1)
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	r := NewHandlerRegistry()
	h1 := newTestHandler()
	h2 := newTestHandler()
	r.Register(h1, "a", "b")
	r.Register(h2, "a")
	r.Register(h1)

	r.Unregister(h1)

	assert.Equal(t, 1, r.Count())
	assert.Len(t, r.GetHandlers("a"), 1)
	assert.Empty(t, r.GetHandlers("b"))
}

func TestHandlerRegistry_GetHandlersReturnsCopy(t *testing.T) {
	r := NewHandlerRegistry()
	h := newTestHandler()
	r.Register(h, "a")

	handlers := r.GetHandlers("a")
	handlers[0] = nil

	assert.Same(t, h, r.GetHandlers("a")[0])
}
