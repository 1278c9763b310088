package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry(t *testing.T) {
	r := NewHandlerRegistry()
	typed := newRecordingHandler()
	wild := newRecordingHandler()

	r.Register(typed, "a", "b")
	r.Register(typed, "a")
	r.Register(wild)
	r.Register(wild)

	assert.Len(t, r.GetHandlers("a"), 2)
	assert.Equal(t, typed, r.GetHandlers("a")[0])
	assert.Len(t, r.GetHandlers("c"), 1)
	assert.Len(t, r.GetAllHandlers(), 2)

	r.Unregister(typed)
	assert.Len(t, r.GetHandlers("a"), 1)
	assert.Len(t, r.GetHandlers("b"), 1)
	assert.Len(t, r.GetAllHandlers(), 1)

	r.Unregister(wild)
	assert.Empty(t, r.GetHandlers("a"))
}
