package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusDispatchesInOrder(t *testing.T) {
	bus := NewEventBus(8)
	var got []KeyCode
	bus.Register(EVENT_CODE_KEY_PRESSED, func(ctx EventContext) {
		got = append(got, ctx.Data.(*KeyEvent).KeyCode)
	})

	require.NoError(t, bus.Fire(EventContext{Type: EVENT_CODE_KEY_PRESSED, Data: &KeyEvent{KeyCode: KEY_F1}}))
	require.NoError(t, bus.Fire(EventContext{Type: EVENT_CODE_KEY_PRESSED, Data: &KeyEvent{KeyCode: KEY_F2}}))
	require.NoError(t, bus.Fire(EventContext{Type: EVENT_CODE_RESIZED, Data: &SystemEvent{}}))

	assert.Empty(t, got, "events must not dispatch before Process")
	assert.Equal(t, 3, bus.Process())
	assert.Equal(t, []KeyCode{KEY_F1, KEY_F2}, got)
	assert.Equal(t, 0, bus.Process())
}

func TestEventBusOverflow(t *testing.T) {
	bus := NewEventBus(1)
	require.NoError(t, bus.Fire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT}))
	assert.Error(t, bus.Fire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT}))
}

func TestAssertPanics(t *testing.T) {
	assert.NotPanics(t, func() { Assert(true, "never") })
	assert.Panics(t, func() { Assert(false, "broken %d", 1) })
}
