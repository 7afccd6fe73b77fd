package core

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/lumen/engine/containers"
)

// System internal event codes. Application should use codes beyond 255.
type EventCode uint16

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT EventCode = 0x01

	// Keyboard key pressed. Data: *KeyEvent
	EVENT_CODE_KEY_PRESSED EventCode = 0x02

	// Keyboard key released. Data: *KeyEvent
	EVENT_CODE_KEY_RELEASED EventCode = 0x03

	// Resized/resolution changed from the OS. Data: *SystemEvent
	EVENT_CODE_RESIZED EventCode = 0x08

	// The debug view selection changed. Data: *ViewEvent
	EVENT_CODE_VIEW_SELECTED EventCode = 0x09

	MAX_EVENT_CODE EventCode = 0xFF
)

// Capacity of the pending event queue drained once per frame.
const EVENT_QUEUE_CAPACITY = 1024

type EventContext struct {
	Type EventCode
	Data interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
}

type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

type ViewEvent struct {
	View int
}

type FnOnEvent func(context EventContext)

// EventBus queues events posted from callbacks and other goroutines and
// dispatches them on the thread that calls Process.
type EventBus struct {
	mu         sync.Mutex
	queue      *containers.RingQueue[EventContext]
	registered map[EventCode][]FnOnEvent
}

func NewEventBus(capacity int) *EventBus {
	return &EventBus{
		queue:      containers.NewRingQueue[EventContext](capacity),
		registered: make(map[EventCode][]FnOnEvent),
	}
}

// Register adds a listener for the given code.
func (b *EventBus) Register(code EventCode, onEvent FnOnEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registered[code] = append(b.registered[code], onEvent)
}

// Fire enqueues the event for the next Process call.
func (b *EventBus) Fire(context EventContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.queue.Enqueue(context); err != nil {
		return errors.Wrapf(err, "dropping event 0x%02x", context.Type)
	}
	return nil
}

// Process dispatches every pending event and returns how many were handled.
func (b *EventBus) Process() int {
	processed := 0
	for {
		b.mu.Lock()
		context, err := b.queue.Dequeue()
		listeners := b.registered[context.Type]
		b.mu.Unlock()
		if err != nil {
			return processed
		}
		for _, l := range listeners {
			l(context)
		}
		processed++
	}
}

// Reset drops all listeners and pending events.
func (b *EventBus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = containers.NewRingQueue[EventContext](EVENT_QUEUE_CAPACITY)
	b.registered = make(map[EventCode][]FnOnEvent)
}

var defaultBus = NewEventBus(EVENT_QUEUE_CAPACITY)

func EventRegister(code EventCode, onEvent FnOnEvent) {
	defaultBus.Register(code, onEvent)
}

func EventFire(context EventContext) {
	if err := defaultBus.Fire(context); err != nil {
		LogWarn(err.Error())
	}
}

func EventProcess() int {
	return defaultBus.Process()
}

func EventSystemShutdown() {
	defaultBus.Reset()
}
