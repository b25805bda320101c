package transport

import "sync"

type Handler func(Message)

// dispatcher routes decoded messages: wildcard observers first, in
// registration order, then the single handler registered for the kind.
type dispatcher struct {
	mu        sync.RWMutex
	handlers  map[Kind]Handler
	observers []Handler
}

func newDispatcher() *dispatcher {
	return &dispatcher{handlers: make(map[Kind]Handler)}
}

func (d *dispatcher) register(kind Kind, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if kind == KindAny {
		if handler != nil {
			d.observers = append(d.observers, handler)
		}
		return
	}

	if handler == nil {
		delete(d.handlers, kind)
		return
	}
	d.handlers[kind] = handler
}

func (d *dispatcher) dispatch(message Message) {
	d.mu.RLock()
	observers := d.observers
	handler := d.handlers[message.Kind()]
	d.mu.RUnlock()

	for _, observer := range observers {
		observer(message)
	}
	if handler != nil {
		handler(message)
	}
}

func (d *dispatcher) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = make(map[Kind]Handler)
	d.observers = nil
}
