package control

import (
	"sync"

	"github.com/slaclab/rouge/rougeerr"
)

// Binding adapts a single named value to the control endpoint's text
// protocol: Get renders the current value, Set parses and applies a new
// one. A binding built over a variable.Variable typically formats with
// strconv and writes through GetUint/SetUint (or the model-appropriate
// pair); the control package itself stays decoupled from variable so it
// can front any named value a caller wants to expose.
type Binding struct {
	Get func() (string, error)
	Set func(value string) error
}

// subscriber is one publish-socket connection's outgoing notification
// queue. Publish drops a notification rather than blocking the publisher
// when a subscriber falls behind, the same DropNew policy the teacher's
// frame bus applies to slow consumers.
type subscriber struct {
	id string
	ch chan string
}

// Hub is the control endpoint's shared state: the named Bindings request
// traffic reads and writes, and the set of publish-socket subscribers that
// receive a notification line whenever a bound value changes.
type Hub struct {
	mu       sync.RWMutex
	bindings map[string]Binding
	subs     map[string]*subscriber
	closed   bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		bindings: make(map[string]Binding),
		subs:     make(map[string]*subscriber),
	}
}

// Bind registers name under b, replacing any existing binding of the same
// name.
func (h *Hub) Bind(name string, b Binding) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bindings[name] = b
}

// Unbind removes name.
func (h *Hub) Unbind(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.bindings, name)
}

func (h *Hub) binding(name string) (Binding, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	b, ok := h.bindings[name]
	return b, ok
}

// Get renders name's current value as text.
func (h *Hub) Get(name string) (string, error) {
	b, ok := h.binding(name)
	if !ok {
		return "", rougeerr.NewProtocolError("unknown variable: "+name, nil)
	}
	return b.Get()
}

// Set parses value and applies it to name, then publishes a notification
// of the change to every subscribed publish connection.
func (h *Hub) Set(name, value string) error {
	b, ok := h.binding(name)
	if !ok {
		return rougeerr.NewProtocolError("unknown variable: "+name, nil)
	}
	if err := b.Set(value); err != nil {
		return err
	}
	h.Publish(name, value)
	return nil
}

// subscribe registers a new publish-socket subscriber under id, returning
// its outgoing notification channel.
func (h *Hub) subscribe(id string) chan string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan string, 64)
	h.subs[id] = &subscriber{id: id, ch: ch}
	return ch
}

// unsubscribe removes id's publish-socket subscription.
func (h *Hub) unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.subs[id]; ok {
		close(s.ch)
		delete(h.subs, id)
	}
}

// Publish broadcasts "name value" to every subscribed publish connection,
// dropping the notification for any subscriber whose queue is full rather
// than blocking the writer.
func (h *Hub) Publish(name, value string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	line := name + " " + value
	for _, s := range h.subs {
		select {
		case s.ch <- line:
		default:
		}
	}
}

// Close tears down every outstanding subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, s := range h.subs {
		close(s.ch)
		delete(h.subs, id)
	}
}
