package mqtt

import (
	"log"
	"sync"
)

// Handler consumes one inbound message. Handlers must not block for long:
// they run on the broker client's receive goroutine.
type Handler func(topic string, payload []byte)

type subscription struct {
	pattern Pattern
	handler Handler
}

// Router holds the compiled subscriptions and fans every inbound message out
// from a single dispatch point. Registration happens during startup; after
// that the router is read-mostly.
type Router struct {
	mu   sync.RWMutex
	subs []subscription
}

func NewRouter() *Router {
	return &Router{}
}

// Register compiles the filter and adds the handler. The filter is also what
// gets subscribed at the broker, so broker-side and local matching agree.
func (r *Router) Register(filter string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, subscription{pattern: CompilePattern(filter), handler: h})
}

// Filters returns every registered filter, for broker subscription.
func (r *Router) Filters() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	filters := make([]string, 0, len(r.subs))
	for _, s := range r.subs {
		filters = append(filters, s.pattern.String())
	}
	return filters
}

// Dispatch delivers the message to every matching handler. A message that
// matches nothing is dropped with a log line rather than an error: stray
// retained messages on shared brokers are routine.
func (r *Router) Dispatch(topic string, payload []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := false
	for _, s := range r.subs {
		if s.pattern.Matches(topic) {
			matched = true
			s.handler(topic, payload)
		}
	}
	if !matched {
		log.Printf("mqtt: no handler for topic %s", topic)
	}
}
