package telephony

import "sync"

// Outcome is a call's terminal result as delivered by the provider.
type Outcome struct {
	Status      string
	DurationSec *int
}

// StatusHub routes provider-confirmed call outcomes to whoever is waiting
// on them. The emergency orchestrator registers a watch before placing each
// attempt; the webhook path resolves it. Outcomes for calls nobody watches
// are dropped.
type StatusHub struct {
	mu       sync.Mutex
	watchers map[string]chan Outcome
}

func NewStatusHub() *StatusHub {
	return &StatusHub{watchers: make(map[string]chan Outcome)}
}

// Watch registers interest in a call's terminal outcome. The returned
// channel receives at most one value.
func (h *StatusHub) Watch(callID string) <-chan Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Outcome, 1)
	h.watchers[callID] = ch
	return ch
}

// Resolve delivers a call's outcome to its watcher, if any.
func (h *StatusHub) Resolve(callID string, out Outcome) {
	h.mu.Lock()
	ch, ok := h.watchers[callID]
	if ok {
		delete(h.watchers, callID)
	}
	h.mu.Unlock()

	if ok {
		ch <- out
	}
}

// Cancel drops a watch whose waiter gave up (ring timeout). A late outcome
// for the call is then discarded.
func (h *StatusHub) Cancel(callID string) {
	h.mu.Lock()
	delete(h.watchers, callID)
	h.mu.Unlock()
}
