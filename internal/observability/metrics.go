package observability

import "sync"

// Metrics provides basic in-memory counters for Discord interactions and
// lifecycle outcomes.
type Metrics struct {
	mu           sync.Mutex
	interactions map[string]int64
	errors       map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		interactions: make(map[string]int64),
		errors:       make(map[string]int64),
	}
}

// RecordInteraction increments the counter for one handled interaction.
// kind is the interaction surface (command name, component id prefix) and
// outcome is "ok", "denied" or "error".
func (m *Metrics) RecordInteraction(kind, outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactions[kind+"|"+outcome]++
}

// RecordError increments the counter for one failed operation by error code.
func (m *Metrics) RecordError(kind, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind+"|"+code]++
}

// Snapshot returns copies of the counters for the ops endpoint.
func (m *Metrics) Snapshot() (interactions, errors map[string]int64) {
	interactions = make(map[string]int64)
	errors = make(map[string]int64)
	if m == nil {
		return interactions, errors
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.interactions {
		interactions[k] = v
	}
	for k, v := range m.errors {
		errors[k] = v
	}
	return interactions, errors
}
