// Package realtime fans mutation events out to SSE subscribers. The
// feed is produced by this process's own handlers after each
// successful write, so no external change-data-capture is involved.
package realtime

import (
	"sync"

	"github.com/cicotti/reportfy-api/prometheus"
)

// Change event types, mirroring the database operations.
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// SubscribableTables is the allow-list of tables clients may watch.
var SubscribableTables = map[string]bool{
	"projects":             true,
	"project_tasks":        true,
	"project_photos":       true,
	"project_weathers":     true,
	"project_informatives": true,
}

// Event is one change notification.
type Event struct {
	Type   string      `json:"type"`
	Table  string      `json:"table"`
	Schema string      `json:"schema"`
	New    interface{} `json:"new,omitempty"`
	Old    interface{} `json:"old,omitempty"`
}

// Hub distributes events to per-table subscribers. Publishing never
// blocks: a subscriber that cannot keep up has the event dropped.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers a listener for table changes. The returned
// cancel function removes the subscription and closes the channel;
// it is safe to call more than once.
func (h *Hub) Subscribe(table string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	if h.subs[table] == nil {
		h.subs[table] = make(map[chan Event]struct{})
	}
	h.subs[table][ch] = struct{}{}
	h.mu.Unlock()

	prometheus.RealtimeSubscribersGauge.Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[table], ch)
			h.mu.Unlock()
			close(ch)
			prometheus.RealtimeSubscribersGauge.Dec()
		})
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber of its table.
func (h *Hub) Publish(event Event) {
	if event.Schema == "" {
		event.Schema = "public"
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[event.Table] {
		select {
		case ch <- event:
			prometheus.RealtimeEventCounter.WithLabelValues(event.Table).Inc()
		default:
			// Slow subscriber; drop rather than block the writer.
		}
	}
}
