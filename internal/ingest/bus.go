package ingest

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rpggio/traceback/internal/source"
)

// Kind identifies a progress message.
type Kind string

const (
	KindStarted         Kind = "started"
	KindProgress        Kind = "progress"
	KindSourceCompleted Kind = "source_completed"
	KindCompleted       Kind = "completed"
	KindFailed          Kind = "failed"
	KindCancelled       Kind = "cancelled"
)

// Status is the state of one source within a run.
type Status string

const (
	StatusStarting   Status = "starting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Message is one entry on the progress stream. Only the fields relevant to
// Kind are set.
type Message struct {
	Kind          Kind        `json:"type"`
	Timestamp     time.Time   `json:"timestamp"`
	Source        source.Name `json:"source,omitempty"`
	Status        Status      `json:"status,omitempty"`
	Message       string      `json:"message,omitempty"`
	NewEvents     int         `json:"new_events"`
	UpdatedEvents int         `json:"updated_events"`
	TotalNew      int         `json:"total_new"`
	TotalUpdated  int         `json:"total_updated"`
	DurationMS    int64       `json:"duration_ms,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// DefaultBufferSize is the per-subscriber channel capacity.
const DefaultBufferSize = 64

// Bus fans progress messages out to subscribers. Publish never blocks: a
// subscriber whose channel is full misses the message. There is no replay.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]chan Message
	bufferSize  int
}

// NewBus creates a bus whose subscriber channels hold bufferSize messages.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Bus{subscribers: make(map[string]chan Message), bufferSize: bufferSize}
}

// Subscribe registers a subscriber. The returned func unsubscribes and
// closes the channel; it is safe to call more than once.
func (b *Bus) Subscribe() (<-chan Message, func()) {
	id := uuid.NewString()
	ch := make(chan Message, b.bufferSize)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish sends msg to every subscriber in emission order.
func (b *Bus) Publish(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Subscribers returns the number of active subscribers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
