package registry

import (
	"sync"

	"messenger-be/internal/domain"
	"messenger-be/internal/metrics"
)

// Stream is the non-owning handle the registry fans out to. The owning
// session remains responsible for the stream's lifecycle; a send failure here
// is reconciled by that session, never by the registry.
type Stream interface {
	Send(data []byte) error
}

// Registry maps chat ids to the set of currently connected streams for that
// chat. It owns no persistent state and is rebuilt empty on restart. A single
// Registry value is constructed at startup and injected into every session.
type Registry struct {
	mu      sync.RWMutex
	chats   map[int64]map[Stream]struct{}
	metrics *metrics.Metrics
}

// New constructs an empty registry. m may be nil.
func New(m *metrics.Metrics) *Registry {
	return &Registry{
		chats:   make(map[int64]map[Stream]struct{}),
		metrics: m,
	}
}

// Register adds stream to the chat's set, creating the set if absent.
func (r *Registry) Register(chatID int64, s Stream) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.chats[chatID]
	if !ok {
		set = make(map[Stream]struct{})
		r.chats[chatID] = set
	}
	set[s] = struct{}{}
}

// Unregister removes stream from the chat's set. Removing the last stream
// drops the chat entry entirely, bounding memory to active chats. Safe to
// call for a stream that was never registered.
func (r *Registry) Unregister(chatID int64, s Stream) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.chats[chatID]
	if !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(r.chats, chatID)
	}
}

// Broadcast serializes v once and delivers it to every stream currently
// registered for the chat, the sender's own stream included. The set is
// snapshotted under the lock and sends happen outside it, so a slow stream
// never blocks registry mutations. One failed send does not stop the rest.
// Returns the number of successful deliveries.
func (r *Registry) Broadcast(chatID int64, v any) (int, error) {
	data, err := domain.Encode(v)
	if err != nil {
		return 0, err
	}

	r.mu.RLock()
	set := r.chats[chatID]
	streams := make([]Stream, 0, len(set))
	for s := range set {
		streams = append(streams, s)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, s := range streams {
		if err := s.Send(data); err != nil {
			r.metrics.SendFailed()
			continue
		}
		delivered++
	}
	r.metrics.Delivered(delivered)
	return delivered, nil
}

// ActiveStreams returns the number of streams registered for a chat.
func (r *Registry) ActiveStreams(chatID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.chats[chatID])
}

// ActiveChats returns the number of chats with at least one stream.
func (r *Registry) ActiveChats() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.chats)
}
