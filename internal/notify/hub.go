// Package notify provides an in-process publish/subscribe hub used to push
// notification events to connected clients. Subscriptions are explicit
// handles: opening registers a buffered channel, closing deterministically
// unregisters it. Slow consumers drop events instead of blocking publishers.
package notify

import (
	"sync"

	"go.uber.org/zap"

	"github.com/shams-connect/school-needs-api/internal/models"
)

// Event is the payload delivered to subscribers.
type Event struct {
	Notification models.Notification
}

// Subscription is an open handle onto the hub for a single user.
type Subscription struct {
	hub    *Hub
	userID string
	id     int
	events chan Event
	once   sync.Once
}

// Events exposes the receive channel. It is closed when the subscription
// (or the hub) closes.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s.userID, s.id)
		close(s.events)
	})
}

// Hub fans notification events out to per-user subscriptions.
type Hub struct {
	mu        sync.Mutex
	nextID    int
	buffer    int
	closed    bool
	subs      map[string]map[int]*Subscription
	logger    *zap.Logger
	published uint64
	dropped   uint64
}

// NewHub constructs a hub with the given per-subscriber buffer size.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		buffer: buffer,
		subs:   make(map[string]map[int]*Subscription),
		logger: logger,
	}
}

// Subscribe opens a subscription for the given user.
func (h *Hub) Subscribe(userID string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		hub:    h,
		userID: userID,
		id:     h.nextID,
		events: make(chan Event, h.buffer),
	}
	if h.closed {
		close(sub.events)
		sub.once.Do(func() {})
		return sub
	}
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[int]*Subscription)
	}
	h.subs[userID][sub.id] = sub
	return sub
}

// Publish delivers the event to every open subscription for the user.
// Delivery is best effort; a full subscriber buffer drops the event.
func (h *Hub) Publish(userID string, event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	for _, sub := range h.subs[userID] {
		select {
		case sub.events <- event:
			h.published++
		default:
			h.dropped++
			h.logger.Warn("notification event dropped",
				zap.String("user_id", userID),
				zap.String("notification_id", event.Notification.ID))
		}
	}
}

// SubscriberCount reports open subscriptions for a user.
func (h *Hub) SubscriberCount(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

// Close shuts the hub down and closes every open subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	var open []*Subscription
	for userID, subs := range h.subs {
		for _, sub := range subs {
			open = append(open, sub)
		}
		delete(h.subs, userID)
	}
	h.mu.Unlock()

	// Closing goes through each subscription's Once outside the hub lock, so
	// a concurrent Subscription.Close (Once first, then the lock in remove)
	// cannot deadlock against shutdown.
	for _, sub := range open {
		sub.Close()
	}
}

func (h *Hub) remove(userID string, id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.subs[userID]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(h.subs, userID)
		}
	}
}
