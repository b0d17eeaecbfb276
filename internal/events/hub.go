// Package events implements the in-process fan-out of channel messages
// to connected listeners.
package events

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mvaz/chathub/internal/model"
)

// Signal is a unit of delivery pushed to a subscriber. Exactly one of
// the payload fields is set.
type Signal struct {
	Message   *model.Message
	KeepAlive *time.Time
}

// Subscription is a live listener on one channel. Receive on C until it
// is closed; call Close exactly once when done.
type Subscription struct {
	C chan Signal

	hub       *Hub
	channelID int64
	id        int64
	once      sync.Once
}

// Close detaches the subscription from the hub and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s.channelID, s.id)
	})
}

// Hub routes published messages to all subscriptions of the target
// channel. Delivery is best effort: a subscriber whose buffer is full
// gets dropped so one slow client cannot stall the rest.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int64]map[int64]*Subscription
	nextID int64
	buffer int
	logger *zap.Logger
	onDrop func()

	done chan struct{}
	once sync.Once
}

func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[int64]map[int64]*Subscription),
		buffer: buffer,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// OnDrop registers a callback invoked whenever a slow subscriber is
// dropped. Set before any Subscribe call.
func (h *Hub) OnDrop(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDrop = fn
}

// Subscribe registers a listener on the channel and returns its
// subscription.
func (h *Hub) Subscribe(channelID int64) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		C:         make(chan Signal, h.buffer),
		hub:       h,
		channelID: channelID,
		id:        h.nextID,
	}
	if h.subs[channelID] == nil {
		h.subs[channelID] = make(map[int64]*Subscription)
	}
	h.subs[channelID][sub.id] = sub
	return sub
}

func (h *Hub) unsubscribe(channelID, id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(channelID, id)
}

func (h *Hub) removeLocked(channelID, id int64) {
	group, ok := h.subs[channelID]
	if !ok {
		return
	}
	sub, ok := group[id]
	if !ok {
		return
	}
	delete(group, id)
	if len(group) == 0 {
		delete(h.subs, channelID)
	}
	close(sub.C)
}

// PublishMessage delivers msg to every subscriber of the channel.
func (h *Hub) PublishMessage(channelID int64, msg model.Message) {
	h.broadcast(channelID, Signal{Message: &msg})
}

func (h *Hub) broadcast(channelID int64, sig Signal) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sub := range h.subs[channelID] {
		select {
		case sub.C <- sig:
		default:
			h.logger.Warn("dropping slow subscriber",
				zap.Int64("channelID", channelID), zap.Int64("subscriptionID", id))
			h.removeLocked(channelID, id)
			if h.onDrop != nil {
				h.onDrop()
			}
		}
	}
}

// RunKeepAlive periodically pushes a keep-alive signal to every
// subscriber so idle connections stay open. Blocks until Shutdown.
func (h *Hub) RunKeepAlive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case t := <-ticker.C:
			h.keepAlive(t)
		}
	}
}

func (h *Hub) keepAlive(t time.Time) {
	h.mu.RLock()
	channels := make([]int64, 0, len(h.subs))
	for id := range h.subs {
		channels = append(channels, id)
	}
	h.mu.RUnlock()

	for _, id := range channels {
		h.broadcast(id, Signal{KeepAlive: &t})
	}
}

// SubscriberCount reports the number of live subscriptions on a channel.
func (h *Hub) SubscriberCount(channelID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[channelID])
}

// Shutdown stops keep-alives and closes every subscription.
func (h *Hub) Shutdown() {
	h.once.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()
	for channelID, group := range h.subs {
		for id := range group {
			h.removeLocked(channelID, id)
		}
	}
}
