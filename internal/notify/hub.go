// Package notify fans state changes out to real-time subscribers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"eventsphere/internal/logger"
	"eventsphere/internal/metrics"
)

// Publisher is the fan-out seam handed to services. Publish never blocks on
// slow subscribers and never reports delivery failures.
type Publisher interface {
	Publish(channel, event string, payload interface{})
}

type Message struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func ExpoChannel(expoID string) string { return "expo_" + expoID }

func UserChannel(userID string) string { return "user_" + userID }

const defaultBuffer = 16

// Hub is an in-process topic map: channel name -> subscriptions.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	log    *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: defaultBuffer,
		log:    log,
	}
}

// Subscription is one client's mailbox, joined to any number of channels.
// It is closed when the context passed to Subscribe ends.
type Subscription struct {
	hub      *Hub
	ch       chan Message
	channels map[string]struct{}
	closed   bool
}

func (h *Hub) Subscribe(ctx context.Context, channels ...string) *Subscription {
	s := &Subscription{
		hub:      h,
		ch:       make(chan Message, h.buffer),
		channels: make(map[string]struct{}),
	}
	for _, c := range channels {
		s.Join(c)
	}
	metrics.Subscribers.Inc()

	go func() {
		<-ctx.Done()
		h.remove(s)
	}()
	return s
}

func (s *Subscription) C() <-chan Message { return s.ch }

func (s *Subscription) Join(channel string) {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.closed || channel == "" {
		return
	}
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[*Subscription]struct{})
	}
	h.subs[channel][s] = struct{}{}
	s.channels[channel] = struct{}{}
}

func (s *Subscription) Leave(channel string) {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detach(s, channel)
}

// Channels returns the channels s currently belongs to.
func (s *Subscription) Channels() []string {
	h := s.hub
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(s.channels))
	for c := range s.channels {
		out = append(out, c)
	}
	return out
}

func (h *Hub) detach(s *Subscription, channel string) {
	delete(s.channels, channel)
	if set, ok := h.subs[channel]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, channel)
		}
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.closed {
		return
	}
	for c := range s.channels {
		h.detach(s, c)
	}
	s.closed = true
	close(s.ch)
	metrics.Subscribers.Dec()
}

func (h *Hub) Publish(channel, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("NOTIFY", fmt.Sprintf("Failed to serialise %s for %s: %v", event, channel, err))
		return
	}
	h.Deliver(Message{Channel: channel, Event: event, Payload: data})
}

// Deliver hands msg to every subscriber of msg.Channel without blocking.
// Sends happen under the read lock so a concurrent remove cannot close a
// mailbox mid-send.
func (h *Hub) Deliver(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered, dropped := 0, 0
	for s := range h.subs[msg.Channel] {
		select {
		case s.ch <- msg:
			delivered++
		default:
			dropped++
		}
	}

	metrics.NotificationsDelivered.WithLabelValues(msg.Event).Add(float64(delivered))
	if dropped > 0 {
		metrics.NotificationsDropped.WithLabelValues(msg.Event).Add(float64(dropped))
		h.log.Warn("NOTIFY", fmt.Sprintf("Dropped %s for %d slow subscriber(s) on %s", msg.Event, dropped, msg.Channel))
	}
	h.log.LogNotify(msg.Channel, msg.Event, fmt.Sprintf("delivered to %d subscriber(s)", delivered))
}

// ClientCount returns the number of subscriptions joined to channel.
func (h *Hub) ClientCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[channel])
}
