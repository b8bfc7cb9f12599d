// Package stream fans domain events out to live subscribers (SSE clients).
package stream

import (
	"context"
	"sync"
	"time"

	"communities.ooo/internal/ids"
)

// Event types published by the community service.
const (
	PostCreated    = "post.created"
	ReplyCreated   = "reply.created"
	PostLiked      = "post.liked"
	PostUnliked    = "post.unliked"
	ReplyLiked     = "reply.liked"
	ReplyUnliked   = "reply.unliked"
	StatusChanged  = "moderation.status"
	TokenMinted    = "ledger.mint"
	TokenMoved     = "ledger.transfer"
	TokenBurned    = "ledger.burn"
	ProfileUpdated = "profile.updated"
)

// Event is one published change.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// NewEvent stamps data with the current time and an id minted from it.
func NewEvent(typ string, data any) Event {
	now := time.Now().UTC()
	return Event{ID: ids.NewAt(now), Type: typ, Timestamp: now, Data: data}
}

// Stream fan-outs events to all active subscribers.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

func New() *Stream {
	return &Stream{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber and returns a channel which will receive events.
// The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers. Slow subscribers miss it.
func (s *Stream) Publish(evt Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (s *Stream) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
