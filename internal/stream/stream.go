// Package stream fans shift events out to live subscribers.
package stream

import (
	"context"
	"sync"

	"nurseconnect.org/internal/shifts"
)

const subscriberBuffer = 16

// Stream delivers every published event to all active subscribers.
type Stream struct {
	mu     sync.RWMutex
	subs   map[int]chan shifts.Event
	next   int
	closed bool
}

var _ shifts.Publisher = (*Stream)(nil)

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan shifts.Event)}
}

// Subscribe registers a subscriber and returns a channel which will receive events.
// The channel is closed when ctx ends or the stream is closed.
func (s *Stream) Subscribe(ctx context.Context) <-chan shifts.Event {
	ch := make(chan shifts.Event, subscriberBuffer)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch
	}
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.remove(id)
	}()

	return ch
}

func (s *Stream) remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

// Publish fans the event out without blocking; full subscribers miss it.
func (s *Stream) Publish(evt shifts.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (s *Stream) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Close ends every subscription. Later subscribers receive a closed channel.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
