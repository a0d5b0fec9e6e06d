// Package session fans authentication state changes out to interested
// parties: the audit recorder and clients following the event stream.
package session

import (
	"context"
	"sync"

	"github.com/joshua-takyi/evently/internal/models"
)

const defaultBuffer = 16

type Publisher interface {
	Publish(event models.SessionEvent)
}

// Broker is an in-process pub/sub hub. Publish never blocks: a subscriber
// whose buffer is full misses the event.
type Broker struct {
	mu     sync.RWMutex
	subs   map[uint64]chan models.SessionEvent
	next   uint64
	buffer int
	closed bool
}

func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Broker{
		subs:   make(map[uint64]chan models.SessionEvent),
		buffer: buffer,
	}
}

func (b *Broker) Publish(event models.SessionEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe returns a channel of events that is closed once ctx is done or
// the broker is closed.
func (b *Broker) Subscribe(ctx context.Context) <-chan models.SessionEvent {
	ch := make(chan models.SessionEvent, b.buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch
	}
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.unsubscribe(id)
	}()
	return ch
}

func (b *Broker) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
