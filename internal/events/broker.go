// Package events carries row-change notifications from the store drivers to
// content subscriptions.
package events

import (
	"sync"
)

// Op names the kind of row change.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
	// OpResync tells subscribers that changes may have been missed.
	OpResync Op = "RESYNC"
)

// Change is the minimum data a subscriber needs to decide whether to re-fetch.
// Only ids are carried; subscribers query the full rows themselves.
type Change struct {
	Op     Op     `json:"op"`
	UserID string `json:"user_id"`
	ItemID string `json:"id"`
}

// Publisher is implemented by anything that can emit changes.
type Publisher interface {
	Publish(c Change)
}

// Source hands out per-user change streams.
type Source interface {
	Subscribe(userID string) (<-chan Change, func())
}

// Broker is an in-process fan-out keyed by user id. Each subscriber has a
// one-slot buffer: when it is full the new change is dropped, since a pending
// signal already means "re-fetch".
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{}
}

type subscriber struct {
	ch   chan Change
	once sync.Once
}

// NewBroker returns an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[*subscriber]struct{})}
}

// Publish delivers c to every subscriber of c.UserID without blocking.
func (b *Broker) Publish(c Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs[c.UserID] {
		select {
		case s.ch <- c:
		default:
		}
	}
}

// Broadcast delivers c to every subscriber regardless of user. The change
// feed uses it after a reconnect, when notifications may have been lost.
func (b *Broker) Broadcast(c Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, set := range b.subs {
		for s := range set {
			select {
			case s.ch <- c:
			default:
			}
		}
	}
}

// Subscribe registers interest in one user's rows. The returned cancel
// function removes the subscription and closes the channel; it is idempotent.
func (b *Broker) Subscribe(userID string) (<-chan Change, func()) {
	s := &subscriber{ch: make(chan Change, 1)}

	b.mu.Lock()
	set, ok := b.subs[userID]
	if !ok {
		set = make(map[*subscriber]struct{})
		b.subs[userID] = set
	}
	set[s] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		s.once.Do(func() {
			b.mu.Lock()
			delete(b.subs[userID], s)
			if len(b.subs[userID]) == 0 {
				delete(b.subs, userID)
			}
			b.mu.Unlock()
			close(s.ch)
		})
	}
	return s.ch, cancel
}

// Subscribers returns the number of live subscriptions for userID.
func (b *Broker) Subscribers(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[userID])
}
