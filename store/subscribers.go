// Copyright 2025 The chatkit-go Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"sync"

	"github.com/chatkit-ai/chatkit-go/types"
)

// subscribers is the notification fan-out shared by the store
// implementations. Callbacks run synchronously, outside the store's data
// locks, in registration order.
type subscribers struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(types.ChangeEvent)
}

func newSubscribers() *subscribers {
	return &subscribers{fns: make(map[int]func(types.ChangeEvent))}
}

// add registers fn and returns its deregistration handle.
func (s *subscribers) add(fn func(types.ChangeEvent)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	s.fns[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns, id)
	}
}

// notify delivers event to every registered subscriber.
func (s *subscribers) notify(event types.ChangeEvent) {
	s.mu.Lock()
	fns := make([]func(types.ChangeEvent), 0, len(s.fns))
	for id := 0; id < s.next; id++ {
		if fn, ok := s.fns[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}
