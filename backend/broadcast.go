package backend

import (
	"sort"
	"sync"
)

// Broadcaster fans change notifications out to subscribers.
// Stores embed it to implement Store.Subscribe.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(keys []string)
}

// Subscribe registers fn and returns a function that removes it
func (b *Broadcaster) Subscribe(fn func(keys []string)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[int]func(keys []string))
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish notifies every subscriber with the sorted set of changed keys
func (b *Broadcaster) Publish(keys []string) {
	if len(keys) == 0 {
		return
	}
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	b.mu.Lock()
	fns := make([]func([]string), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(sorted)
	}
}

// MapKeys returns the keys of a value batch
func MapKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	return keys
}
