package pipeline

import "sync"

// Feed fans inbound pipeline events out to subscribers. Mirrors the
// subscribe/cancel shape used elsewhere in the gateway.
type Feed struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[int]chan Event)}
}

// Publish delivers ev to every subscriber. Slow subscribers drop the
// oldest buffered event rather than block the pipeline.
func (f *Feed) Publish(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- ev:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a buffered subscription; the returned cancel func
// must be called to release it.
func (f *Feed) Subscribe() (<-chan Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	ch := make(chan Event, 32)
	f.subs[id] = ch
	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}
