package events

import "sync"

// RingEmitter retains the most recent events in a fixed-size ring so the RPC
// layer can serve a bounded recent-events feed without unbounded growth.
type RingEmitter struct {
	mu     sync.Mutex
	buf    []Event
	next   int
	filled bool
}

// NewRingEmitter creates a ring emitter holding up to capacity events. A
// non-positive capacity defaults to 128.
func NewRingEmitter(capacity int) *RingEmitter {
	if capacity <= 0 {
		capacity = 128
	}
	return &RingEmitter{buf: make([]Event, capacity)}
}

// Emit implements the Emitter interface.
func (r *RingEmitter) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = evt
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.filled = true
	}
}

// Recent returns the retained events in emission order, oldest first.
func (r *RingEmitter) Recent() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	if r.filled {
		out = append(out, r.buf[r.next:]...)
	}
	out = append(out, r.buf[:r.next]...)
	return out
}
