package audio

import "sync/atomic"

// Edge is a single-slot attach point from a consumer node to at most
// one producer. The slot is swapped atomically, so a concurrent Read
// in the real-time goroutine always observes either the old or the new
// producer, never a torn value. The consumer does not own the producer
// exclusively; Exchange hands the displaced node back to the caller,
// who is responsible for whatever happens to it next. Disposal never
// belongs inside the real-time read path.
type Edge struct {
	slot atomic.Pointer[Node]
}

// Load returns the attached node, or nil. Wait-free.
func (e *Edge) Load() Node {
	if p := e.slot.Load(); p != nil {
		return *p
	}
	return nil
}

// Exchange installs n (which may be nil) and returns the displaced
// node, or nil if the slot was empty.
func (e *Edge) Exchange(n Node) Node {
	var p *Node
	if n != nil {
		p = &n
	}
	if old := e.slot.Swap(p); old != nil {
		return *old
	}
	return nil
}
