package scheduler

import (
	"sync/atomic"

	audio "github.com/onewordstudios/sweetspace-sub007"
)

// entry is one scheduled (node, loops) pair in the append-only log.
type entry struct {
	node  audio.Node
	loops int32
	next  atomic.Pointer[entry]
}

// nodeQueue is the single-producer single-consumer playlist log. The
// control goroutine appends at last; the real-time goroutine consumes
// by advancing divide. Entries between first and divide have been
// consumed and are unlinked lazily on the next push, never while the
// consumer is between them. Neither side ever blocks the other.
type nodeQueue struct {
	first  *entry // producer-owned trim cursor
	divide atomic.Pointer[entry]
	last   atomic.Pointer[entry]
}

func newNodeQueue() *nodeQueue {
	q := &nodeQueue{}
	// Dummy separator so divide always has a predecessor.
	sep := &entry{}
	q.first = sep
	q.divide.Store(sep)
	q.last.Store(sep)
	return q
}

// push adds a node to the end of the log and trims consumed entries.
// Control goroutine only.
func (q *nodeQueue) push(node audio.Node, loops int32) {
	e := &entry{node: node, loops: loops}
	last := q.last.Load()
	last.next.Store(e)
	q.last.Store(e)

	// Release everything the consumer has moved past.
	divide := q.divide.Load()
	for q.first != divide {
		q.first = q.first.next.Load()
	}
}

// pop removes the front pending entry. Real-time goroutine only.
func (q *nodeQueue) pop() (audio.Node, int32, bool) {
	div := q.divide.Load()
	if div == q.last.Load() {
		return nil, 0, false
	}
	next := div.next.Load()
	q.divide.Store(next)
	return next.node, next.loops, true
}

// peek looks at the front pending entry without consuming it.
func (q *nodeQueue) peek() (audio.Node, int32, bool) {
	div := q.divide.Load()
	if div == q.last.Load() {
		return nil, 0, false
	}
	next := div.next.Load()
	return next.node, next.loops, true
}

// tail returns the pending nodes in order. Safe to call concurrently
// with the consumer as long as push stays on one goroutine.
func (q *nodeQueue) tail() []audio.Node {
	div := q.divide.Load()
	if div == q.last.Load() {
		return nil
	}
	var nodes []audio.Node
	for e := div.next.Load(); e != nil; e = e.next.Load() {
		nodes = append(nodes, e.node)
	}
	return nodes
}

// clear consumes every pending entry. Unlinking is deferred to the
// next push.
func (q *nodeQueue) clear() {
	for q.divide.Load() != q.last.Load() {
		div := q.divide.Load()
		q.divide.Store(div.next.Load())
	}
}
