package resolver

import (
	"github.com/roach88/depres/internal/config"
	"github.com/roach88/depres/internal/graph"
	"github.com/roach88/depres/internal/ir"
)

// Terminal is the consumer of target output requests.
const Terminal graph.NodeID = -1

// dependencyKind distinguishes ordinary dependencies from the request for
// the loop manager a functor runs nested under.
type dependencyKind int

const (
	kindNormal dependencyKind = iota + 1
	kindLoopManager
)

func (k dependencyKind) String() string {
	if k == kindLoopManager {
		return "loop-manager"
	}
	return "normal"
}

// queueEntry is one outstanding resolution task.
type queueEntry struct {
	quantity   ir.Quantity
	consumer   graph.NodeID // Terminal for target outputs
	kind       dependencyKind
	printme    bool
	observable *config.Observable // set for terminal requests
}

// requestQueue is a FIFO of pending requests.
//
// Resolution is single-threaded, so unlike an event queue shared with
// producers on other goroutines it needs no locking.
type requestQueue struct {
	entries []queueEntry
	head    int
}

func (q *requestQueue) push(e queueEntry) {
	q.entries = append(q.entries, e)
}

func (q *requestQueue) pop() (queueEntry, bool) {
	if q.head >= len(q.entries) {
		return queueEntry{}, false
	}
	e := q.entries[q.head]
	q.head++
	return e, true
}

func (q *requestQueue) len() int {
	return len(q.entries) - q.head
}
