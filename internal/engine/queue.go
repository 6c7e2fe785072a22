package engine

import (
	"github.com/wkmp/ap/internal/settings"
)

// queue holds the ordered list of passages: at most one current, at
// most one next, then an arbitrary tail of queued passages. Grounded
// on the teacher's playlist slice handling in cmd/player.go,
// generalized to the three-role current/next/queued view spec §4.10
// needs for crossfade lookahead.
type queue struct {
	items []settings.Passage
}

func newQueue() *queue { return &queue{} }

func (q *queue) enqueue(p settings.Passage) {
	q.items = append(q.items, p)
}

// remove deletes a passage by id, wherever it sits in the queue.
func (q *queue) remove(queueEntryID string) bool {
	for i, it := range q.items {
		if it.QueueEntryID == queueEntryID {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// reorder moves a passage to newIndex, clamped to the queue bounds.
func (q *queue) reorder(queueEntryID string, newIndex int) bool {
	for i, it := range q.items {
		if it.QueueEntryID == queueEntryID {
			q.items = append(q.items[:i], q.items[i+1:]...)
			if newIndex < 0 {
				newIndex = 0
			}
			if newIndex > len(q.items) {
				newIndex = len(q.items)
			}
			q.items = append(q.items[:newIndex], append([]settings.Passage{it}, q.items[newIndex:]...)...)
			return true
		}
	}
	return false
}

// current returns the passage currently playing, if any.
func (q *queue) current() *settings.Passage {
	if len(q.items) == 0 {
		return nil
	}
	return &q.items[0]
}

// next returns the passage queued to play after current, if any.
func (q *queue) next() *settings.Passage {
	if len(q.items) < 2 {
		return nil
	}
	return &q.items[1]
}

// prefetchTail returns up to n passages beyond current/next, for
// Prefetch-priority decode submission.
func (q *queue) prefetchTail(n int) []settings.Passage {
	if len(q.items) <= 2 {
		return nil
	}
	tail := q.items[2:]
	if len(tail) > n {
		tail = tail[:n]
	}
	return tail
}

// advance drops the current passage, promoting next to current.
func (q *queue) advance() {
	if len(q.items) == 0 {
		return
	}
	q.items = q.items[1:]
}

func (q *queue) isEmpty() bool { return len(q.items) == 0 }

func (q *queue) snapshot() []settings.Passage {
	out := make([]settings.Passage, len(q.items))
	copy(out, q.items)
	return out
}
