// Package queue provides the bounded heap used to keep the nearest candidates
// seen during a scan.
package queue

// Item is an entry of the queue.
type Item struct {
	// Slot is a caller-defined payload, e.g. a table slot.
	Slot uint32
	// Key breaks ties between equal distances; smaller keys rank first.
	Key int64
	// Distance is the priority of the item.
	Distance float32
}

// Before reports whether a ranks strictly before b: smaller distance first,
// then smaller key.
func Before(a, b Item) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.Key < b.Key
}

// TopK keeps the n best items (per Before) pushed into it.
// Internally it is a max-heap whose root is the worst retained item.
type TopK struct {
	n     int
	items []Item
}

// NewTopK returns a queue retaining at most n items.
// n <= 0 retains nothing.
func NewTopK(n int) *TopK {
	c := n
	if c > 1024 {
		c = 1024
	}
	if c < 0 {
		c = 0
	}
	return &TopK{n: n, items: make([]Item, 0, c)}
}

// Len returns the number of retained items.
func (q *TopK) Len() int { return len(q.items) }

// Cap returns the maximum number of retained items.
func (q *TopK) Cap() int { return q.n }

// Worst returns the worst retained item.
func (q *TopK) Worst() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	return q.items[0], true
}

// Push offers it to the queue and reports whether it was retained.
func (q *TopK) Push(it Item) bool {
	if q.n <= 0 {
		return false
	}
	if len(q.items) < q.n {
		q.items = append(q.items, it)
		q.siftUp(len(q.items) - 1)
		return true
	}
	if !Before(it, q.items[0]) {
		return false
	}
	q.items[0] = it
	q.siftDown(0)
	return true
}

// Sorted drains the queue and returns its items best-first.
func (q *TopK) Sorted() []Item {
	out := make([]Item, len(q.items))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = q.pop()
	}
	return out
}

// Reset empties the queue and makes it retain at most n items. The backing
// memory is kept for reuse.
func (q *TopK) Reset(n int) {
	q.n = n
	q.items = q.items[:0]
}

func (q *TopK) pop() Item {
	n := len(q.items)
	root := q.items[0]
	q.items[0] = q.items[n-1]
	q.items = q.items[:n-1]
	if len(q.items) > 0 {
		q.siftDown(0)
	}
	return root
}

// worse orders the max-heap: the item ranking last sits at the root.
func (q *TopK) worse(i, j int) bool {
	return Before(q.items[j], q.items[i])
}

func (q *TopK) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !q.worse(i, p) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *TopK) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		r := l + 1
		if r < n && q.worse(r, l) {
			best = r
		}
		if !q.worse(best, i) {
			return
		}
		q.items[i], q.items[best] = q.items[best], q.items[i]
		i = best
	}
}
