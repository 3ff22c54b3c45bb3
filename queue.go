package sched

// A fifo is a first-in-first-out queue backed by two slices.
// Pop drains head; when head is exhausted, head and tail are swapped so
// that allocations are amortized across pushes.
type fifo[E any] struct {
	head, tail []E
}

func (q *fifo[E]) Empty() bool {
	return len(q.head) == 0
}

func (q *fifo[E]) Push(v E) {
	if len(q.head) == 0 {
		q.head = append(q.head, v)
		return
	}
	q.tail = append(q.tail, v)
}

func (q *fifo[E]) Pop() (v E) {
	q.head[0], v = v, q.head[0]

	if len(q.head) > 1 {
		q.head = q.head[1:]
	} else {
		q.head, q.tail = q.tail, q.head[:0]
	}

	return v
}
