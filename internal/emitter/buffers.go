package emitter

// queue is a FIFO used for both receive and send buffers. Callers hold Emitter.mu.
type queue[T any] struct {
	items []T
}

func (q *queue[T]) push(v T) { q.items = append(q.items, v) }

func (q *queue[T]) peek() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	return q.items[0], true
}

func (q *queue[T]) pop() (T, bool) {
	v, ok := q.peek()
	if !ok {
		return v, false
	}
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true
}

func (q *queue[T]) len() int { return len(q.items) }

func (q *queue[T]) snapshot() []T {
	return append([]T(nil), q.items...)
}
