package accountevent

// queue is the FIFO used to walk trace edges breadth-first.
type queue[T any] struct {
	items []T
}

func newQueue[T any](items ...T) *queue[T] {
	return &queue[T]{items: append([]T(nil), items...)}
}

func (q *queue[T]) Push(item T) {
	q.items = append(q.items, item)
}

// Pop removes the first item. It returns false when the queue is empty.
func (q *queue[T]) Pop() (item T, ok bool) {
	if len(q.items) == 0 {
		return item, false
	}
	item = q.items[0]
	q.items = q.items[1:]
	return item, true
}

func (q *queue[T]) IsEmpty() bool {
	return len(q.items) == 0
}
