package sync

import "sync/atomic"

// waiterQueue is a FIFO waiter registry on top of CellArray. Enqueue and
// dequeue are serialized by the owning structure's lock; cancellation of an
// individual waiter happens lock-free through the cell's cancellation handle,
// which is what select cleanup hooks call.
type waiterQueue struct {
	arr    *CellArray
	enq    atomic.Int64
	cutoff *Cutoff
}

func newWaiterQueue() *waiterQueue {
	arr := NewCellArray()
	return &waiterQueue{
		arr:    arr,
		cutoff: arr.NewCutoff(),
	}
}

// enqueue stores w at the next index and returns the cancellation handle for
// its cell. Each index is claimed by exactly one enqueuer and dequeue never
// touches cells at or past the enqueue counter, so the cell is always empty.
func (q *waiterQueue) enqueue(w any) *CancelHandle {
	i := q.enq.Add(1) - 1

	cell := q.arr.FindCell(q.arr.Start(), i).Deref()
	if !cell.TryPut(w) {
		panic("waiter queue: fresh cell not empty")
	}

	return cell.Canceller()
}

// dequeue claims the oldest live waiter, skipping cancelled cells and moving
// the cutoff past them. It returns false if no waiter is registered.
func (q *waiterQueue) dequeue() (any, bool) {
	h := q.cutoff.GetPointer()

	for {
		i := h.Index()
		if i >= q.enq.Load() {
			q.cutoff.MoveForward(h)
			return nil, false
		}

		ch := q.arr.FindCell(h, i)
		if ch.Index() == i {
			if w, ok := ch.Deref().TryTake(); ok {
				q.cutoff.MoveForward(q.arr.FindCell(ch, i+1))
				return w, true
			}
		}

		h = q.arr.FindCell(ch, ch.Index()+1)
	}
}
