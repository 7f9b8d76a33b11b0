package sync

import (
	"sync/atomic"

	"github.com/rendezlib/go-rendez/internal/errors"
)

const (
	segmentSizeShift = 6
	segmentSize      = 1 << segmentSizeShift
	segmentIndexMask = segmentSize - 1
)

type cellKind uint8

const (
	cellPayload cellKind = iota
	cellTaken
	cellCancelled
	cellBroken
)

type cellState struct {
	kind cellKind
	v    any
}

// Shared terminal markers. Payload states are allocated per cell.
var (
	takenState     = &cellState{kind: cellTaken}
	cancelledState = &cellState{kind: cellCancelled}
	brokenState    = &cellState{kind: cellBroken}
)

// Cell is a single slot of a CellArray. It starts empty and only ever moves
// forward: empty -> payload -> taken, empty -> broken, or
// {empty, payload} -> cancelled. A non-empty cell never becomes empty again.
type Cell struct {
	state atomic.Pointer[cellState]
}

// TryPut stores the owner's payload into an empty cell. It fails if the cell
// was poisoned by a counterparty that raced past it.
func (c *Cell) TryPut(v any) bool {
	return c.state.CompareAndSwap(nil, &cellState{kind: cellPayload, v: v})
}

// TryTake claims the payload for the counterparty. It fails if the cell is
// empty, cancelled or already claimed.
func (c *Cell) TryTake() (any, bool) {
	for {
		s := c.state.Load()
		if s == nil || s.kind != cellPayload {
			return nil, false
		}

		if c.state.CompareAndSwap(s, takenState) {
			return s.v, true
		}
	}
}

// Poison marks an empty cell as unusable so a late owner retries elsewhere.
func (c *Cell) Poison() bool {
	return c.state.CompareAndSwap(nil, brokenState)
}

func (c *Cell) Cancelled() bool {
	s := c.state.Load()
	return s != nil && s.kind == cellCancelled
}

// Canceller returns the cell's cancellation handle. The handle is an
// exclusive, single-use permission; obtaining more than one handle for a cell
// is a usage error on the caller's side.
func (c *Cell) Canceller() *CancelHandle {
	return &CancelHandle{cell: c}
}

// CancelHandle marks a cell cancelled exactly once.
type CancelHandle struct {
	cell *Cell
	used atomic.Bool
}

// Cancel transitions the cell to cancelled and reports whether this call did
// the transition. It returns false if a counterparty claimed or poisoned the
// cell first. Calling Cancel twice on the same handle is a usage error and
// panics.
func (h *CancelHandle) Cancel() bool {
	if h.used.Swap(true) {
		panic(errors.NewUsageError("cell cancellation handle used twice"))
	}

	for {
		s := h.cell.state.Load()
		if s != nil && s.kind != cellPayload {
			// taken, broken or cancelled through another handle
			return false
		}

		if h.cell.state.CompareAndSwap(s, cancelledState) {
			return true
		}
	}
}

type segment struct {
	id    int64
	cells [segmentSize]Cell
	next  atomic.Pointer[segment]
}

// CellArray is a conceptually unbounded, densely indexed array of cells.
// Storage grows in fixed-size segments allocated lazily on first touch, so
// memory cost is proportional to the highest index ever touched. Advancing a
// cutoff past a fully cancelled prefix unlinks the segments before it.
type CellArray struct {
	head atomic.Pointer[segment]
	tail atomic.Pointer[segment]
}

func NewCellArray() *CellArray {
	s := &segment{}
	a := &CellArray{}
	a.head.Store(s)
	a.tail.Store(s)
	return a
}

// CellHandle addresses one cell of a CellArray. The zero value is not valid;
// handles originate from Start, FindCell or a cutoff.
type CellHandle struct {
	seg   *segment
	index int64
}

func (h CellHandle) Index() int64 {
	return h.index
}

// Deref resolves the handle to the cell's memory location. The pointer is
// stable for the cell's lifetime.
func (h CellHandle) Deref() *Cell {
	return &h.seg.cells[h.index&segmentIndexMask]
}

// Start returns a handle to the earliest still-reachable cell.
func (a *CellArray) Start() CellHandle {
	s := a.head.Load()
	return CellHandle{seg: s, index: s.id << segmentSizeShift}
}

// FindCell returns a handle to the cell at index, or to the first reachable
// cell after it if the segment holding index has already been unlinked.
// The result index is monotonic: it is never smaller than either the request
// or the starting handle.
func (a *CellArray) FindCell(start CellHandle, index int64) CellHandle {
	seg := start.seg
	if seg == nil {
		seg = a.head.Load()
	}

	if index < start.index {
		index = start.index
	}

	id := index >> segmentSizeShift
	if seg.id > id {
		// requested cell sits in an unlinked prefix
		id = seg.id
		index = id << segmentSizeShift
	}

	for seg.id < id {
		seg = a.nextSegment(seg)
	}

	return CellHandle{seg: seg, index: index}
}

func (a *CellArray) nextSegment(s *segment) *segment {
	for {
		if next := s.next.Load(); next != nil {
			return next
		}

		next := &segment{id: s.id + 1}
		if s.next.CompareAndSwap(nil, next) {
			a.bumpTail(next)
			return next
		}
	}
}

func (a *CellArray) bumpTail(s *segment) {
	for {
		t := a.tail.Load()
		if t.id >= s.id || a.tail.CompareAndSwap(t, s) {
			return
		}
	}
}

// NewCutoff returns a cutoff positioned at the array start.
func (a *CellArray) NewCutoff() *Cutoff {
	c := &Cutoff{arr: a}
	h := a.Start()
	c.handle.Store(&h)
	return c
}

// Cutoff is a movable lower bound into a CellArray. Its index never
// decreases; consumers use it to skip past fully cancelled prefixes in
// amortized constant time.
type Cutoff struct {
	arr    *CellArray
	handle atomic.Pointer[CellHandle]
}

// GetPointer snapshots the current cutoff position.
func (c *Cutoff) GetPointer() CellHandle {
	return *c.handle.Load()
}

// MoveForward advances the cutoff to at least min's index. It returns false
// if a concurrent advance already moved past min, which is not an error.
// Segments before the new position become unreachable.
func (c *Cutoff) MoveForward(min CellHandle) bool {
	for {
		cur := c.handle.Load()
		if cur.index >= min.index {
			return false
		}

		if c.handle.CompareAndSwap(cur, &min) {
			c.arr.unlinkBefore(min.seg)
			return true
		}
	}
}

func (a *CellArray) unlinkBefore(s *segment) {
	for {
		h := a.head.Load()
		if h.id >= s.id || a.head.CompareAndSwap(h, s) {
			return
		}
	}
}
