// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package gc

// Cell is an interior-mutable container for a traceable value. It is the
// building block for mutable object graphs: allocating a Cell in a scope
// and mutating it through exclusive borrows is how links between managed
// values are created and broken.
//
// A cell tracks whether it is currently rooted. A cell created on the
// stack is rooted; a cell that has moved into a managed allocation is
// not, since the reachability of its owner pins the payload instead. An
// exclusive borrow of an unrooted cell temporarily roots the payload, so
// that handles moved in or out during the mutation stay consistent even
// if the owning allocation becomes unreachable in the interim.
//
// Borrow state is tracked dynamically: shared borrows may overlap, an
// exclusive borrow excludes every other borrow, and conflicts panic.
// Guards returned by Borrow and BorrowMut must be released.
type Cell[T Trace] struct {
	rooted bool

	// borrows is zero while the cell is unborrowed, counts the active
	// shared borrows while positive, and is exclusive while negative.
	borrows int

	value T
}

const exclusive = -1

// NewCell creates a new stand-alone cell holding the given value. Like
// any value constructed on the stack it starts out rooted.
func NewCell[T Trace](value T) *Cell[T] {
	return &Cell[T]{rooted: true, value: value}
}

// Borrow grants shared access to the cell's payload until the returned
// guard is released. Multiple shared borrows may be active at the same
// time. Borrowing while an exclusive borrow is active panics.
func (c *Cell[T]) Borrow() Ref[T] {
	if c.borrows < 0 {
		panic("gc: cell is already exclusively borrowed")
	}
	c.borrows++
	return Ref[T]{cell: c}
}

// BorrowMut grants exclusive access to the cell's payload until the
// returned guard is released. Borrowing while any other borrow is
// active panics.
//
// If the cell lives inside a managed allocation (i.e. it is not
// rooted), the payload is rooted for the duration of the borrow and
// unrooted again when the guard is released.
func (c *Cell[T]) BorrowMut() RefMut[T] {
	if c.borrows != 0 {
		panic("gc: cell is already borrowed")
	}
	if !c.rooted {
		c.value.Root()
	}
	c.borrows = exclusive
	return RefMut[T]{cell: c}
}

// Mark propagates the mark traversal into the payload. While an
// exclusive borrow is active the payload is rooted and its targets are
// mark roots on their own, so the traversal is skipped.
func (c *Cell[T]) Mark() {
	if c.borrows < 0 {
		return
	}
	c.value.Mark()
}

// Root tags the cell as rooted and propagates into the payload, unless
// an active exclusive borrow has rooted the payload already.
func (c *Cell[T]) Root() {
	if c.rooted {
		panic("gc: rooting an already rooted cell")
	}
	c.rooted = true
	if c.borrows < 0 {
		return
	}
	c.value.Root()
}

// Unroot removes the root tag from the cell and propagates into the
// payload, unless an active exclusive borrow keeps the payload rooted
// until it is released.
func (c *Cell[T]) Unroot() {
	if !c.rooted {
		panic("gc: unrooting a cell that is not rooted")
	}
	c.rooted = false
	if c.borrows < 0 {
		return
	}
	c.value.Unroot()
}

// Finalize forwards the reclamation of the cell to its payload, if the
// payload asks for finalization.
func (c *Cell[T]) Finalize() {
	if f, ok := any(c.value).(Finalizer); ok {
		f.Finalize()
	}
}

// Ref is a shared borrow of a cell's payload. It must be released.
type Ref[T Trace] struct {
	cell *Cell[T]
}

// Get yields the borrowed value. Must only be called on valid guards.
func (r *Ref[T]) Get() T {
	return r.cell.value
}

// Valid returns true while this guard represents an active borrow.
func (r *Ref[T]) Valid() bool {
	return r.cell != nil
}

// Release ends the borrow. After the release the guard is invalid.
func (r *Ref[T]) Release() {
	if r.cell == nil {
		return
	}
	r.cell.borrows--
	r.cell = nil
}

// RefMut is an exclusive borrow of a cell's payload. It must be
// released; the release restores the rooting state the payload had
// before the borrow.
type RefMut[T Trace] struct {
	cell *Cell[T]
}

// Get yields the borrowed value. Must only be called on valid guards.
func (r *RefMut[T]) Get() T {
	return r.cell.value
}

// Set replaces the cell's payload with a new value constructed on the
// stack. The previous payload leaves the managed graph: its handles
// stop contributing to root counts, so a previous payload that is still
// referenced elsewhere must be re-rooted by the caller before the next
// collection. The new value must not be the value currently held.
func (r *RefMut[T]) Set(value T) {
	old := r.cell.value
	r.cell.value = value
	old.Unroot()
}

// Valid returns true while this guard represents an active borrow.
func (r *RefMut[T]) Valid() bool {
	return r.cell != nil
}

// Release ends the exclusive borrow. If the cell is (still) part of a
// managed allocation, the payload's borrow-time rooting is undone.
func (r *RefMut[T]) Release() {
	if r.cell == nil {
		return
	}
	c := r.cell
	r.cell = nil
	c.borrows = 0
	if !c.rooted {
		c.value.Unroot()
	}
}
