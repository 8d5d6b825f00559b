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

import "math"

// box is the per-allocation header of a managed value. Boxes are created
// by the collector state during allocation and form an intrusive singly
// linked list covering every live allocation of the enclosing scope.
// A box never moves after allocation; the next link is written only by
// alloc (prepend) and by the sweep pass (splice), never concurrently.
type box struct {
	// roots counts the rooted handles currently pointing at this value.
	// A cell adds no count of its own; the handles inside a rooted cell
	// are rooted themselves. Boxes with a non-zero root count are the
	// starting points of the mark phase.
	roots uint32

	// marked flags the box as reachable for the duration of a single
	// collection. It is false at every quiescent point.
	marked bool

	// dead is set when the box has been reclaimed, either by a sweep or
	// by the teardown of its scope. Handle operations on a dead box
	// fail loudly instead of touching reclaimed state.
	dead bool

	// next links to the next box of the scope, if any.
	next *box

	// size is the number of bytes accounted for this allocation.
	size uintptr

	// value is the managed payload.
	value Trace
}

// markBox marks this box and propagates the mark through the payload.
// The mark bit guarantees a single traversal per box and collection,
// which terminates the recursion on cyclic graphs.
func (b *box) markBox() {
	if b.marked {
		return
	}
	b.marked = true
	b.value.Mark()
}

// incRoots registers one additional root for this box.
func (b *box) incRoots() {
	if b.roots == math.MaxUint32 {
		panic("gc: root count overflow")
	}
	b.roots++
}

// decRoots removes one root from this box. A decrement below zero means
// the root/unroot protocol was violated somewhere; the count would be
// silently corrupted if it wrapped, so it is checked unconditionally.
func (b *box) decRoots() {
	if b.roots == 0 {
		panic("gc: root count underflow")
	}
	b.roots--
}
