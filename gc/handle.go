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

import "fmt"

// Handle is a smart pointer to a value allocated in a collection scope.
// Handles are created by Alloc and by Clone, and in both cases start out
// rooted: as long as the handle is held on the stack, its target is kept
// alive. A handle that moves (transitively) into another managed value
// is unrooted by the move; the reachability of the containing allocation
// pins the target instead. The rooted flag together with the Root and
// Unroot traversals performs exactly this ownership hand-off at move
// boundaries.
//
// A nil *Handle is a valid empty reference: all trace operations and
// Release are no-ops on it, and Get panics. This is the idiomatic
// rendering of an optional reference field.
//
// For every box B the collector maintains
//
//	roots(B) = number of handles pointing to B with rooted == true
//
// Handles inside a rooted cell are rooted themselves and are counted
// there; a cell adds no root of its own. This is why the rooted state
// must only change through the protocol operations below.
type Handle[T Trace] struct {
	box    *box
	rooted bool
}

// Get yields the managed value. It panics on an empty or released
// handle and on a handle whose target has been reclaimed; a dangling
// reference is a programming error that must fail loudly rather than
// expose reclaimed state.
func (h *Handle[T]) Get() T {
	if h == nil || h.box == nil {
		panic("gc: dereferencing an empty handle")
	}
	if h.box.dead {
		panic("gc: dereferencing a reclaimed value")
	}
	return h.box.value.(T)
}

// Clone creates a new rooted handle to the same value.
func (h *Handle[T]) Clone() *Handle[T] {
	if h == nil || h.box == nil {
		return nil
	}
	if h.box.dead {
		panic("gc: cloning a handle to a reclaimed value")
	}
	h.box.incRoots()
	return &Handle[T]{box: h.box, rooted: true}
}

// Release gives the handle up. A rooted handle stops contributing to
// its target's root count; the target becomes eligible for collection
// unless other roots or reachable owners remain. Releasing an empty or
// already released handle has no effect. After the release the handle
// is empty.
func (h *Handle[T]) Release() {
	if h == nil || h.box == nil {
		return
	}
	if h.rooted && !h.box.dead {
		h.box.decRoots()
	}
	h.rooted = false
	h.box = nil
}

// Valid returns true if this handle currently refers to a live value.
func (h *Handle[T]) Valid() bool {
	return h != nil && h.box != nil && !h.box.dead
}

// Mark marks the target box as reachable. The mark is propagated
// further through the object graph unless the box was already marked.
func (h *Handle[T]) Mark() {
	if h == nil || h.box == nil {
		return
	}
	h.box.markBox()
}

// Root tags this handle as a root for its target. It is invoked by the
// trace traversal when the containing value moves onto the stack. The
// handle must not be rooted already; a double root would corrupt the
// root count, so the precondition is checked unconditionally.
func (h *Handle[T]) Root() {
	if h == nil || h.box == nil {
		return
	}
	if h.rooted {
		panic("gc: rooting an already rooted handle")
	}
	h.box.incRoots()
	h.rooted = true
}

// Unroot removes the root tag from this handle. It is invoked by the
// trace traversal when the containing value moves into a managed
// location. The handle must be rooted; the precondition is checked
// unconditionally.
func (h *Handle[T]) Unroot() {
	if h == nil || h.box == nil {
		return
	}
	if !h.rooted {
		panic("gc: unrooting a handle that is not rooted")
	}
	h.box.decRoots()
	h.rooted = false
}

func (h *Handle[T]) String() string {
	if h == nil || h.box == nil {
		return "Handle(empty)"
	}
	return fmt.Sprintf("Handle(%p)", h.box)
}
