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

import (
	"reflect"
	"unsafe"
)

// state is the collector state owned by a Scope. It maintains the
// intrusive list of all live boxes and the running sum of their sizes.
//
// Invariants between operations:
//   - the list starting at head contains every box allocated in the
//     enclosing scope that has not been swept, and no other box,
//   - allocatedBytes equals the sum of the sizes of the listed boxes,
//   - the mark bit of every listed box is false.
type state struct {
	allocatedBytes uintptr
	head           *box
}

// alloc places the given value under management of this collector state
// and returns its freshly created box. The box starts with a root count
// of one, matching the rooted handle the scope wraps around it. The
// returned error is reserved for a future bounded variant of the
// collector; the current implementation always succeeds.
func (s *state) alloc(value Trace, size uintptr) (*box, error) {
	b := &box{
		roots: 1,
		next:  s.head,
		size:  size,
		value: value,
	}
	s.head = b
	s.allocatedBytes += size
	return b, nil
}

// collect performs a full synchronous mark-and-sweep pass.
func (s *state) collect() {
	// Mark: every box with a positive root count is a starting point;
	// markBox propagates reachability through the object graph.
	for b := s.head; b != nil; b = b.next {
		if b.roots > 0 {
			b.markBox()
		}
	}

	// Sweep: walk the list with a pointer-to-pointer cursor, splice out
	// unmarked boxes, and clear the mark bit of the survivors.
	var swept []*box
	next := &s.head
	for *next != nil {
		b := *next
		if b.marked {
			b.marked = false
			next = &b.next
		} else {
			*next = b.next
			swept = append(swept, b)
		}
	}

	// Reclaim the swept boxes. Finalizers may touch sibling values that
	// are reclaimed by the same pass; the headers are still valid
	// memory, so stray root-count decrements on them are harmless.
	for _, b := range swept {
		s.release(b)
	}
}

// close releases every remaining box unconditionally, ignoring root
// counts and mark state. It is invoked on scope teardown, at which point
// no live handle into this state exists anymore.
func (s *state) close() {
	for b := s.head; b != nil; {
		n := b.next
		s.release(b)
		b = n
	}
	s.head = nil
}

// release finalizes a single box that has been unlinked from the list
// and removes it from the byte accounting.
func (s *state) release(b *box) {
	b.dead = true
	b.next = nil
	if f, ok := b.value.(Finalizer); ok {
		f.Finalize()
	}
	if b.size > s.allocatedBytes {
		panic("gc: allocated bytes accounting underflow")
	}
	s.allocatedBytes -= b.size
}

// boxCount reports the number of boxes currently alive in this state.
func (s *state) boxCount() int {
	count := 0
	for b := s.head; b != nil; b = b.next {
		count++
	}
	return count
}

// payloadSize determines the number of bytes accounted for an allocation
// of the given value: the box header plus the payload itself. Pointer
// payloads are accounted with the size of their pointed-to object, which
// is the allocation the box keeps alive.
func payloadSize(value Trace) uintptr {
	size := unsafe.Sizeof(box{})
	t := reflect.TypeOf(value)
	if t == nil {
		return size
	}
	if t.Kind() == reflect.Pointer {
		size += t.Elem().Size()
	} else {
		size += t.Size()
	}
	return size
}
