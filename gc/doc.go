// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package gc provides a scoped, precise, mark-and-sweep garbage collector
// for heterogeneous object graphs that may contain cycles.
//
// Clients open a Scope, allocate values into it, and freely link the
// allocated values into arbitrary graphs - including cyclic ones. While
// the scope is open, CollectGarbage reclaims every allocation that is no
// longer reachable from a rooted handle. Closing the scope releases every
// remaining allocation unconditionally.
//
// Values placed under collector management must implement the Trace
// capability, which propagates the three traversals of the collection
// protocol (mark, root, unroot) along the value's outgoing references.
// Aggregate types can delegate the traversals to the reflection-based
// helpers MarkFields, RootFields, and UnrootFields instead of spelling
// them out by hand:
//
//	type node struct {
//		name Leaf[string]
//		next *Handle[*Cell[*node]]
//	}
//
//	func (n *node) Mark()   { gc.MarkFields(n) }
//	func (n *node) Root()   { gc.RootFields(n) }
//	func (n *node) Unroot() { gc.UnrootFields(n) }
//
// Handles returned by Alloc and Handle.Clone keep their target alive as
// long as they are held on the stack. A handle stored inside another
// managed value stops acting as a root; the reachability of its owner
// keeps the target alive instead. This hand-off is performed by the
// root/unroot traversals and is fully automatic as long as values enter
// and leave managed locations through the provided operations (Alloc,
// Cell.BorrowMut, Handle.Release).
//
// The collector is strictly single-threaded. Scopes, handles, and cells
// must not be shared across goroutines, and Trace implementations must
// not call back into the collector.
package gc
