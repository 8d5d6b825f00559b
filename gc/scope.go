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
	"fmt"
	"unsafe"

	"github.com/Fantom-foundation/Figaro/go/common"
)

const (
	// ErrExhausted is returned by Alloc when the collector has run out
	// of memory. The current implementation never exhausts; the error
	// is part of the interface so that a bounded variant can refuse
	// allocations without an API break.
	ErrExhausted = common.ConstError("gc: allocation exhausted")

	// ErrClosedScope is returned by Alloc when the scope has already
	// been closed.
	ErrClosedScope = common.ConstError("gc: scope already closed")
)

// Config are the construction-time parameters of a scope.
type Config struct {
	// CollectionThreshold makes Alloc trigger an automatic collection
	// whenever the number of allocated bytes exceeds the given value.
	// Zero disables automatic collections; all collections are then
	// explicit through CollectGarbage.
	CollectionThreshold uintptr
}

// Scope is a garbage-collected allocation scope. Every value allocated
// through a scope stays alive while it is reachable from a rooted handle
// and is released at the latest when the scope is closed. A scope and
// all handles issued by it are confined to a single goroutine.
type Scope struct {
	config Config
	state  state

	// busy guards the collector state against re-entrant access, such
	// as a Trace implementation calling back into Alloc during a mark
	// pass. Re-entry is a contract violation and panics.
	busy   bool
	closed bool
}

// NewScope creates a new, empty collection scope with default
// configuration. The scope must be closed when no longer needed.
func NewScope() *Scope {
	return NewScopeWithConfig(Config{})
}

// NewScopeWithConfig creates a new, empty collection scope with the
// given configuration.
func NewScopeWithConfig(config Config) *Scope {
	return &Scope{config: config}
}

// Alloc allocates the given value in the scope and returns a rooted
// handle to it. Handles contained in the value lose their own root
// contribution during the move into the managed location; the new
// allocation becomes their root surrogate. Alloc fails with
// ErrClosedScope on a closed scope and reserves ErrExhausted for
// refused allocations.
func Alloc[T Trace](s *Scope, value T) (*Handle[T], error) {
	s.enter()
	defer s.exit()
	if s.closed {
		return nil, ErrClosedScope
	}

	// The value was constructed on the stack, so the handles it
	// contains are rooted. They are about to move into a managed
	// location where the containing box pins them instead; without the
	// unroot they would keep their targets alive forever.
	value.Unroot()

	b, err := s.state.alloc(value, payloadSize(value))
	if err != nil {
		return nil, err
	}
	h := &Handle[T]{box: b, rooted: true}

	if s.config.CollectionThreshold > 0 && s.state.allocatedBytes > s.config.CollectionThreshold {
		s.state.collect()
	}
	return h, nil
}

// CollectGarbage synchronously reclaims every allocation of this scope
// that is not reachable from a rooted handle or stand-alone cell.
// Cyclic garbage is reclaimed. Calling it on a closed scope panics.
func (s *Scope) CollectGarbage() {
	s.enter()
	defer s.exit()
	if s.closed {
		panic("gc: collecting on a closed scope")
	}
	s.state.collect()
}

// Close tears the scope down, releasing every remaining allocation
// regardless of reachability. All handles issued by the scope become
// invalid: dereferencing or cloning them afterwards panics, releasing
// them has no effect. Close is idempotent.
func (s *Scope) Close() {
	s.enter()
	defer s.exit()
	if s.closed {
		return
	}
	s.state.close()
	s.closed = true
}

// AllocatedBytes reports the bytes currently under management of this
// scope, covering box headers and payloads of all live allocations.
func (s *Scope) AllocatedBytes() uintptr {
	return s.state.allocatedBytes
}

// GetMemoryFootprint provides the memory consumption of the scope and
// its allocations.
func (s *Scope) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*s))
	mf.AddAnnotatedChild("boxes", s.state.allocatedBytes,
		fmt.Sprintf("(boxes: %d)", s.state.boxCount()))
	return mf
}

func (s *Scope) enter() {
	if s.busy {
		panic("gc: re-entrant access to the collector")
	}
	s.busy = true
}

func (s *Scope) exit() {
	s.busy = false
}
