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
	"testing"

	"go.uber.org/mock/gomock"
)

func TestCell_BorrowLifeCycle(t *testing.T) {
	c := NewCell(NewLeaf(10))

	r1 := c.Borrow()
	if got, want := r1.Get().Value, 10; got != want {
		t.Errorf("value is not %d, got %d", want, got)
	}
	r1.Release()

	w := c.BorrowMut()
	w.Set(NewLeaf(12))
	w.Release()

	r2 := c.Borrow()
	if got, want := r2.Get().Value, 12; got != want {
		t.Errorf("value is not %d, got %d", want, got)
	}
	r2.Release()
}

func TestCell_SharedBorrowsMayOverlap(t *testing.T) {
	c := NewCell(NewLeaf(1))

	r1 := c.Borrow()
	r2 := c.Borrow()
	if !r1.Valid() || !r2.Valid() {
		t.Errorf("overlapping shared borrows must be granted")
	}
	r1.Release()
	r2.Release()
}

func TestCell_ExclusiveBorrowExcludesSharedBorrow(t *testing.T) {
	c := NewCell(NewLeaf(1))
	w := c.BorrowMut()
	defer w.Release()

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("borrowing an exclusively borrowed cell must panic")
		}
	}()
	c.Borrow()
}

func TestCell_SharedBorrowExcludesExclusiveBorrow(t *testing.T) {
	c := NewCell(NewLeaf(1))
	r := c.Borrow()
	defer r.Release()

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("exclusively borrowing a borrowed cell must panic")
		}
	}()
	c.BorrowMut()
}

func TestCell_ReleaseEndsBorrow(t *testing.T) {
	c := NewCell(NewLeaf(1))

	r := c.Borrow()
	r.Release()
	if r.Valid() {
		t.Errorf("released guard must be invalid")
	}

	w := c.BorrowMut()
	w.Release()
	if w.Valid() {
		t.Errorf("released guard must be invalid")
	}
	// the cell is free again
	w2 := c.BorrowMut()
	w2.Release()
}

func TestCell_StandaloneCellStartsRooted(t *testing.T) {
	c := NewCell(NewLeaf(1))
	if !c.rooted {
		t.Errorf("stand-alone cell must start rooted")
	}
}

func TestCell_ExclusiveBorrowRootsBoxedPayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	payload := NewMockTrace(ctrl)

	s := NewScope()
	defer s.Close()

	// moving the cell into the scope unroots the payload
	payload.EXPECT().Unroot()
	h, err := Alloc(s, NewCell[Trace](payload))
	if err != nil {
		t.Fatalf("failed to allocate value: %v", err)
	}

	// the exclusive borrow brackets the payload with root/unroot
	gomock.InOrder(
		payload.EXPECT().Root(),
		payload.EXPECT().Unroot(),
	)
	w := h.Get().BorrowMut()
	w.Release()

	// collecting propagates the mark through the cell
	payload.EXPECT().Mark()
	s.CollectGarbage()

	h.Release()
	s.CollectGarbage()
}

func TestCell_ExclusiveBorrowOfStandaloneCellDoesNotRoot(t *testing.T) {
	ctrl := gomock.NewController(t)
	payload := NewMockTrace(ctrl)

	// a stand-alone cell is rooted; the payload keeps its rooting
	c := NewCell[Trace](payload)
	w := c.BorrowMut()
	w.Release()
}

func TestCell_TraceSkipsExclusivelyBorrowedPayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	payload := NewMockTrace(ctrl)

	c := NewCell[Trace](payload)
	w := c.BorrowMut()
	defer w.Release()

	// no forwarding while the payload is rooted by the borrow
	c.Mark()
	c.Unroot()
	c.Root()
}

func TestCell_RootOnRootedCellPanics(t *testing.T) {
	c := NewCell(NewLeaf(1))
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("rooting a rooted cell must panic")
		}
	}()
	c.Root()
}

func TestCell_UnrootOnUnrootedCellPanics(t *testing.T) {
	ctrl := gomock.NewController(t)
	payload := NewMockTrace(ctrl)
	payload.EXPECT().Unroot()

	c := NewCell[Trace](payload)
	c.Unroot()
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("unrooting an unrooted cell must panic")
		}
	}()
	c.Unroot()
}

func TestCell_SetTransfersRootContribution(t *testing.T) {
	s := NewScope()
	defer s.Close()

	target, _ := Alloc(s, NewLeaf("t"))
	h, _ := Alloc(s, NewCell(&inner{}))

	// link the target through a first payload
	w := h.Get().BorrowMut()
	w.Get().ref = target.Clone()
	w.Release()
	if got, want := target.box.roots, uint32(1); got != want {
		t.Fatalf("wrong root count after linking: %d != %d", got, want)
	}

	// replacing the payload drops the link; the displaced payload's
	// handles stop contributing
	w = h.Get().BorrowMut()
	w.Set(&inner{})
	w.Release()
	if got, want := target.box.roots, uint32(1); got != want {
		t.Errorf("root count corrupted by payload replacement: %d != %d", got, want)
	}

	// the target is now only reachable through its own handle
	h.Release()
	s.CollectGarbage()
	if !target.Valid() {
		t.Errorf("target reclaimed while still rooted")
	}
	target.Release()
}

func TestCell_FinalizeForwardsToPayload(t *testing.T) {
	s := NewScope()

	finalized := 0
	if _, err := Alloc(s, NewCell(&countingLeaf{finalized: &finalized})); err != nil {
		t.Fatalf("failed to allocate value: %v", err)
	}
	s.Close()

	if got, want := finalized, 1; got != want {
		t.Errorf("payload not finalized through the cell: %d != %d", got, want)
	}
}
