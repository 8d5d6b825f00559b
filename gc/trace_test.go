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

func TestTrace_LeafOperationsAreEmpty(t *testing.T) {
	l := NewLeaf("no references")
	l.Mark()
	l.Root()
	l.Unroot()

	var s String
	s.Mark()
	s.Root()
	s.Unroot()

	var b Bytes
	b.Mark()
	b.Root()
	b.Unroot()
}

func TestTrace_SliceForwardsToAllElements(t *testing.T) {
	ctrl := gomock.NewController(t)
	e1 := NewMockTrace(ctrl)
	e2 := NewMockTrace(ctrl)
	s := Slice[Trace]{e1, e2}

	e1.EXPECT().Mark()
	e2.EXPECT().Mark()
	s.Mark()

	e1.EXPECT().Root()
	e2.EXPECT().Root()
	s.Root()

	e1.EXPECT().Unroot()
	e2.EXPECT().Unroot()
	s.Unroot()
}

func TestTrace_MapForwardsToAllValues(t *testing.T) {
	ctrl := gomock.NewController(t)
	v1 := NewMockTrace(ctrl)
	v2 := NewMockTrace(ctrl)
	m := Map[string, Trace]{"a": v1, "b": v2}

	v1.EXPECT().Mark()
	v2.EXPECT().Mark()
	m.Mark()

	// root and unroot propagate through mappings like mark does
	v1.EXPECT().Root()
	v2.EXPECT().Root()
	m.Root()

	v1.EXPECT().Unroot()
	v2.EXPECT().Unroot()
	m.Unroot()
}

func TestTrace_EmptyContainersTraceAsEmpty(t *testing.T) {
	var s Slice[*Handle[Leaf[int]]]
	s.Mark()
	s.Root()
	s.Unroot()

	var m Map[int, *Handle[Leaf[int]]]
	m.Mark()
	m.Root()
	m.Unroot()
}

func TestTrace_NilSliceElementsAreTolerated(t *testing.T) {
	s := Slice[*Handle[Leaf[int]]]{nil, nil}
	s.Mark()
	s.Root()
	s.Unroot()
}

func TestTrace_AllocUnrootsThePayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	payload := NewMockTrace(ctrl)

	s := NewScope()
	defer s.Close()

	payload.EXPECT().Unroot()
	h, err := Alloc[Trace](s, payload)
	if err != nil {
		t.Fatalf("failed to allocate value: %v", err)
	}
	h.Release()
}

func TestTrace_CollectionMarksRootedValuesOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	payload := NewMockTrace(ctrl)

	s := NewScope()
	defer s.Close()

	payload.EXPECT().Unroot()
	h, _ := Alloc[Trace](s, payload)
	c := h.Clone()

	// two roots, one traversal
	payload.EXPECT().Mark().Times(1)
	s.CollectGarbage()

	h.Release()
	c.Release()
}

func TestTrace_UnreachableValuesAreNotMarked(t *testing.T) {
	ctrl := gomock.NewController(t)
	payload := NewMockTrace(ctrl)

	s := NewScope()
	defer s.Close()

	payload.EXPECT().Unroot()
	h, _ := Alloc[Trace](s, payload)
	h.Release()

	// no mark, the value is swept right away
	s.CollectGarbage()
}
