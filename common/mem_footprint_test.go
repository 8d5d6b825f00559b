// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"strings"
	"testing"
)

func TestMemoryFootprint_ValueExcludesChildren(t *testing.T) {
	mf := NewMemoryFootprint(128)
	mf.AddChild("boxes", NewMemoryFootprint(1024))

	if got, want := mf.Value(), uintptr(128); got != want {
		t.Errorf("wrong own value: %d != %d", got, want)
	}
	if got, want := mf.Total(), uintptr(128+1024); got != want {
		t.Errorf("wrong total: %d != %d", got, want)
	}
}

func TestMemoryFootprint_SharedChildrenAreCountedOnce(t *testing.T) {
	shared := NewMemoryFootprint(512)
	mf := NewMemoryFootprint(0)
	left := NewMemoryFootprint(8)
	right := NewMemoryFootprint(8)
	left.AddChild("shared", shared)
	right.AddChild("shared", shared)
	mf.AddChild("left", left)
	mf.AddChild("right", right)

	if got, want := mf.Total(), uintptr(8+8+512); got != want {
		t.Errorf("shared footprint counted more than once: %d != %d", got, want)
	}
}

func TestMemoryFootprint_AnnotatedChildCarriesSizeAndNote(t *testing.T) {
	mf := NewMemoryFootprint(64)
	mf.AddAnnotatedChild("boxes", 4096, "(boxes: 12)")

	child := mf.GetChild("boxes")
	if child == nil {
		t.Fatalf("annotated child not registered")
	}
	if got, want := child.Value(), uintptr(4096); got != want {
		t.Errorf("wrong child value: %d != %d", got, want)
	}
	if !strings.Contains(mf.String(), "(boxes: 12)") {
		t.Errorf("note not part of the report:\n%v", mf)
	}
}

func TestMemoryFootprint_MissingChildIsNil(t *testing.T) {
	mf := NewMemoryFootprint(1)
	if child := mf.GetChild("unknown"); child != nil {
		t.Errorf("expected no child, got %v", child)
	}
}

func TestMemoryFootprint_ReportListsChildrenByPath(t *testing.T) {
	mf := NewMemoryFootprint(12)
	mf.AddChild("scope", NewMemoryFootprint(50*1024))
	mf.AddChild("boxes", NewMemoryFootprint(10*1024*1024))

	print := mf.ToString("gc")
	for _, want := range []string{"gc", "gc/scope", "gc/boxes", "50.0 KB", "10.0 MB"} {
		if !strings.Contains(print, want) {
			t.Errorf("expected report to contain %q, got:\n%v", want, print)
		}
	}
}

func TestMemoryFootprint_NilFootprintHasNoSize(t *testing.T) {
	var mf *MemoryFootprint
	if got, want := mf.Total(), uintptr(0); got != want {
		t.Errorf("nil footprint reports %d bytes, wanted %d", got, want)
	}
}
