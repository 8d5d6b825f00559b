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
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// MemoryFootprintProvider is a type able to report its own memory
// consumption, like a collection scope reporting the bytes bound in its
// live boxes.
type MemoryFootprintProvider interface {
	GetMemoryFootprint() *MemoryFootprint
}

// MemoryFootprint describes the memory consumption of a component as a
// tree: the component's own bytes plus one child per subcomponent.
type MemoryFootprint struct {
	value    uintptr
	children map[string]*MemoryFootprint
	note     string
}

// NewMemoryFootprint creates a new footprint root accounting the given
// number of bytes for the component itself.
func NewMemoryFootprint(value uintptr) *MemoryFootprint {
	return &MemoryFootprint{
		value:    value,
		children: make(map[string]*MemoryFootprint),
	}
}

// SetNote attaches a free-form comment to the memory report.
func (mf *MemoryFootprint) SetNote(note string) {
	mf.note = note
}

// AddChild attaches the footprint of a subcomponent.
func (mf *MemoryFootprint) AddChild(name string, child *MemoryFootprint) {
	mf.children[name] = child
}

// AddAnnotatedChild attaches a subcomponent described by its size and a
// note, such as the number of allocations backing the reported bytes.
// The created child footprint is returned.
func (mf *MemoryFootprint) AddAnnotatedChild(name string, value uintptr, note string) *MemoryFootprint {
	child := NewMemoryFootprint(value)
	child.SetNote(note)
	mf.AddChild(name, child)
	return child
}

// GetChild returns the subcomponent footprint registered under the given
// name, or nil if there is none.
func (mf *MemoryFootprint) GetChild(name string) *MemoryFootprint {
	return mf.children[name]
}

// Value provides the amount of bytes consumed by the component itself,
// excluding its subcomponents.
func (mf *MemoryFootprint) Value() uintptr {
	return mf.value
}

// Total provides the amount of bytes consumed by the component including
// all its subcomponents. Footprints reachable through more than one path
// are counted once.
func (mf *MemoryFootprint) Total() uintptr {
	if mf == nil {
		return 0
	}
	visited := map[*MemoryFootprint]bool{mf: true}
	total := uintptr(0)
	worklist := []*MemoryFootprint{mf}
	for len(worklist) > 0 {
		cur := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		total += cur.value
		for _, child := range cur.children {
			if child == nil || visited[child] {
				continue
			}
			visited[child] = true
			worklist = append(worklist, child)
		}
	}
	return total
}

// ToString provides the memory footprint as a tree summary in a string.
// The name param allows to give a name to the root of the tree.
func (mf *MemoryFootprint) ToString(name string) string {
	var sb strings.Builder
	mf.toStringBuilder(&sb, name)
	return sb.String()
}

// Allow memory footprints to be used in format strings.
func (mf *MemoryFootprint) String() string {
	return mf.ToString(".")
}

func (mf *MemoryFootprint) toStringBuilder(sb *strings.Builder, path string) {
	// Print children in order for simpler comparison.
	names := make([]string, 0, len(mf.children))
	for name := range mf.children {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		footprint := mf.children[name]
		fullPath := path + "/" + name
		footprint.toStringBuilder(sb, fullPath)
	}

	// Show sum at the bottom.
	memoryAmountToString(sb, mf.Total())
	sb.WriteRune(' ')
	sb.WriteString(path)
	if len(mf.note) != 0 {
		sb.WriteRune(' ')
		sb.WriteString(mf.note)
	}
	sb.WriteRune('\n')
}

func memoryAmountToString(sb *strings.Builder, bytes uintptr) {
	const unit = 1024
	const prefixes = " KMGTPE"
	div, exp := 1, 0
	for n := bytes; n >= unit && exp+1 < len(prefixes); n /= unit {
		div *= unit
		exp++
	}
	// writing to the string.Builder can never return error
	_, _ = fmt.Fprintf(sb, "%6.1f %cB", float64(bytes)/float64(div), prefixes[exp])
}
