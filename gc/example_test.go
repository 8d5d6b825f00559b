// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package gc_test

import (
	"fmt"

	"github.com/Fantom-foundation/Figaro/go/gc"
)

func ExampleScope() {
	scope := gc.NewScope()
	defer scope.Close()

	message, err := gc.Alloc(scope, gc.NewLeaf("Hello, World!"))
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(message.Get().Value)

	message.Release()
	scope.CollectGarbage()
	fmt.Println(scope.AllocatedBytes())
	// Output:
	// Hello, World!
	// 0
}

func ExampleScope_CollectGarbage() {
	scope := gc.NewScope()
	defer scope.Close()

	// build two tasks referencing each other
	a, _ := gc.Alloc(scope, gc.NewCell(&task{title: "a"}))
	b, _ := gc.Alloc(scope, gc.NewCell(&task{title: "b"}))

	w := a.Get().BorrowMut()
	w.Get().next = b.Clone()
	w.Release()

	w = b.Get().BorrowMut()
	w.Get().next = a.Clone()
	w.Release()

	// dropping the handles leaves a cycle without roots, which a
	// collection reclaims as a whole
	a.Release()
	b.Release()
	scope.CollectGarbage()

	fmt.Println(scope.AllocatedBytes())
	// Output:
	// 0
}

// task is a managed value with one outgoing reference; its trace
// operations are derived from its fields.
type task struct {
	title string
	next  *gc.Handle[*gc.Cell[*task]]
}

func (t *task) Mark()   { gc.MarkFields(t) }
func (t *task) Root()   { gc.RootFields(t) }
func (t *task) Unroot() { gc.UnrootFields(t) }
