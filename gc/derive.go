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
	"reflect"
	"unsafe"
)

// The derive helpers generate the three trace traversals for aggregate
// types mechanically, so that Trace implementations do not have to be
// spelled out - and kept in sync with the field list - by hand:
//
//	func (n *node) Mark()   { gc.MarkFields(n) }
//	func (n *node) Root()   { gc.RootFields(n) }
//	func (n *node) Unroot() { gc.UnrootFields(n) }
//
// The traversal visits every field of the struct exactly once, in
// declaration order, and applies the operation to each field that
// provides the Trace capability. Fields that do not - including
// unexported ones - are walked structurally: nested structs are visited
// field by field, pointers are followed, and slice, array, and map
// entries are visited element-wise. Fields with no traceable content
// are ignored.

// MarkFields applies the mark operation to every traceable field of the
// given struct. The argument must be a struct or a pointer to one.
func MarkFields(value any) {
	visitFields(value, Trace.Mark)
}

// RootFields applies the root operation to every traceable field of the
// given struct. The argument must be a struct or a pointer to one.
func RootFields(value any) {
	visitFields(value, Trace.Root)
}

// UnrootFields applies the unroot operation to every traceable field of
// the given struct. The argument must be a struct or a pointer to one.
func UnrootFields(value any) {
	visitFields(value, Trace.Unroot)
}

var traceType = reflect.TypeOf((*Trace)(nil)).Elem()

func visitFields(value any, visit func(Trace)) {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		panic(fmt.Sprintf("gc: cannot derive trace operations for %v, need a struct or pointer to struct", rv.Kind()))
	}
	visitStruct(rv, visit)
}

func visitStruct(rv reflect.Value, visit func(Trace)) {
	for i := 0; i < rv.NumField(); i++ {
		visitValue(rv.Field(i), visit)
	}
}

func visitValue(rv reflect.Value, visit func(Trace)) {
	if !rv.IsValid() {
		return
	}
	if t, ok := asTrace(rv); ok {
		visit(t)
		return
	}
	switch rv.Kind() {
	case reflect.Struct:
		visitStruct(rv, visit)
	case reflect.Pointer, reflect.Interface:
		if !rv.IsNil() {
			visitValue(rv.Elem(), visit)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			visitValue(rv.Index(i), visit)
		}
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			visitValue(iter.Key(), visit)
			visitValue(iter.Value(), visit)
		}
	}
}

// asTrace extracts the Trace capability of the given value, if any. The
// pointer type is consulted as well, as trace operations mutate rooting
// state and are therefore commonly declared on pointer receivers.
func asTrace(rv reflect.Value) (Trace, bool) {
	if rv.Type().Implements(traceType) {
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			// an absent reference traces as empty
			return nil, false
		}
		return reveal(rv).Interface().(Trace), true
	}
	if rv.CanAddr() && reflect.PointerTo(rv.Type()).Implements(traceType) {
		return reveal(rv).Addr().Interface().(Trace), true
	}
	return nil, false
}

// reveal lifts the read-only restriction reflect places on unexported
// fields. The derive contract requires visiting every field, exported
// or not; the resulting value aliases the original object, it is not a
// copy.
func reveal(rv reflect.Value) reflect.Value {
	if rv.CanInterface() {
		return rv
	}
	if !rv.CanAddr() {
		panic(fmt.Sprintf("gc: cannot derive trace operations for unaddressable unexported field of type %v", rv.Type()))
	}
	return reflect.NewAt(rv.Type(), unsafe.Pointer(rv.UnsafeAddr())).Elem()
}
