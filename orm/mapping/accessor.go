// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mapping

import "reflect"

// reflectFieldAccessor reads and writes a named struct field by reflection.
// Entities are always pointers to the mapped struct type.
type reflectFieldAccessor struct {
	fieldName string
}

// NewReflectAccessor returns an [Accessor] that reads/writes the struct
// field named fieldName via reflection. Used by [FromStruct] and by
// hand-written mappings that don't need a custom accessor.
func NewReflectAccessor(fieldName string) Accessor {
	return reflectFieldAccessor{fieldName: fieldName}
}

func (a reflectFieldAccessor) Get(entity any) any {
	v := reflect.ValueOf(entity).Elem().FieldByName(a.fieldName)
	return v.Interface()
}

func (a reflectFieldAccessor) Set(entity any, value any) {
	v := reflect.ValueOf(entity).Elem().FieldByName(a.fieldName)
	if value == nil {
		v.Set(reflect.Zero(v.Type()))
		return
	}
	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(v.Type()) {
		v.Set(rv)
		return
	}
	if rv.Type().ConvertibleTo(v.Type()) {
		v.Set(rv.Convert(v.Type()))
		return
	}
	v.Set(rv)
}

// FuncAccessor adapts a pair of get/set closures into an [Accessor], for
// callers that want typed accessors without reflection.
type FuncAccessor struct {
	GetFunc func(entity any) any
	SetFunc func(entity any, value any)
}

func (a FuncAccessor) Get(entity any) any        { return a.GetFunc(entity) }
func (a FuncAccessor) Set(entity any, value any) { a.SetFunc(entity, value) }
