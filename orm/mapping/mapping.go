// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mapping describes the persistence shape of an entity type: which
table it lives in, which fields map to which columns, its primary and
parental keys, and its children. A [Mapping] is immutable once built and
shared for the process lifetime; a [Catalog] is an explicit, session-owned
registry of mappings — there is no package-global mapping state.

Two ways to build a Mapping are supported: hand-written (NewBuilder) for
full control, and declarative (FromStruct) for the common case of a plain Go
struct tagged with "orm" struct tags.
*/
package mapping

import (
	"fmt"
	"reflect"

	"github.com/taibuivan/orm1go/internal/platform/apperr"
	"github.com/taibuivan/orm1go/orm/ast"
)

// Arity distinguishes a singular (one-to-one) child from a plural
// (one-to-many) child.
type Arity int

const (
	Singular Arity = iota
	Plural
)

// Accessor reads and writes a named attribute of an entity instance. Entity
// instances are always pointers to the type the owning Mapping describes.
type Accessor interface {
	Get(entity any) any
	Set(entity any, value any)
}

// FieldDef is one entry in a Mapping's field projection: a logical name
// mapped to a physical column and an Accessor.
type FieldDef struct {
	Name         string
	Column       string
	Accessor     Accessor
	SkipOnUpdate bool
}

// ChildDef is one entry in a Mapping's child projection.
type ChildDef struct {
	Name       string
	TargetType reflect.Type
	Accessor   Accessor
	Arity      Arity
}

// Mapping is the immutable description of one entity type's persistence
// shape. Construct with [NewBuilder] or [FromStruct]; register the result
// into a [Catalog] once at startup.
type Mapping struct {
	EntityType  reflect.Type
	Factory     func() any
	Schema      string
	Table       string
	Fields      map[string]FieldDef
	PrimaryKey  []string
	ParentalKey []string
	Children    map[string]ChildDef

	order      []string
	insertable []string
	updatable  []string
}

// TableRef reports the (schema, table) pair as stored in the database.
func (m *Mapping) TableRef() (schema, table string) {
	return m.Schema, m.Table
}

// TableRefNode returns the AST form of the mapping's table reference, for
// use as a JOIN target or a statement's FROM/INTO clause.
func (m *Mapping) TableRefNode() ast.Node {
	return ast.TableRef{Schema: m.Schema, Table: m.Table}.Ident()
}

// TypeName returns a human-readable name for the mapped type, used in error
// messages.
func (m *Mapping) TypeName() string {
	return m.EntityType.String()
}

// Key returns the field names forming the identity key: primary key
// followed by parental key.
func (m *Mapping) Key() []string {
	return append(append([]string{}, m.PrimaryKey...), m.ParentalKey...)
}

// Full returns every mapped field name: the key projection followed by all
// remaining fields, in a stable order derived from field declaration order.
func (m *Mapping) Full() []string {
	key := m.Key()
	inKey := make(map[string]bool, len(key))
	for _, k := range key {
		inKey[k] = true
	}
	full := append([]string{}, key...)
	for _, name := range m.fieldOrder() {
		if !inKey[name] {
			full = append(full, name)
		}
	}
	return full
}

// Insertable returns the fields written on INSERT.
func (m *Mapping) Insertable() []string {
	return m.insertable
}

// Updatable returns the fields written on UPDATE: every field except the
// primary key and fields declared skip-on-update.
func (m *Mapping) Updatable() []string {
	return m.updatable
}

// fieldOrder returns field names in declaration order, as recorded by the
// builder — Fields itself is a map and carries no order.
func (m *Mapping) fieldOrder() []string {
	return m.order
}

// Columns translates a slice of logical field names into physical column
// names, in the same order.
func (m *Mapping) Columns(fields []string) []string {
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = m.Fields[f].Column
	}
	return cols
}

// Validate checks the invariants from the data model: every name in
// PrimaryKey/ParentalKey/Updatable/Full must be present in Fields, the
// primary key must be non-empty, and every child's target mapping must have
// a parental key whose length matches this mapping's primary key length.
func (m *Mapping) Validate(catalog *Catalog) error {
	if len(m.PrimaryKey) == 0 {
		return apperr.Internal(fmt.Errorf("mapping %s: primary key must not be empty", m.TypeName()))
	}
	check := func(names []string, label string) error {
		for _, n := range names {
			if _, ok := m.Fields[n]; !ok {
				return apperr.Internal(fmt.Errorf("mapping %s: %s references unknown field %q", m.TypeName(), label, n))
			}
		}
		return nil
	}
	if err := check(m.PrimaryKey, "primary_key"); err != nil {
		return err
	}
	if err := check(m.ParentalKey, "parental_key"); err != nil {
		return err
	}
	for _, child := range m.Children {
		targetMapping, err := catalog.GetByType(child.TargetType)
		if err != nil {
			return apperr.Internal(fmt.Errorf("mapping %s: child %q targets unmapped type %s", m.TypeName(), child.Name, child.TargetType))
		}
		if len(targetMapping.ParentalKey) != len(m.PrimaryKey) {
			return apperr.Internal(fmt.Errorf(
				"mapping %s: child %q target %s has parental_key of length %d, want %d",
				m.TypeName(), child.Name, child.TargetType, len(targetMapping.ParentalKey), len(m.PrimaryKey),
			))
		}
	}
	return nil
}
