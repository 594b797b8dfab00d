// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mapping

import "reflect"

// Builder constructs a [Mapping] through a fluent API, mirroring the
// builder-pattern AST construction used elsewhere in this codebase's
// reference material. Call Build once all fields and children are declared.
type Builder struct {
	m *Mapping
}

// NewBuilder starts a Mapping for entityType, whose instances are produced
// by factory (an uninitialized *T, typically "func() any { return new(T) }").
func NewBuilder(entityType reflect.Type, factory func() any, schema, table string) *Builder {
	return &Builder{m: &Mapping{
		EntityType: entityType,
		Factory:    factory,
		Schema:     schema,
		Table:      table,
		Fields:     map[string]FieldDef{},
		Children:   map[string]ChildDef{},
	}}
}

// Field declares one field projection.
func (b *Builder) Field(name, column string, accessor Accessor, skipOnUpdate bool) *Builder {
	b.m.Fields[name] = FieldDef{Name: name, Column: column, Accessor: accessor, SkipOnUpdate: skipOnUpdate}
	b.m.order = append(b.m.order, name)
	return b
}

// PrimaryKey declares the ordered primary-key field names.
func (b *Builder) PrimaryKey(fields ...string) *Builder {
	b.m.PrimaryKey = fields
	return b
}

// ParentalKey declares the ordered parental-key field names. Empty for a
// root entity.
func (b *Builder) ParentalKey(fields ...string) *Builder {
	b.m.ParentalKey = fields
	return b
}

// Child declares a plural or singular child relationship.
func (b *Builder) Child(name string, targetType reflect.Type, accessor Accessor, arity Arity) *Builder {
	b.m.Children[name] = ChildDef{Name: name, TargetType: targetType, Accessor: accessor, Arity: arity}
	return b
}

// Build finalizes the Mapping, computing the insertable and updatable
// projections. Insertable defaults to every field; updatable excludes the
// primary key and any field declared skip-on-update.
func (b *Builder) Build() *Mapping {
	pk := map[string]bool{}
	for _, k := range b.m.PrimaryKey {
		pk[k] = true
	}

	var insertable, updatable []string
	for _, name := range b.m.order {
		insertable = append(insertable, name)
		field := b.m.Fields[name]
		if pk[name] || field.SkipOnUpdate {
			continue
		}
		updatable = append(updatable, name)
	}

	b.m.insertable = insertable
	b.m.updatable = updatable
	return b.m
}
