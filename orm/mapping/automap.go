// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mapping

import (
	"reflect"
	"strings"
	"unicode"
)

// FromStructOption configures [FromStruct].
type FromStructOption func(*fromStructConfig)

type fromStructConfig struct {
	schema string
	table  string
}

// WithSchema overrides the default "public" schema.
func WithSchema(schema string) FromStructOption {
	return func(c *fromStructConfig) { c.schema = schema }
}

// WithTable overrides the default snake_cased struct name as the table.
func WithTable(table string) FromStructOption {
	return func(c *fromStructConfig) { c.table = table }
}

// FromStruct builds a [Mapping] declaratively from a Go struct's exported
// fields and "orm" struct tags, the idiomatic-Go analogue of the reference
// implementation's class-decorator-driven automapper.
//
// Recognized tag directives, comma-separated inside `orm:"..."`:
//
//	-              field is not persisted
//	pk             field is part of the primary key
//	parental       field is part of the parental key
//	skipupdate     field is excluded from the UPDATE projection
//	column=name    overrides the default snake_case column name
//
// A plural child ([]*Target or []Target) or singular child (*Target) whose
// element type is itself a struct is detected automatically and registered
// as a [ChildDef]; its target mapping need not exist yet — ordering is
// resolved by [Catalog.ValidateAll].
//
// sample must be a pointer to the struct to map, e.g. FromStruct(&BlogPost{}).
func FromStruct(sample any, opts ...FromStructOption) *Mapping {
	ptrType := reflect.TypeOf(sample)
	structType := ptrType.Elem()

	cfg := fromStructConfig{schema: "public", table: toSnakeCase(structType.Name())}
	for _, opt := range opts {
		opt(&cfg)
	}

	factory := func() any { return reflect.New(structType).Interface() }
	b := NewBuilder(structType, factory, cfg.schema, cfg.table)

	var primaryKey, parentalKey []string

	for i := 0; i < structType.NumField(); i++ {
		f := structType.Field(i)
		if !f.IsExported() {
			continue
		}

		tag := f.Tag.Get("orm")
		directives, column := parseOrmTag(tag)
		if directives["-"] {
			continue
		}
		if column == "" {
			column = toSnakeCase(f.Name)
		}

		if child, ok := childDefFor(f); ok {
			b.Child(f.Name, child.TargetType, child.Accessor, child.Arity)
			continue
		}

		b.Field(f.Name, column, NewReflectAccessor(f.Name), directives["skipupdate"])
		if directives["pk"] {
			primaryKey = append(primaryKey, f.Name)
		}
		if directives["parental"] {
			parentalKey = append(parentalKey, f.Name)
		}
	}

	if len(primaryKey) == 0 {
		if _, ok := structType.FieldByName("ID"); ok {
			primaryKey = []string{"ID"}
		}
	}

	b.PrimaryKey(primaryKey...)
	b.ParentalKey(parentalKey...)

	return b.Build()
}

// childDefFor reports whether f describes a child relationship — a slice of
// struct pointers (plural) or a single struct pointer (singular) — and, if
// so, returns its ChildDef with a slice/pointer-aware Accessor.
func childDefFor(f reflect.StructField) (ChildDef, bool) {
	t := f.Type

	if t.Kind() == reflect.Slice {
		elem := t.Elem()
		target, ok := structTargetOf(elem)
		if !ok {
			return ChildDef{}, false
		}
		return ChildDef{
			Name:       f.Name,
			TargetType: target,
			Accessor:   NewReflectAccessor(f.Name),
			Arity:      Plural,
		}, true
	}

	if t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct {
		return ChildDef{
			Name:       f.Name,
			TargetType: t.Elem(),
			Accessor:   NewReflectAccessor(f.Name),
			Arity:      Singular,
		}, true
	}

	return ChildDef{}, false
}

// structTargetOf reports the struct type referenced by t, when t is either
// a struct or a pointer to one.
func structTargetOf(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		return t, true
	}
	return nil, false
}

// parseOrmTag splits a comma-separated "orm" tag into a directive set and
// an optional "column=" override.
func parseOrmTag(tag string) (map[string]bool, string) {
	directives := map[string]bool{}
	column := ""
	if tag == "" {
		return directives, column
	}
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "column=") {
			column = strings.TrimPrefix(part, "column=")
			continue
		}
		directives[part] = true
	}
	return directives, column
}

// toSnakeCase converts an UpperCamelCase identifier into snake_case, the
// default naming convention for table and column names. Acronym runs
// ("ID", "HTTPServer") collapse correctly: an uppercase letter only starts a
// new word when the previous rune was lowercase or the next rune is.
func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && !unicode.IsUpper(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (prevLower || nextLower) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
