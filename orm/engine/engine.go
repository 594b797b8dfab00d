// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package engine implements the aggregate persistence engine: batched get,
save and delete over a tree-shaped entity graph rooted at one mapped type.

An Engine owns no state of its own beyond its collaborators — the mapping
catalog, the session-scoped identity map and the backend it renders
statements against. It is constructed once per [session.Session] and is not
safe for concurrent use, matching the identity map's own concurrency
contract.

The three public operations mirror the data model's description of the
engine:

  - BatchGet walks down the aggregate tree, resolving root rows by primary
    key and then resolving each mapped child level by the parent rows'
    primary keys, tracking every row it sees in the identity map.
  - BatchSave walks the same tree from the top, splitting each level into
    entities already tracked (UPDATE) and not yet tracked (INSERT), then
    diffs each saved parent's previously-tracked children against its
    currently-attached children to compute which children to delete before
    recursing into saving the ones that remain attached.
  - BatchDelete walks the tree top-down, recursively deleting every
    currently-tracked descendant of each entity before deleting the entity
    row itself, then untracks everything it removed.
*/
package engine

import (
	"context"
	"log/slog"
	"reflect"
	"sort"

	"github.com/taibuivan/orm1go/orm/backend"
	"github.com/taibuivan/orm1go/orm/identity"
	"github.com/taibuivan/orm1go/orm/mapping"
)

// Engine is the aggregate persistence engine described above.
type Engine struct {
	catalog *mapping.Catalog
	idmap   *identity.Map
	be      backend.Backend
	logger  *slog.Logger
}

// New constructs an Engine over catalog, idmap and be.
func New(catalog *mapping.Catalog, idmap *identity.Map, be backend.Backend, logger *slog.Logger) *Engine {
	return &Engine{catalog: catalog, idmap: idmap, be: be, logger: logger}
}

// BatchGet resolves one row per key for the mapped type typ, recursively
// hydrating every mapped child level. The result slice has exactly
// len(keys) entries, in the same order as keys; a key with no matching row
// yields a nil entry.
func (e *Engine) BatchGet(ctx context.Context, typ reflect.Type, keys []identity.Key) ([]any, error) {
	m, err := e.catalog.GetByType(typ)
	if err != nil {
		return nil, err
	}
	found, _, err := e.get(ctx, m, m.PrimaryKey, keys)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = found[identity.KeyString(k)]
	}
	return out, nil
}

// BatchSave saves every entity in entities, recursing into each entity's
// mapped children. Entities not yet tracked in the identity map are
// inserted; tracked entities are updated. Children attached to a saved
// parent that were previously tracked under it but are no longer attached
// are deleted.
func (e *Engine) BatchSave(ctx context.Context, typ reflect.Type, entities []any) error {
	m, err := e.catalog.GetByType(typ)
	if err != nil {
		return err
	}
	return e.save(ctx, m, entities)
}

// BatchDelete deletes every entity in entities, recursively deleting every
// descendant currently tracked under it first.
func (e *Engine) BatchDelete(ctx context.Context, typ reflect.Type, entities []any) error {
	m, err := e.catalog.GetByType(typ)
	if err != nil {
		return err
	}
	return e.delete(ctx, m, entities)
}

// identityOfEntity reads an entity's current primary and parental key
// values via its mapping's accessors.
func (e *Engine) identityOfEntity(m *mapping.Mapping, entity any) identity.Identity {
	return identity.Identity{
		Type:        m.EntityType,
		ParentalKey: e.keyFromEntity(m, m.ParentalKey, entity),
		PrimaryKey:  e.keyFromEntity(m, m.PrimaryKey, entity),
	}
}

// keyFromEntity reads names off entity via m's accessors, in order.
func (e *Engine) keyFromEntity(m *mapping.Mapping, names []string, entity any) identity.Key {
	k := make(identity.Key, len(names))
	for i, n := range names {
		k[i] = m.Fields[n].Accessor.Get(entity)
	}
	return k
}

// orderedChildren returns m's children sorted by name, so that statement
// generation and recursion order are deterministic across runs.
func orderedChildren(m *mapping.Mapping) []mapping.ChildDef {
	names := make([]string, 0, len(m.Children))
	for n := range m.Children {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]mapping.ChildDef, len(names))
	for i, n := range names {
		out[i] = m.Children[n]
	}
	return out
}

// childEntitiesOf reads the entities currently attached to parent under
// child's accessor, normalized to a slice regardless of arity. A nil
// singular child or a nil/empty plural slice yields an empty result.
func childEntitiesOf(child mapping.ChildDef, parent any) []any {
	v := child.Accessor.Get(parent)
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if child.Arity == mapping.Plural {
		if rv.Kind() != reflect.Slice {
			return nil
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return nil
	}
	return []any{v}
}

// assignChildren writes children into parent's child attribute, building a
// properly typed slice for plural children and a single pointer (or a typed
// nil) for singular ones.
func assignChildren(child mapping.ChildDef, parent any, children []any) {
	elemType := reflect.PtrTo(child.TargetType)
	if child.Arity == mapping.Plural {
		slice := reflect.MakeSlice(reflect.SliceOf(elemType), len(children), len(children))
		for i, c := range children {
			slice.Index(i).Set(reflect.ValueOf(c))
		}
		child.Accessor.Set(parent, slice.Interface())
		return
	}
	if len(children) > 0 {
		child.Accessor.Set(parent, children[0])
		return
	}
	child.Accessor.Set(parent, reflect.Zero(elemType).Interface())
}

// stampParentalKey writes parentPK into child's parental key fields,
// preparing it to be saved under its parent.
func (e *Engine) stampParentalKey(childMapping *mapping.Mapping, child any, parentPK identity.Key) {
	for i, name := range childMapping.ParentalKey {
		childMapping.Fields[name].Accessor.Set(child, parentPK[i])
	}
}

func (e *Engine) logDebug(op string, typeName string, count int) {
	if e.logger == nil {
		return
	}
	e.logger.Debug("engine batch", slog.String("op", op), slog.String("type", typeName), slog.Int("count", count))
}
