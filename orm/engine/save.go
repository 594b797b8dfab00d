// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package engine

import (
	"context"
	"fmt"

	"github.com/taibuivan/orm1go/orm/ast"
	"github.com/taibuivan/orm1go/orm/identity"
	"github.com/taibuivan/orm1go/orm/mapping"
	"github.com/taibuivan/orm1go/orm/ormerr"
	"github.com/taibuivan/orm1go/pkg/slice"
)

// save splits entities into those already tracked (updated) and those not
// yet tracked (inserted), executes both batches, then reconciles every
// mapped child level: children previously tracked under a saved parent but
// no longer attached to it are deleted, and children still or newly
// attached are stamped with their parent's primary key and recursively
// saved.
func (e *Engine) save(ctx context.Context, m *mapping.Mapping, entities []any) error {
	if len(entities) == 0 {
		return nil
	}

	var toUpdate, toInsert []any
	for _, ent := range entities {
		id := e.identityOfEntity(m, ent)
		if _, tracked := e.idmap.Get(id); tracked {
			toUpdate = append(toUpdate, ent)
		} else {
			toInsert = append(toInsert, ent)
		}
	}

	if len(toUpdate) > 0 {
		if err := e.update(ctx, m, toUpdate); err != nil {
			return err
		}
	}
	if len(toInsert) > 0 {
		if err := e.insert(ctx, m, toInsert); err != nil {
			return err
		}
	}

	for _, child := range orderedChildren(m) {
		if err := e.reconcileChild(ctx, m, child, entities); err != nil {
			return err
		}
	}
	return nil
}

// update executes a batched UPDATE over entities (already tracked), writing
// each RETURNING row back into the entity that produced it.
func (e *Engine) update(ctx context.Context, m *mapping.Mapping, entities []any) error {
	us := buildUpdate(m)
	full := m.Full()

	maps := make([]ast.ParamMap, len(entities))
	for i, ent := range entities {
		pm := make(ast.ParamMap, len(us.updatableParamID)+len(us.pkParamID))
		for j, f := range us.updatableFields {
			pm[us.updatableParamID[j]] = m.Fields[f].Accessor.Get(ent)
		}
		for j, f := range us.pkFields {
			pm[us.pkParamID[j]] = m.Fields[f].Accessor.Get(ent)
		}
		maps[i] = pm
	}

	e.logDebug("update", m.TypeName(), len(entities))
	rows, err := e.be.Update(ctx, us.stmt, maps)
	if err != nil {
		return err
	}
	if len(rows) != len(entities) {
		return ormerr.InvariantViolation(fmt.Sprintf(
			"update of %s returned %d row(s) for %d input(s)", m.TypeName(), len(rows), len(entities)))
	}

	for i, row := range rows {
		values := rowToFieldValues(full, row)
		hydrate(m, full, values, entities[i])
	}
	return nil
}

// insert executes a batched INSERT over entities (not yet tracked), writing
// each RETURNING row back into the entity that produced it and tracking the
// resulting identity.
func (e *Engine) insert(ctx context.Context, m *mapping.Mapping, entities []any) error {
	stmt, insertableFields, paramIDs := buildInsert(m)
	full := m.Full()

	maps := make([]ast.ParamMap, len(entities))
	for i, ent := range entities {
		pm := make(ast.ParamMap, len(insertableFields))
		for j, f := range insertableFields {
			pm[paramIDs[j]] = m.Fields[f].Accessor.Get(ent)
		}
		maps[i] = pm
	}

	e.logDebug("insert", m.TypeName(), len(entities))
	rows, err := e.be.Insert(ctx, stmt, maps)
	if err != nil {
		return err
	}

	for i, row := range rows {
		values := rowToFieldValues(full, row)
		hydrate(m, full, values, entities[i])
		e.idmap.Track(e.identityOfEntity(m, entities[i]), entities[i])
	}
	return nil
}

// reconcileChild diffs, under every one of savedParents, the children
// previously tracked against the children currently attached, deletes the
// ones no longer attached, and recursively saves the ones that remain or are
// newly attached (after stamping each with its parent's primary key).
func (e *Engine) reconcileChild(ctx context.Context, parentMapping *mapping.Mapping, child mapping.ChildDef, savedParents []any) error {
	childMapping, err := e.catalog.GetByType(child.TargetType)
	if err != nil {
		return err
	}

	previous := map[string]any{}
	current := map[string]bool{}
	var attached []any

	for _, parent := range savedParents {
		parentPK := e.keyFromEntity(parentMapping, parentMapping.PrimaryKey, parent)

		for k, v := range e.idmap.ByParent(childMapping.EntityType, parentPK) {
			previous[k] = v
		}

		for _, c := range childEntitiesOf(child, parent) {
			e.stampParentalKey(childMapping, c, parentPK)
			id := e.identityOfEntity(childMapping, c)
			current[identity.KeyString(id.PrimaryKey)] = true
			attached = append(attached, c)
		}
	}

	previousKeys := make([]string, 0, len(previous))
	for k := range previous {
		previousKeys = append(previousKeys, k)
	}
	staleKeys := slice.Filter(previousKeys, func(k string) bool { return !current[k] })
	toDelete := slice.Map(staleKeys, func(k string) any { return previous[k] })

	if len(toDelete) > 0 {
		if err := e.delete(ctx, childMapping, toDelete); err != nil {
			return err
		}
	}

	if len(attached) > 0 {
		if err := e.save(ctx, childMapping, attached); err != nil {
			return err
		}
	}
	return nil
}
