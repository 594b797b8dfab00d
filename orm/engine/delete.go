// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package engine

import (
	"context"

	"github.com/taibuivan/orm1go/orm/ast"
	"github.com/taibuivan/orm1go/orm/identity"
	"github.com/taibuivan/orm1go/orm/mapping"
)

// delete recursively deletes every currently-tracked descendant of each
// entity in entities before deleting the entities themselves, untracking
// every identity it removes.
func (e *Engine) delete(ctx context.Context, m *mapping.Mapping, entities []any) error {
	if len(entities) == 0 {
		return nil
	}

	for _, child := range orderedChildren(m) {
		childMapping, err := e.catalog.GetByType(child.TargetType)
		if err != nil {
			return err
		}

		var descendants []any
		for _, parent := range entities {
			parentPK := e.keyFromEntity(m, m.PrimaryKey, parent)
			for _, v := range e.idmap.ByParent(childMapping.EntityType, parentPK) {
				descendants = append(descendants, v)
			}
		}
		if err := e.delete(ctx, childMapping, descendants); err != nil {
			return err
		}
	}

	stmt, keyFields, paramIDs := buildDelete(m)
	maps := make([]ast.ParamMap, len(entities))
	for i, ent := range entities {
		pm := make(ast.ParamMap, len(keyFields))
		for j, f := range keyFields {
			pm[paramIDs[j]] = m.Fields[f].Accessor.Get(ent)
		}
		maps[i] = pm
	}

	e.logDebug("delete", m.TypeName(), len(entities))
	rows, err := e.be.Delete(ctx, stmt, maps)
	if err != nil {
		return err
	}

	for _, row := range rows {
		values := rowToFieldValues(keyFields, row)
		pk := extractKeyFromValues(m.PrimaryKey, values)
		parental := extractKeyFromValues(m.ParentalKey, values)
		e.idmap.Untrack(identity.Identity{Type: m.EntityType, ParentalKey: parental, PrimaryKey: pk})
	}
	return nil
}
