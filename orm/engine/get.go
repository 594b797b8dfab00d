// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package engine

import (
	"context"

	"github.com/taibuivan/orm1go/orm/ast"
	"github.com/taibuivan/orm1go/orm/identity"
	"github.com/taibuivan/orm1go/orm/mapping"
)

// get resolves one row per key in keys, matched against whereFields (the
// root caller passes m.PrimaryKey; recursive calls for a child level pass
// the child mapping's ParentalKey), then recursively resolves every mapped
// child level beneath m. The result maps the string form of each resolved
// row's primary key to the tracked entity instance; the accompanying slice
// carries those same primary keys in the backend's row order, so a caller
// grouping children by parent can preserve that order instead of ranging
// over the map.
func (e *Engine) get(ctx context.Context, m *mapping.Mapping, whereFields []string, keys []identity.Key) (map[string]any, []identity.Key, error) {
	if len(keys) == 0 {
		return map[string]any{}, nil, nil
	}

	full := m.Full()
	stmt, paramIDs := buildSelectByKey(m, whereFields)

	maps := make([]ast.ParamMap, len(keys))
	for i, k := range keys {
		pm := make(ast.ParamMap, len(paramIDs))
		for j, id := range paramIDs {
			pm[id] = k[j]
		}
		maps[i] = pm
	}

	e.logDebug("select", m.TypeName(), len(keys))
	rows, err := e.be.Select(ctx, stmt, maps)
	if err != nil {
		return nil, nil, err
	}

	result := make(map[string]any, len(rows))
	primaryKeys := make([]identity.Key, 0, len(rows))

	for _, row := range rows {
		values := rowToFieldValues(full, row)
		pk := extractKeyFromValues(m.PrimaryKey, values)
		parental := extractKeyFromValues(m.ParentalKey, values)
		id := identity.Identity{Type: m.EntityType, ParentalKey: parental, PrimaryKey: pk}

		entity, tracked := e.idmap.Get(id)
		if !tracked {
			entity = m.Factory()
		}
		hydrate(m, full, values, entity)
		e.idmap.Track(id, entity)

		result[identity.KeyString(pk)] = entity
		primaryKeys = append(primaryKeys, pk)
	}

	for _, child := range orderedChildren(m) {
		childMapping, err := e.catalog.GetByType(child.TargetType)
		if err != nil {
			return nil, nil, err
		}

		childResults, childKeys, err := e.get(ctx, childMapping, childMapping.ParentalKey, primaryKeys)
		if err != nil {
			return nil, nil, err
		}

		grouped := map[string][]any{}
		for _, childPK := range childKeys {
			childEntity := childResults[identity.KeyString(childPK)]
			parentPK := e.keyFromEntity(childMapping, childMapping.ParentalKey, childEntity)
			key := identity.KeyString(parentPK)
			grouped[key] = append(grouped[key], childEntity)
		}

		for pkStr, parentEntity := range result {
			assignChildren(child, parentEntity, grouped[pkStr])
		}
	}

	return result, primaryKeys, nil
}
