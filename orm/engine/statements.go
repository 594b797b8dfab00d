// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package engine

import (
	"github.com/taibuivan/orm1go/orm/ast"
	"github.com/taibuivan/orm1go/orm/backend"
	"github.com/taibuivan/orm1go/orm/identity"
	"github.com/taibuivan/orm1go/orm/mapping"
)

// columnNodes translates fields into Name nodes over m's physical columns.
func columnNodes(m *mapping.Mapping, fields []string) []ast.Node {
	cols := m.Columns(fields)
	nodes := make([]ast.Node, len(cols))
	for i, c := range cols {
		nodes[i] = ast.Name{Ident: c}
	}
	return nodes
}

// buildSelectByKey builds "SELECT <full> FROM t WHERE all(whereFields =
// :param)" and returns the statement alongside one ParamID per whereField,
// in the same order.
func buildSelectByKey(m *mapping.Mapping, whereFields []string) (*ast.Select, []ast.ParamID) {
	alloc := ast.NewIDAllocator()
	full := m.Full()

	eqs := make([]ast.Node, len(whereFields))
	ids := make([]ast.ParamID, len(whereFields))
	for i, f := range whereFields {
		id := alloc.Next()
		ids[i] = id
		eqs[i] = ast.Eq{Left: ast.Name{Ident: m.Fields[f].Column}, Right: ast.Param{ID: id}}
	}

	return &ast.Select{
		Columns: columnNodes(m, full),
		From:    ast.TableRef{Schema: m.Schema, Table: m.Table},
		Alias:   "t",
		Where:   ast.All{Children: eqs},
	}, ids
}

// buildInsert builds "INSERT INTO t (insertable...) VALUES (:param...)
// RETURNING <full>" and returns the statement, the insertable field order
// and one ParamID per insertable field, in the same order.
func buildInsert(m *mapping.Mapping) (*ast.Insert, []string, []ast.ParamID) {
	alloc := ast.NewIDAllocator()
	fields := m.Insertable()
	full := m.Full()

	values := make([]ast.Node, len(fields))
	ids := make([]ast.ParamID, len(fields))
	for i := range fields {
		id := alloc.Next()
		ids[i] = id
		values[i] = ast.Param{ID: id}
	}

	return &ast.Insert{
		Into:      ast.TableRef{Schema: m.Schema, Table: m.Table},
		Columns:   m.Columns(fields),
		Values:    values,
		Returning: columnNodes(m, full),
	}, fields, ids
}

// updateStatement bundles an UPDATE and the field/ParamID orders needed to
// build its per-entity ParamMaps.
type updateStatement struct {
	stmt             *ast.Update
	updatableFields  []string
	updatableParamID []ast.ParamID
	pkFields         []string
	pkParamID        []ast.ParamID
}

// buildUpdate builds "UPDATE t SET updatable = :param... WHERE
// all(pk = :param...) RETURNING <full>".
func buildUpdate(m *mapping.Mapping) updateStatement {
	alloc := ast.NewIDAllocator()
	updatable := m.Updatable()
	pk := m.PrimaryKey
	full := m.Full()

	sets := make([]ast.SetClause, len(updatable))
	setIDs := make([]ast.ParamID, len(updatable))
	for i, f := range updatable {
		id := alloc.Next()
		setIDs[i] = id
		sets[i] = ast.SetClause{Column: m.Fields[f].Column, Expr: ast.Param{ID: id}}
	}

	whereEqs := make([]ast.Node, len(pk))
	pkIDs := make([]ast.ParamID, len(pk))
	for i, f := range pk {
		id := alloc.Next()
		pkIDs[i] = id
		whereEqs[i] = ast.Eq{Left: ast.Name{Ident: m.Fields[f].Column}, Right: ast.Param{ID: id}}
	}

	return updateStatement{
		stmt: &ast.Update{
			Table:     ast.TableRef{Schema: m.Schema, Table: m.Table},
			Sets:      sets,
			Where:     ast.All{Children: whereEqs},
			Returning: columnNodes(m, full),
		},
		updatableFields:  updatable,
		updatableParamID: setIDs,
		pkFields:         pk,
		pkParamID:        pkIDs,
	}
}

// buildDelete builds "DELETE FROM t WHERE all(key = :param...) RETURNING
// <key>", where key is primary key followed by parental key.
func buildDelete(m *mapping.Mapping) (*ast.Delete, []string, []ast.ParamID) {
	alloc := ast.NewIDAllocator()
	key := m.Key()

	eqs := make([]ast.Node, len(key))
	ids := make([]ast.ParamID, len(key))
	for i, f := range key {
		id := alloc.Next()
		ids[i] = id
		eqs[i] = ast.Eq{Left: ast.Name{Ident: m.Fields[f].Column}, Right: ast.Param{ID: id}}
	}

	return &ast.Delete{
		From:      ast.TableRef{Schema: m.Schema, Table: m.Table},
		Where:     ast.All{Children: eqs},
		Returning: columnNodes(m, key),
	}, key, ids
}

// rowToFieldValues zips fields (in the order a statement's projection/
// RETURNING clause was built) against one result row, naming every value.
func rowToFieldValues(fields []string, row backend.Row) map[string]any {
	out := make(map[string]any, len(fields))
	for i, f := range fields {
		out[f] = row[i]
	}
	return out
}

// hydrate writes values into entity via m's accessors, for every name in
// fields.
func hydrate(m *mapping.Mapping, fields []string, values map[string]any, entity any) {
	for _, f := range fields {
		m.Fields[f].Accessor.Set(entity, values[f])
	}
}

// extractKeyFromValues builds a Key by looking up names in values, in order.
func extractKeyFromValues(names []string, values map[string]any) identity.Key {
	k := make(identity.Key, len(names))
	for i, n := range names {
		k[i] = values[n]
	}
	return k
}
