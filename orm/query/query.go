// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package query implements the user-facing composable query builder:
session.Query(type, alias) returns a [Builder] that accumulates joins,
where/having conditions and an order-by list, then projects the root
mapping's primary-key columns through a backend SELECT and hands the
resulting keys to the aggregate engine's batch_get.

Every fragment accepted by [Builder.Where], [Builder.Having],
[Builder.Join] and [Builder.OrderBy] is parsed through one shared
[sqlfrag.Context], so a ":name" placeholder reused across several calls
binds to a single parameter, exactly as it would within one hand-written
fragment.
*/
package query

import (
	"context"
	"reflect"

	"github.com/taibuivan/orm1go/orm/ast"
	"github.com/taibuivan/orm1go/orm/backend"
	"github.com/taibuivan/orm1go/orm/engine"
	"github.com/taibuivan/orm1go/orm/identity"
	"github.com/taibuivan/orm1go/orm/mapping"
	"github.com/taibuivan/orm1go/orm/sqlfrag"
)

// Builder accumulates a composable SELECT over one root mapped type. Build
// one with [New]; it is not safe for concurrent use, matching every other
// session-scoped collaborator in this module.
type Builder struct {
	catalog *mapping.Catalog
	be      backend.Backend
	eng     *engine.Engine

	m     *mapping.Mapping
	alias string

	fragCtx *sqlfrag.Context
	params  ast.ParamMap
	joins   []ast.Join
	wheres  []ast.Node
	havings []ast.Node
	orderBy []ast.OrderByTerm
}

// New starts a Builder over typ, projected through alias.
func New(catalog *mapping.Catalog, be backend.Backend, eng *engine.Engine, typ reflect.Type, alias string) (*Builder, error) {
	m, err := catalog.GetByType(typ)
	if err != nil {
		return nil, err
	}
	return &Builder{
		catalog: catalog,
		be:      be,
		eng:     eng,
		m:       m,
		alias:   alias,
		fragCtx: sqlfrag.NewContext(),
		params:  ast.ParamMap{},
	}, nil
}

// Mapping returns the root mapping this builder projects.
func (b *Builder) Mapping() *mapping.Mapping { return b.m }

// Alias returns the root table's alias in the rendered SELECT.
func (b *Builder) Alias() string { return b.alias }

// Context returns the builder's shared parameter-ID context, so a caller
// composing additional fragments outside the Where/Having/OrderBy helpers
// (the cursor paginator, for instance) allocates from the same namespace.
func (b *Builder) Context() *sqlfrag.Context { return b.fragCtx }

func (b *Builder) parse(fragment string, values map[string]any) (ast.Node, error) {
	node, pm, err := b.fragCtx.Parse(fragment, values)
	if err != nil {
		return nil, err
	}
	b.params = b.params.Merge(pm)
	return node, nil
}

// Join adds a JOIN or LEFT JOIN against target (a table reference or a raw
// SQL fragment node), aliased as alias, with an ON condition parsed from
// onFragment.
func (b *Builder) Join(kind ast.JoinKind, target ast.Node, alias, onFragment string, values map[string]any) (*Builder, error) {
	on, err := b.parse(onFragment, values)
	if err != nil {
		return b, err
	}
	b.joins = append(b.joins, ast.Join{Kind: kind, Target: target, Alias: alias, On: on})
	return b, nil
}

// JoinMapped joins another mapped type's table, aliased as alias.
func (b *Builder) JoinMapped(kind ast.JoinKind, targetType reflect.Type, alias, onFragment string, values map[string]any) (*Builder, error) {
	target, err := b.catalog.GetByType(targetType)
	if err != nil {
		return b, err
	}
	return b.Join(kind, target.TableRefNode(), alias, onFragment, values)
}

// Where ANDs a parsed condition into the builder's WHERE clause. Multiple
// calls AND together.
func (b *Builder) Where(fragment string, values map[string]any) (*Builder, error) {
	node, err := b.parse(fragment, values)
	if err != nil {
		return b, err
	}
	b.wheres = append(b.wheres, node)
	return b, nil
}

// Having ANDs a parsed condition into the builder's HAVING clause. Multiple
// calls AND together.
func (b *Builder) Having(fragment string, values map[string]any) (*Builder, error) {
	node, err := b.parse(fragment, values)
	if err != nil {
		return b, err
	}
	b.havings = append(b.havings, node)
	return b, nil
}

// AddHaving ANDs a pre-built Node into the HAVING clause without going
// through fragment parsing.
func (b *Builder) AddHaving(n ast.Node) {
	b.havings = append(b.havings, n)
}

// OrderBy appends one ORDER BY entry parsed from expr.
func (b *Builder) OrderBy(expr string, values map[string]any, ascending, nullsLast bool) (*Builder, error) {
	node, err := b.parse(expr, values)
	if err != nil {
		return b, err
	}
	b.orderBy = append(b.orderBy, ast.OrderByTerm{Expr: node, Ascending: ascending, NullsLast: nullsLast})
	return b, nil
}

// OrderByTerms returns the builder's accumulated ORDER BY list, in the
// order it was declared.
func (b *Builder) OrderByTerms() []ast.OrderByTerm {
	return append([]ast.OrderByTerm{}, b.orderBy...)
}

// SetOrderByTerms replaces the builder's ORDER BY list wholesale.
func (b *Builder) SetOrderByTerms(terms []ast.OrderByTerm) {
	b.orderBy = terms
}

// PrimaryKeyColumns returns the root mapping's primary-key columns,
// qualified by this builder's alias.
func (b *Builder) PrimaryKeyColumns() []ast.Node {
	return b.qualifiedColumns(b.m.PrimaryKey)
}

// PrimaryKeyEquals builds a predicate constraining the root mapping's
// primary key to value (a scalar for a single-column key, a []any tuple
// otherwise), allocating fresh ParamIDs from this builder's own Context so
// the predicate composes with statements sharing it — used by the cursor
// paginator to resolve a cursor to its underlying row.
func (b *Builder) PrimaryKeyEquals(value any) (ast.Node, ast.ParamMap) {
	cols := b.PrimaryKeyColumns()
	vals := toKeyTuple(value, len(cols))

	pm := ast.ParamMap{}
	eqs := make([]ast.Node, len(cols))
	for i, c := range cols {
		id := b.fragCtx.Alloc.Next()
		pm[id] = vals[i]
		eqs[i] = ast.Eq{Left: c, Right: ast.Param{ID: id}}
	}
	if len(eqs) == 1 {
		return eqs[0], pm
	}
	return ast.All{Children: eqs}, pm
}

func toKeyTuple(value any, n int) []any {
	if t, ok := value.([]any); ok {
		return t
	}
	if n == 1 {
		return []any{value}
	}
	return nil
}

func (b *Builder) qualifiedColumns(fields []string) []ast.Node {
	cols := b.m.Columns(fields)
	nodes := make([]ast.Node, len(cols))
	for i, c := range cols {
		nodes[i] = ast.QName{Qualifier: b.alias, Ident: c}
	}
	return nodes
}

// conjunction parenthesizes each condition so a fragment such as "a OR b"
// keeps its own precedence, then ANDs them together.
func conjunction(conds []ast.Node) ast.Node {
	if len(conds) == 0 {
		return nil
	}
	wrapped := make([]ast.Node, len(conds))
	for i, c := range conds {
		wrapped[i] = ast.Fragment{Children: []ast.Node{ast.Text{Literal: "("}, c, ast.Text{Literal: ")"}}}
	}
	if len(wrapped) == 1 {
		return wrapped[0]
	}
	return ast.All{Children: wrapped}
}

func (b *Builder) combinedWhere() ast.Node {
	return conjunction(b.wheres)
}

func (b *Builder) combinedHaving() ast.Node {
	return conjunction(b.havings)
}

// Select renders the builder's accumulated state into a *ast.Select
// projecting the root mapping's primary-key columns, grouped by those same
// columns (joins may fan out rows; the projection is a set of distinct
// primary keys). limit and offset are caller-supplied AST nodes (typically
// ast.Param) so the cursor paginator can drive its own LIMIT(limit+1)
// probing without duplicating clause assembly.
func (b *Builder) Select(limit, offset ast.Node) *ast.Select {
	pkCols := b.PrimaryKeyColumns()
	return &ast.Select{
		Columns: pkCols,
		From:    ast.TableRef{Schema: b.m.Schema, Table: b.m.Table},
		Alias:   b.alias,
		Joins:   append([]ast.Join{}, b.joins...),
		Where:   b.combinedWhere(),
		GroupBy: pkCols,
		Having:  b.combinedHaving(),
		OrderBy: append([]ast.OrderByTerm{}, b.orderBy...),
		Limit:   limit,
		Offset:  offset,
	}
}

// ParamMap returns the parameter bindings accumulated from every fragment
// parsed through this builder so far.
func (b *Builder) ParamMap() ast.ParamMap {
	return b.params.Merge(nil)
}

// Engine returns the aggregate engine this builder's Fetch delegates to —
// used by the cursor paginator, which drives its own SELECT against the
// same backend and engine rather than calling Fetch directly.
func (b *Builder) Engine() *engine.Engine { return b.eng }

// Backend returns the backend this builder executes against.
func (b *Builder) Backend() backend.Backend { return b.be }

// Fetch executes "SELECT primary-cols ... LIMIT :limit OFFSET :offset",
// then resolves the returned primary keys through the aggregate engine's
// batch_get, returning entities in result order.
func (b *Builder) Fetch(ctx context.Context, limit, offset int) ([]any, error) {
	alloc := b.fragCtx.Alloc
	limitID, offsetID := alloc.Next(), alloc.Next()

	stmt := b.Select(ast.Param{ID: limitID}, ast.Param{ID: offsetID})
	pm := b.ParamMap()
	pm[limitID] = limit
	pm[offsetID] = offset

	rows, err := b.be.Select(ctx, stmt, []ast.ParamMap{pm})
	if err != nil {
		return nil, err
	}

	keys := make([]identity.Key, len(rows))
	for i, row := range rows {
		k := make(identity.Key, len(row))
		copy(k, row)
		keys[i] = k
	}

	return b.eng.BatchGet(ctx, b.m.EntityType, keys)
}

// Count executes "SELECT COUNT(*) FROM (...) _" over the builder's
// accumulated SELECT, ignoring LIMIT/OFFSET.
func (b *Builder) Count(ctx context.Context) (int64, error) {
	stmt := b.Select(nil, nil)
	return b.be.Count(ctx, stmt, b.ParamMap())
}
