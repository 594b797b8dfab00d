// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package cursor implements keyset (seek-method) pagination over a
[query.Builder]: given a forward or backward page size and an optional
opaque cursor, it resolves the cursor to its underlying sort-key values,
synthesizes the composite tuple-comparison predicate that selects rows
strictly after (or before) it, and probes one extra row to report whether
another page exists in either direction.

The builder's own ORDER BY is always extended with the root mapping's
primary-key columns (ascending, nulls last) before pagination runs, so
every page is taken over a total order even when the caller's ordering
alone cannot distinguish two rows.
*/
package cursor

import (
	"context"

	"github.com/taibuivan/orm1go/orm/ast"
	"github.com/taibuivan/orm1go/orm/backend"
	"github.com/taibuivan/orm1go/orm/identity"
	"github.com/taibuivan/orm1go/orm/ormerr"
	"github.com/taibuivan/orm1go/orm/query"
)

// Args describes one page request. Exactly one of First or Last must be
// set. After and Before are opaque cursor values previously returned in a
// [Page]'s Cursors slice (a scalar for a single-column primary key, a
// []any tuple otherwise).
type Args struct {
	First  *int
	After  any
	Last   *int
	Before any
	Offset int
}

// Page is one slice of a keyset-paginated result.
type Page struct {
	Entities        []any
	Cursors         []any
	HasPreviousPage bool
	HasNextPage     bool
}

// Paginate executes b's accumulated SELECT under keyset pagination, per
// args, and resolves the returned primary keys through b's engine.
func Paginate(ctx context.Context, b *query.Builder, args Args) (*Page, error) {
	limit, err := pageSize(args)
	if err != nil {
		return nil, err
	}

	backward := args.Last != nil
	order := effectiveOrder(b)
	if backward {
		order = reverseOrder(order)
	}

	alloc := b.Context().Alloc
	pm := b.ParamMap()

	stmt := b.Select(nil, nil)
	stmt.OrderBy = order

	var cursorValue any
	if args.After != nil {
		cursorValue = args.After
	} else if args.Before != nil {
		cursorValue = args.Before
	}

	if cursorValue != nil {
		vals, err := resolveCursorRow(ctx, b, cursorValue, order)
		if err != nil {
			return nil, err
		}
		vNodes := make([]ast.Node, len(vals))
		for i, v := range vals {
			id := alloc.Next()
			pm[id] = v
			vNodes[i] = ast.Param{ID: id}
		}
		predicate := buildPredicate(order, vNodes)
		stmt.Having = andNode(stmt.Having, predicate)
	}

	limitID := alloc.Next()
	pm[limitID] = limit + 1
	stmt.Limit = ast.Param{ID: limitID}

	if args.Offset > 0 {
		offsetID := alloc.Next()
		pm[offsetID] = args.Offset
		stmt.Offset = ast.Param{ID: offsetID}
	}

	rows, err := b.Backend().Select(ctx, stmt, []ast.ParamMap{pm})
	if err != nil {
		return nil, err
	}

	hasExtra := len(rows) > limit
	if hasExtra {
		rows = rows[:limit]
	}

	var hasNext, hasPrev bool
	if backward {
		hasPrev = hasExtra
		hasNext = args.Before != nil
		reverseRows(rows)
	} else {
		hasNext = hasExtra
		hasPrev = args.After != nil
	}
	if args.Offset > 0 {
		hasPrev = true
	}

	keys := make([]identity.Key, len(rows))
	cursors := make([]any, len(rows))
	for i, row := range rows {
		k := make(identity.Key, len(row))
		copy(k, row)
		keys[i] = k
		cursors[i] = cursorValueFromKey(k)
	}

	entities, err := b.Engine().BatchGet(ctx, b.Mapping().EntityType, keys)
	if err != nil {
		return nil, err
	}

	return &Page{Entities: entities, Cursors: cursors, HasPreviousPage: hasPrev, HasNextPage: hasNext}, nil
}

func pageSize(args Args) (int, error) {
	switch {
	case args.First != nil && args.Last == nil:
		return *args.First, nil
	case args.Last != nil && args.First == nil:
		return *args.Last, nil
	default:
		return 0, ormerr.InvariantViolation("exactly one of first or last must be set")
	}
}

// effectiveOrder appends one ascending, nulls-last entry per root
// primary-key column to the builder's user-declared order, so pagination
// always runs over a total order.
func effectiveOrder(b *query.Builder) []ast.OrderByTerm {
	out := b.OrderByTerms()
	for _, c := range b.PrimaryKeyColumns() {
		out = append(out, ast.OrderByTerm{Expr: c, Ascending: true, NullsLast: true})
	}
	return out
}

// reverseOrder flips every entry's direction and nulls polarity, so a
// "last N" request still issues a "forward" keyset predicate and LIMIT
// against the reversed order, and the caller reverses the resulting rows
// back into ascending order afterward.
func reverseOrder(order []ast.OrderByTerm) []ast.OrderByTerm {
	out := make([]ast.OrderByTerm, len(order))
	for i, o := range order {
		out[i] = ast.OrderByTerm{Expr: o.Expr, Ascending: !o.Ascending, NullsLast: !o.NullsLast}
	}
	return out
}

// resolveCursorRow looks up the concrete sort-key values a previously
// issued cursor corresponds to, by selecting order's expressions for the
// row matching cursorValue's primary key.
func resolveCursorRow(ctx context.Context, b *query.Builder, cursorValue any, order []ast.OrderByTerm) ([]any, error) {
	pkEq, pkParams := b.PrimaryKeyEquals(cursorValue)

	cols := make([]ast.Node, len(order))
	for i, o := range order {
		cols[i] = o.Expr
	}

	stmt := b.Select(nil, nil)
	stmt.Columns = cols
	stmt.Where = andNode(stmt.Where, pkEq)
	stmt.OrderBy = nil

	pm := b.ParamMap().Merge(pkParams)
	rows, err := b.Backend().Select(ctx, stmt, []ast.ParamMap{pm})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ormerr.InvariantViolation("cursor does not resolve to any row")
	}
	return rows[0], nil
}

// buildPredicate synthesizes the composite tuple-comparison condition
// selecting every row that sorts strictly after vals under order: the OR,
// over each order position i, of ties on every earlier column ANDed with a
// strict comparison on column i.
func buildPredicate(order []ast.OrderByTerm, vals []ast.Node) ast.Node {
	orTerms := make([]ast.Node, len(order))
	for i := range order {
		andTerms := make([]ast.Node, i+1)
		for j := 0; j < i; j++ {
			andTerms[j] = tieTerm(order[j], vals[j])
		}
		andTerms[i] = decisiveTerm(order[i], vals[i])
		if len(andTerms) == 1 {
			orTerms[i] = andTerms[0]
		} else {
			orTerms[i] = ast.All{Children: andTerms}
		}
	}
	if len(orTerms) == 1 {
		return orTerms[0]
	}
	return ast.Any{Children: orTerms}
}

// tieTerm is true when column o's value on the candidate row equals v,
// treating two nulls as tied.
func tieTerm(o ast.OrderByTerm, v ast.Node) ast.Node {
	return ast.Any{Children: []ast.Node{
		ast.Eq{Left: v, Right: o.Expr},
		ast.All{Children: []ast.Node{ast.IsNull{Expr: v}, ast.IsNull{Expr: o.Expr}}},
	}}
}

// decisiveTerm is true when column o's value on the candidate row sorts
// strictly after v under o's own (already direction-normalized) ordering.
func decisiveTerm(o ast.OrderByTerm, v ast.Node) ast.Node {
	var cmp ast.Node
	if o.Ascending {
		cmp = ast.Lt{Left: v, Right: o.Expr}
	} else {
		cmp = ast.Gt{Left: v, Right: o.Expr}
	}

	var nullsClause ast.Node
	if o.NullsLast {
		nullsClause = ast.All{Children: []ast.Node{ast.IsNotNull{Expr: v}, ast.IsNull{Expr: o.Expr}}}
	} else {
		nullsClause = ast.All{Children: []ast.Node{ast.IsNull{Expr: v}, ast.IsNotNull{Expr: o.Expr}}}
	}
	return ast.Any{Children: []ast.Node{cmp, nullsClause}}
}

func andNode(existing, next ast.Node) ast.Node {
	if existing == nil {
		return next
	}
	return ast.All{Children: []ast.Node{existing, next}}
}

func reverseRows(rows []backend.Row) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

// cursorValueFromKey renders a resolved primary-key row as the opaque
// cursor value callers round-trip back into [Args.After]/[Args.Before]: a
// scalar for a single-column key, a []any tuple otherwise.
func cursorValueFromKey(k identity.Key) any {
	if len(k) == 1 {
		return k[0]
	}
	return []any(k)
}
