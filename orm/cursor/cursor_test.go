// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package cursor_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/orm1go/orm/ast"
	"github.com/taibuivan/orm1go/orm/backend"
	"github.com/taibuivan/orm1go/orm/cursor"
	"github.com/taibuivan/orm1go/orm/engine"
	"github.com/taibuivan/orm1go/orm/identity"
	"github.com/taibuivan/orm1go/orm/mapping"
	"github.com/taibuivan/orm1go/orm/query"
)

// Widget is a single-level, single-column-key aggregate used only by these
// tests; they add no ORDER BY of their own, so pages follow the primary key.
type Widget struct {
	ID   int
	Rank int
	Name string
}

func buildCatalog(t *testing.T) (*mapping.Catalog, *pagedBackend) {
	t.Helper()

	m := mapping.NewBuilder(reflect.TypeOf(Widget{}), func() any { return &Widget{} }, "public", "widgets").
		Field("ID", "id", mapping.NewReflectAccessor("ID"), false).
		Field("Rank", "rank", mapping.NewReflectAccessor("Rank"), false).
		Field("Name", "name", mapping.NewReflectAccessor("Name"), false).
		PrimaryKey("ID").
		Build()

	catalog := mapping.NewCatalog()
	catalog.Register(m)
	require.NoError(t, catalog.ValidateAll())

	rows := []fakeRow{
		{"id": 1, "rank": 10, "name": "a"},
		{"id": 2, "rank": 20, "name": "b"},
		{"id": 3, "rank": 20, "name": "c"},
		{"id": 4, "rank": 30, "name": "d"},
		{"id": 5, "rank": 40, "name": "e"},
	}
	return catalog, &pagedBackend{rows: rows}
}

func newBuilder(t *testing.T, catalog *mapping.Catalog, be *pagedBackend) *query.Builder {
	t.Helper()
	eng := engine.New(catalog, identity.New(), be, nil)
	b, err := query.New(catalog, be, eng, reflect.TypeOf(Widget{}), "t")
	require.NoError(t, err)
	return b
}

func names(page *cursor.Page) []string {
	out := make([]string, len(page.Entities))
	for i, e := range page.Entities {
		out[i] = e.(*Widget).Name
	}
	return out
}

func TestPaginateFirstPageHasNoPreviousPage(t *testing.T) {
	catalog, be := buildCatalog(t)
	b := newBuilder(t, catalog, be)

	first := 2
	page, err := cursor.Paginate(context.Background(), b, cursor.Args{First: &first})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, names(page))
	assert.False(t, page.HasPreviousPage)
	assert.True(t, page.HasNextPage)
	require.Len(t, page.Cursors, 2)
}

func TestPaginateAfterCursorResumesForward(t *testing.T) {
	catalog, be := buildCatalog(t)
	b := newBuilder(t, catalog, be)

	first := 2
	firstPage, err := cursor.Paginate(context.Background(), b, cursor.Args{First: &first})
	require.NoError(t, err)

	b2 := newBuilder(t, catalog, be)
	secondPage, err := cursor.Paginate(context.Background(), b2, cursor.Args{
		First: &first,
		After: firstPage.Cursors[len(firstPage.Cursors)-1],
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "d"}, names(secondPage))
	assert.True(t, secondPage.HasPreviousPage)
	assert.True(t, secondPage.HasNextPage)
}

func TestPaginateLastPageHasNoNextPage(t *testing.T) {
	catalog, be := buildCatalog(t)
	b := newBuilder(t, catalog, be)

	first := 10
	page, err := cursor.Paginate(context.Background(), b, cursor.Args{First: &first})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, names(page))
	assert.False(t, page.HasNextPage)
}

func TestPaginateLastReturnsAscendingTail(t *testing.T) {
	catalog, be := buildCatalog(t)
	b := newBuilder(t, catalog, be)

	last := 2
	page, err := cursor.Paginate(context.Background(), b, cursor.Args{Last: &last})
	require.NoError(t, err)

	assert.Equal(t, []string{"d", "e"}, names(page), "Last must still return rows in ascending order")
	assert.True(t, page.HasPreviousPage)
	assert.False(t, page.HasNextPage)
}

// --- fake backend -----------------------------------------------------
//
// pagedBackend interprets the AST the query builder and cursor paginator
// produce directly, including ORDER BY, HAVING-spliced keyset predicates
// and LIMIT/OFFSET, without involving SQL text.

type fakeRow map[string]any

type pagedBackend struct {
	rows []fakeRow
}

func valueOf(n ast.Node, row fakeRow, args ast.ParamMap) any {
	switch v := n.(type) {
	case ast.Name:
		return row[v.Ident]
	case ast.QName:
		return row[v.Ident]
	case ast.Param:
		return args[v.ID]
	case ast.Text:
		return row[v.Literal]
	case ast.Fragment:
		// An ORDER BY expression like "max(c.created_at)" parses into a
		// Fragment of Text tokens; the fixture stores the precomputed
		// aggregate under the reassembled expression text, since this fake
		// evaluates the join's already-grouped result rather than the join
		// itself.
		return row[fragmentText(v)]
	default:
		return nil
	}
}

func fragmentText(f ast.Fragment) string {
	var s string
	for _, c := range f.Children {
		if t, ok := c.(ast.Text); ok {
			s += t.Literal
		}
	}
	return s
}

func evalCond(n ast.Node, row fakeRow, args ast.ParamMap) bool {
	switch v := n.(type) {
	case ast.All:
		for _, c := range v.Children {
			if !evalCond(c, row, args) {
				return false
			}
		}
		return true
	case ast.Any:
		for _, c := range v.Children {
			if evalCond(c, row, args) {
				return true
			}
		}
		return false
	case ast.Eq:
		return valueOf(v.Left, row, args) == valueOf(v.Right, row, args)
	case ast.Lt:
		l, r := valueOf(v.Left, row, args), valueOf(v.Right, row, args)
		li, lok := l.(int)
		ri, rok := r.(int)
		return lok && rok && li < ri
	case ast.Gt:
		l, r := valueOf(v.Left, row, args), valueOf(v.Right, row, args)
		li, lok := l.(int)
		ri, rok := r.(int)
		return lok && rok && li > ri
	case ast.IsNull:
		return valueOf(v.Expr, row, args) == nil
	case ast.IsNotNull:
		return valueOf(v.Expr, row, args) != nil
	default:
		return false
	}
}

func less(order []ast.OrderByTerm, a, b fakeRow, args ast.ParamMap) bool {
	for _, o := range order {
		av, bv := valueOf(o.Expr, a, args), valueOf(o.Expr, b, args)
		aNil, bNil := av == nil, bv == nil
		if aNil && bNil {
			continue
		}
		if aNil != bNil {
			if o.NullsLast {
				return bNil
			}
			return aNil
		}
		ai, aok := av.(int)
		bi, bok := bv.(int)
		if !aok || !bok || ai == bi {
			continue
		}
		if o.Ascending {
			return ai < bi
		}
		return ai > bi
	}
	return false
}

func (b *pagedBackend) Select(_ context.Context, stmt *ast.Select, maps []ast.ParamMap) ([]backend.Row, error) {
	var out []backend.Row

	for _, pm := range maps {
		var matched []fakeRow
		for _, r := range b.rows {
			if stmt.Where != nil && !evalCond(stmt.Where, r, pm) {
				continue
			}
			if stmt.Having != nil && !evalCond(stmt.Having, r, pm) {
				continue
			}
			matched = append(matched, r)
		}

		if len(stmt.OrderBy) > 0 {
			for i := 1; i < len(matched); i++ {
				for j := i; j > 0 && less(stmt.OrderBy, matched[j], matched[j-1], pm); j-- {
					matched[j], matched[j-1] = matched[j-1], matched[j]
				}
			}
		}

		if stmt.Offset != nil {
			n := valueOf(stmt.Offset, nil, pm).(int)
			if n < len(matched) {
				matched = matched[n:]
			} else {
				matched = nil
			}
		}
		if stmt.Limit != nil {
			n := valueOf(stmt.Limit, nil, pm).(int)
			if n < len(matched) {
				matched = matched[:n]
			}
		}

		for _, r := range matched {
			row := make(backend.Row, len(stmt.Columns))
			for j, c := range stmt.Columns {
				row[j] = valueOf(c, r, pm)
			}
			out = append(out, row)
		}
	}

	return out, nil
}

func (b *pagedBackend) Insert(context.Context, *ast.Insert, []ast.ParamMap) ([]backend.Row, error) {
	return nil, nil
}
func (b *pagedBackend) Update(context.Context, *ast.Update, []ast.ParamMap) ([]backend.Row, error) {
	return nil, nil
}
func (b *pagedBackend) Delete(context.Context, *ast.Delete, []ast.ParamMap) ([]backend.Row, error) {
	return nil, nil
}
func (b *pagedBackend) Count(context.Context, *ast.Select, ast.ParamMap) (int64, error) { return 0, nil }
func (b *pagedBackend) FetchRaw(context.Context, string, []any) ([]backend.Row, error)  { return nil, nil }
func (b *pagedBackend) Begin(context.Context) error                                     { return nil }
func (b *pagedBackend) Commit(context.Context) error                                    { return nil }
func (b *pagedBackend) Rollback(context.Context) error                                  { return nil }
func (b *pagedBackend) Savepoint(context.Context, string) error                         { return nil }
func (b *pagedBackend) Release(context.Context, string) error                           { return nil }
func (b *pagedBackend) RollbackTo(context.Context, string) error                        { return nil }

var _ backend.Backend = (*pagedBackend)(nil)
