// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package engine_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/orm1go/orm/ast"
	"github.com/taibuivan/orm1go/orm/backend"
	"github.com/taibuivan/orm1go/orm/engine"
	"github.com/taibuivan/orm1go/orm/identity"
	"github.com/taibuivan/orm1go/orm/mapping"
)

// Author and Book form a two-level aggregate used only by these tests:
// Author is root, Book is a plural child keyed by AuthorID.
type Author struct {
	ID    int
	Name  string
	Books []*Book
}

type Book struct {
	ID       int
	AuthorID int
	Title    string
}

func buildCatalog(t *testing.T) *mapping.Catalog {
	t.Helper()

	authorMapping := mapping.NewBuilder(reflect.TypeOf(Author{}), func() any { return &Author{} }, "public", "authors").
		Field("ID", "id", mapping.NewReflectAccessor("ID"), false).
		Field("Name", "name", mapping.NewReflectAccessor("Name"), false).
		PrimaryKey("ID").
		Child("Books", reflect.TypeOf(Book{}), mapping.FuncAccessor{
			GetFunc: func(e any) any { return e.(*Author).Books },
			SetFunc: func(e any, v any) { e.(*Author).Books = v.([]*Book) },
		}, mapping.Plural).
		Build()

	bookMapping := mapping.NewBuilder(reflect.TypeOf(Book{}), func() any { return &Book{} }, "public", "books").
		Field("ID", "id", mapping.NewReflectAccessor("ID"), false).
		Field("AuthorID", "author_id", mapping.NewReflectAccessor("AuthorID"), false).
		Field("Title", "title", mapping.NewReflectAccessor("Title"), false).
		PrimaryKey("ID").
		ParentalKey("AuthorID").
		Build()

	catalog := mapping.NewCatalog()
	catalog.Register(authorMapping)
	catalog.Register(bookMapping)
	require.NoError(t, catalog.ValidateAll())
	return catalog
}

func TestEngineSaveThenGetRoundTrips(t *testing.T) {
	catalog := buildCatalog(t)
	idmap := identity.New()
	be := newFakeBackend()
	eng := engine.New(catalog, idmap, be, nil)
	ctx := context.Background()

	author := &Author{ID: 1, Name: "Octavia", Books: []*Book{
		{ID: 10, Title: "Kindred"},
		{ID: 11, Title: "Dawn"},
	}}

	require.NoError(t, eng.BatchSave(ctx, reflect.TypeOf(Author{}), []any{author}))

	assert.Equal(t, 1, author.Books[0].AuthorID, "child must be stamped with parent's primary key before insert")
	assert.Equal(t, 1, author.Books[1].AuthorID)

	found, err := eng.BatchGet(ctx, reflect.TypeOf(Author{}), []identity.Key{{1}})
	require.NoError(t, err)
	require.Len(t, found, 1)

	got := found[0].(*Author)
	assert.Equal(t, "Octavia", got.Name)
	require.Len(t, got.Books, 2)

	var titles []string
	for _, b := range got.Books {
		titles = append(titles, b.Title)
	}
	assert.Equal(t, []string{"Kindred", "Dawn"}, titles, "children must come back in backend row order, not map-iteration order")
}

func TestEngineGetPreservesChildOrderAcrossRepeatedCalls(t *testing.T) {
	catalog := buildCatalog(t)
	idmap := identity.New()
	be := newFakeBackend()
	eng := engine.New(catalog, idmap, be, nil)
	ctx := context.Background()

	author := &Author{ID: 5, Name: "Ann", Books: []*Book{
		{ID: 50, Title: "one"},
		{ID: 51, Title: "two"},
		{ID: 52, Title: "three"},
		{ID: 53, Title: "four"},
		{ID: 54, Title: "five"},
	}}
	require.NoError(t, eng.BatchSave(ctx, reflect.TypeOf(Author{}), []any{author}))

	want := []string{"one", "two", "three", "four", "five"}
	for i := 0; i < 5; i++ {
		found, err := eng.BatchGet(ctx, reflect.TypeOf(Author{}), []identity.Key{{5}})
		require.NoError(t, err)

		var got []string
		for _, b := range found[0].(*Author).Books {
			got = append(got, b.Title)
		}
		assert.Equal(t, want, got, "child order must match backend row order on every call, not vary with map iteration")
	}
}

func TestEngineGetMissingKeyYieldsNilSlot(t *testing.T) {
	catalog := buildCatalog(t)
	eng := engine.New(catalog, identity.New(), newFakeBackend(), nil)

	found, err := eng.BatchGet(context.Background(), reflect.TypeOf(Author{}), []identity.Key{{99}})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Nil(t, found[0])
}

func TestEngineSaveDeletesDetachedChildren(t *testing.T) {
	catalog := buildCatalog(t)
	idmap := identity.New()
	be := newFakeBackend()
	eng := engine.New(catalog, idmap, be, nil)
	ctx := context.Background()

	author := &Author{ID: 2, Name: "Ursula", Books: []*Book{
		{ID: 20, Title: "Rocannon's World"},
		{ID: 21, Title: "Planet of Exile"},
	}}
	require.NoError(t, eng.BatchSave(ctx, reflect.TypeOf(Author{}), []any{author}))

	found, err := eng.BatchGet(ctx, reflect.TypeOf(Author{}), []identity.Key{{2}})
	require.NoError(t, err)
	tracked := found[0].(*Author)
	require.Len(t, tracked.Books, 2)

	// Detach "Planet of Exile" and attach a new book; re-saving the same
	// tracked instance must delete the detached child and insert the new
	// one, leaving the untouched child alone.
	tracked.Books = []*Book{
		tracked.Books[0],
		{ID: 22, Title: "City of Illusions"},
	}
	require.NoError(t, eng.BatchSave(ctx, reflect.TypeOf(Author{}), []any{tracked}))

	refetched, err := eng.BatchGet(ctx, reflect.TypeOf(Author{}), []identity.Key{{2}})
	require.NoError(t, err)
	again := refetched[0].(*Author)
	require.Len(t, again.Books, 2)

	var titles []string
	for _, b := range again.Books {
		titles = append(titles, b.Title)
	}
	assert.Equal(t, []string{"Rocannon's World", "City of Illusions"}, titles,
		"detached child must be deleted, not merely unreferenced, and remaining children keep backend row order")
}

func TestEngineDeleteCascadesToTrackedChildren(t *testing.T) {
	catalog := buildCatalog(t)
	idmap := identity.New()
	be := newFakeBackend()
	eng := engine.New(catalog, idmap, be, nil)
	ctx := context.Background()

	author := &Author{ID: 3, Name: "Samuel", Books: []*Book{{ID: 30, Title: "Babel-17"}}}
	require.NoError(t, eng.BatchSave(ctx, reflect.TypeOf(Author{}), []any{author}))

	found, err := eng.BatchGet(ctx, reflect.TypeOf(Author{}), []identity.Key{{3}})
	require.NoError(t, err)
	tracked := found[0].(*Author)

	require.NoError(t, eng.BatchDelete(ctx, reflect.TypeOf(Author{}), []any{tracked}))

	assert.Empty(t, be.tables["public.books"].rows, "deleting the root must cascade to its tracked children")
	assert.Empty(t, be.tables["public.authors"].rows)
}

// --- fake backend -----------------------------------------------------
//
// fakeBackend is an in-memory stand-in for [backend.Backend] that
// interprets the statement ASTs this package's statement builders produce
// (WHERE All(Eq(Name, Param)) ...) directly, with no SQL text involved. It
// does not generate primary keys — tests assign them up front, the same way
// a UUID-keyed aggregate would.

type fakeRow map[string]any

type fakeTable struct {
	rows []fakeRow
}

type fakeBackend struct {
	tables map[string]*fakeTable
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{tables: map[string]*fakeTable{}}
}

func tableKey(t ast.TableRef) string {
	return t.Schema + "." + t.Table
}

func (b *fakeBackend) table(t ast.TableRef) *fakeTable {
	k := tableKey(t)
	tb, ok := b.tables[k]
	if !ok {
		tb = &fakeTable{}
		b.tables[k] = tb
	}
	return tb
}

func valueOf(n ast.Node, row fakeRow, args ast.ParamMap) any {
	switch v := n.(type) {
	case ast.Name:
		return row[v.Ident]
	case ast.Param:
		return args[v.ID]
	default:
		return nil
	}
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
	default:
		return false
	}
}

func projectRow(cols []ast.Node, row fakeRow) backend.Row {
	out := make(backend.Row, len(cols))
	for i, c := range cols {
		out[i] = row[c.(ast.Name).Ident]
	}
	return out
}

func (b *fakeBackend) Select(_ context.Context, stmt *ast.Select, maps []ast.ParamMap) ([]backend.Row, error) {
	tb := b.table(stmt.From)
	var out []backend.Row
	for _, pm := range maps {
		for _, r := range tb.rows {
			if stmt.Where == nil || evalCond(stmt.Where, r, pm) {
				out = append(out, projectRow(stmt.Columns, r))
			}
		}
	}
	return out, nil
}

func (b *fakeBackend) Insert(_ context.Context, stmt *ast.Insert, maps []ast.ParamMap) ([]backend.Row, error) {
	tb := b.table(stmt.Into)
	var out []backend.Row
	for _, pm := range maps {
		r := fakeRow{}
		for i, col := range stmt.Columns {
			r[col] = valueOf(stmt.Values[i], nil, pm)
		}
		tb.rows = append(tb.rows, r)
		out = append(out, projectRow(stmt.Returning, r))
	}
	return out, nil
}

func (b *fakeBackend) Update(_ context.Context, stmt *ast.Update, maps []ast.ParamMap) ([]backend.Row, error) {
	tb := b.table(stmt.Table)
	var out []backend.Row
	for _, pm := range maps {
		for i := range tb.rows {
			if evalCond(stmt.Where, tb.rows[i], pm) {
				for _, s := range stmt.Sets {
					tb.rows[i][s.Column] = valueOf(s.Expr, nil, pm)
				}
				out = append(out, projectRow(stmt.Returning, tb.rows[i]))
				break
			}
		}
	}
	return out, nil
}

func (b *fakeBackend) Delete(_ context.Context, stmt *ast.Delete, maps []ast.ParamMap) ([]backend.Row, error) {
	tb := b.table(stmt.From)
	var out []backend.Row
	for _, pm := range maps {
		for i := 0; i < len(tb.rows); i++ {
			if evalCond(stmt.Where, tb.rows[i], pm) {
				out = append(out, projectRow(stmt.Returning, tb.rows[i]))
				tb.rows = append(tb.rows[:i], tb.rows[i+1:]...)
				i--
			}
		}
	}
	return out, nil
}

func (b *fakeBackend) Count(context.Context, *ast.Select, ast.ParamMap) (int64, error) { return 0, nil }
func (b *fakeBackend) FetchRaw(context.Context, string, []any) ([]backend.Row, error)  { return nil, nil }
func (b *fakeBackend) Begin(context.Context) error                                     { return nil }
func (b *fakeBackend) Commit(context.Context) error                                    { return nil }
func (b *fakeBackend) Rollback(context.Context) error                                  { return nil }
func (b *fakeBackend) Savepoint(context.Context, string) error                         { return nil }
func (b *fakeBackend) Release(context.Context, string) error                          { return nil }
func (b *fakeBackend) RollbackTo(context.Context, string) error                        { return nil }

var _ backend.Backend = (*fakeBackend)(nil)
