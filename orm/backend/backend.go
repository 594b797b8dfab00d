// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package backend declares the contract the aggregate engine and query
builder consume from a database driver: execute batched, parameterized
statements and manage transactions/savepoints. The core treats the backend
as an opaque database session — it does not know or care that the
concrete implementation ([pgxbackend.Backend]) speaks the PostgreSQL wire
protocol.
*/
package backend

import (
	"context"

	"github.com/taibuivan/orm1go/orm/ast"
)

// Row is one result row, projected by position — there is no implicit
// column-name mapping.
type Row []any

// Backend is the interface the aggregate engine, query builder, and cursor
// paginator consume. A concrete Backend owns the physical connection(s);
// outside a transaction it may acquire one connection per statement, inside
// a transaction it pins one connection until commit or rollback.
type Backend interface {
	// Select executes stmt once per ParamMap, concatenating the resulting
	// rows across all executions in input order.
	Select(ctx context.Context, stmt *ast.Select, maps []ast.ParamMap) ([]Row, error)

	// Insert executes stmt once per ParamMap (one row per entity to
	// insert), returning the RETURNING rows in input order.
	Insert(ctx context.Context, stmt *ast.Insert, maps []ast.ParamMap) ([]Row, error)

	// Update executes stmt once per ParamMap, returning the RETURNING rows
	// in input order.
	Update(ctx context.Context, stmt *ast.Update, maps []ast.ParamMap) ([]Row, error)

	// Delete executes stmt once per ParamMap, returning the RETURNING rows
	// in input order.
	Delete(ctx context.Context, stmt *ast.Delete, maps []ast.ParamMap) ([]Row, error)

	// Count executes stmt wrapped in "SELECT COUNT(*) FROM (...) _" and
	// returns the scalar result.
	Count(ctx context.Context, stmt *ast.Select, m ast.ParamMap) (int64, error)

	// FetchRaw executes an arbitrary SQL text with positional arguments
	// and returns its rows.
	FetchRaw(ctx context.Context, text string, args []any) ([]Row, error)

	// Begin starts the outermost transaction.
	Begin(ctx context.Context) error
	// Commit commits the outermost transaction.
	Commit(ctx context.Context) error
	// Rollback rolls back the outermost transaction.
	Rollback(ctx context.Context) error

	// Savepoint establishes a named savepoint within the current
	// transaction.
	Savepoint(ctx context.Context, name string) error
	// Release releases a named savepoint, keeping its effects.
	Release(ctx context.Context, name string) error
	// RollbackTo rolls back to a named savepoint, discarding its effects.
	RollbackTo(ctx context.Context, name string) error
}
