// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package pgxbackend implements the [backend.Backend] contract on top of
jackc/pgx's connection pool. It is the only package in this module that
knows it is talking to PostgreSQL specifically.

Outside a transaction every statement acquires a connection from the pool
for the duration of its batch and releases it immediately after — the
teacher's own pool-tuning philosophy in internal/platform/postgres. Inside a
transaction ([Begin]) the backend pins one [pgxpool.Conn] until commit or
rollback, so that SAVEPOINT/RELEASE/ROLLBACK TO actually apply to the same
physical session.
*/
package pgxbackend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/orm1go/internal/platform/dberr"
	"github.com/taibuivan/orm1go/orm/ast"
	"github.com/taibuivan/orm1go/orm/backend"
	"github.com/taibuivan/orm1go/orm/ormerr"
)

// Backend is the pgx-backed implementation of [backend.Backend].
type Backend struct {
	pool   *pgxpool.Pool
	logger *slog.Logger

	// txConn is non-nil while a transaction is active; every statement
	// issued during that window runs against this pinned connection
	// instead of acquiring a fresh one from the pool.
	txConn *pgxpool.Conn
}

// New constructs a Backend over pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Backend {
	return &Backend{pool: pool, logger: logger}
}

var _ backend.Backend = (*Backend)(nil)

// querier is the subset of pgx's executor interface this backend needs;
// satisfied by both *pgxpool.Pool and *pgxpool.Conn, so statement execution
// doesn't care whether it's inside a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (b *Backend) conn() querier {
	if b.txConn != nil {
		return b.txConn
	}
	return b.pool
}

func collectRows(rows pgx.Rows) ([]backend.Row, error) {
	defer rows.Close()
	var out []backend.Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, dberr.Wrap(err, "scan row")
		}
		out = append(out, backend.Row(vals))
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "iterate rows")
	}
	return out, nil
}

// execBatch renders rendered once and executes it once per ParamMap,
// concatenating RETURNING rows (or the SELECT projection) across
// executions in input order.
func (b *Backend) execBatch(ctx context.Context, rendered ast.Rendered, maps []ast.ParamMap) ([]backend.Row, error) {
	q := b.conn()
	if b.txConn == nil {
		c, err := b.pool.Acquire(ctx)
		if err != nil {
			return nil, dberr.Wrap(err, "acquire connection")
		}
		defer c.Release()
		q = c
	}
	var all []backend.Row
	for _, m := range maps {
		args, err := rendered.Args(m)
		if err != nil {
			return nil, err
		}
		rows, err := q.Query(ctx, rendered.SQL, args...)
		if err != nil {
			return nil, dberr.Wrap(err, "execute statement")
		}
		collected, err := collectRows(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, collected...)
	}
	return all, nil
}

// Select implements [backend.Backend].
func (b *Backend) Select(ctx context.Context, stmt *ast.Select, maps []ast.ParamMap) ([]backend.Row, error) {
	rendered, err := ast.RenderSelect(stmt)
	if err != nil {
		return nil, err
	}
	if len(maps) == 0 {
		maps = []ast.ParamMap{{}}
	}
	b.logDebug("select", len(maps))
	return b.execBatch(ctx, rendered, maps)
}

// Insert implements [backend.Backend].
func (b *Backend) Insert(ctx context.Context, stmt *ast.Insert, maps []ast.ParamMap) ([]backend.Row, error) {
	rendered, err := ast.RenderInsert(stmt)
	if err != nil {
		return nil, err
	}
	b.logDebug("insert", len(maps))
	rows, err := b.execBatch(ctx, rendered, maps)
	if err != nil {
		return nil, err
	}
	if len(rows) != len(maps) {
		return nil, ormerr.InvariantViolation(fmt.Sprintf(
			"insert returned %d row(s) for %d input(s): RETURNING must produce exactly one row per insert",
			len(rows), len(maps)))
	}
	return rows, nil
}

// Update implements [backend.Backend].
func (b *Backend) Update(ctx context.Context, stmt *ast.Update, maps []ast.ParamMap) ([]backend.Row, error) {
	rendered, err := ast.RenderUpdate(stmt)
	if err != nil {
		return nil, err
	}
	b.logDebug("update", len(maps))
	return b.execBatch(ctx, rendered, maps)
}

// Delete implements [backend.Backend].
func (b *Backend) Delete(ctx context.Context, stmt *ast.Delete, maps []ast.ParamMap) ([]backend.Row, error) {
	rendered, err := ast.RenderDelete(stmt)
	if err != nil {
		return nil, err
	}
	b.logDebug("delete", len(maps))
	return b.execBatch(ctx, rendered, maps)
}

// Count implements [backend.Backend].
func (b *Backend) Count(ctx context.Context, stmt *ast.Select, m ast.ParamMap) (int64, error) {
	inner, err := ast.RenderSelect(stmt)
	if err != nil {
		return 0, err
	}
	args, err := inner.Args(m)
	if err != nil {
		return 0, err
	}
	sql := fmt.Sprintf("SELECT COUNT(*) FROM (%s) _", inner.SQL)
	var count int64
	if err := b.conn().QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, dberr.Wrap(err, "count")
	}
	return count, nil
}

// FetchRaw implements [backend.Backend].
func (b *Backend) FetchRaw(ctx context.Context, text string, args []any) ([]backend.Row, error) {
	rows, err := b.conn().Query(ctx, text, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "fetch raw")
	}
	return collectRows(rows)
}

// Begin implements [backend.Backend]: acquires and pins a connection, then
// issues BEGIN on it.
func (b *Backend) Begin(ctx context.Context) error {
	if b.txConn != nil {
		return ormerr.TransactionStateError("begin called with a transaction already active")
	}
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return dberr.Wrap(err, "acquire connection")
	}
	if _, err := conn.Exec(ctx, "BEGIN"); err != nil {
		conn.Release()
		return dberr.Wrap(err, "begin")
	}
	b.txConn = conn
	return nil
}

// Commit implements [backend.Backend].
func (b *Backend) Commit(ctx context.Context) error {
	if b.txConn == nil {
		return ormerr.TransactionStateError("commit called with no active transaction")
	}
	_, err := b.txConn.Exec(ctx, "COMMIT")
	b.txConn.Release()
	b.txConn = nil
	if err != nil {
		return dberr.Wrap(err, "commit")
	}
	return nil
}

// Rollback implements [backend.Backend].
func (b *Backend) Rollback(ctx context.Context) error {
	if b.txConn == nil {
		return ormerr.TransactionStateError("rollback called with no active transaction")
	}
	_, err := b.txConn.Exec(ctx, "ROLLBACK")
	b.txConn.Release()
	b.txConn = nil
	if err != nil {
		return dberr.Wrap(err, "rollback")
	}
	return nil
}

// Savepoint implements [backend.Backend].
func (b *Backend) Savepoint(ctx context.Context, name string) error {
	if b.txConn == nil {
		return ormerr.TransactionStateError("savepoint called with no active transaction")
	}
	_, err := b.txConn.Exec(ctx, "SAVEPOINT "+quoteSavepoint(name))
	return dberr.Wrap(err, "savepoint")
}

// Release implements [backend.Backend].
func (b *Backend) Release(ctx context.Context, name string) error {
	if b.txConn == nil {
		return ormerr.TransactionStateError("release called with no active transaction")
	}
	_, err := b.txConn.Exec(ctx, "RELEASE SAVEPOINT "+quoteSavepoint(name))
	return dberr.Wrap(err, "release savepoint")
}

// RollbackTo implements [backend.Backend].
func (b *Backend) RollbackTo(ctx context.Context, name string) error {
	if b.txConn == nil {
		return ormerr.TransactionStateError("rollback_to called with no active transaction")
	}
	_, err := b.txConn.Exec(ctx, "ROLLBACK TO SAVEPOINT "+quoteSavepoint(name))
	return dberr.Wrap(err, "rollback to savepoint")
}

func quoteSavepoint(name string) string {
	return `"` + name + `"`
}

func (b *Backend) logDebug(kind string, rowCount int) {
	if b.logger == nil {
		return
	}
	b.logger.Debug("orm statement batch", slog.String("kind", kind), slog.Int("rows", rowCount))
}
