// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session ties the mapping catalog, identity map, backend and
aggregate engine into the one object application code actually holds: a
[Session]. It is the entry point for every read and write — [Session.Query]
starts a composable SELECT, [Session.Get]/[Session.Save]/[Session.Delete]
call straight through to the aggregate engine, and [Session.Tx] scopes a
unit of work to a transaction or, when already inside one, a nested
savepoint.

A Session is not safe for concurrent use: it owns one identity map and one
backend connection/transaction state, and is meant to serve one cooperative
task at a time, the same way the identity map itself is documented to.
*/
package session

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/taibuivan/orm1go/orm/backend"
	"github.com/taibuivan/orm1go/orm/engine"
	"github.com/taibuivan/orm1go/orm/identity"
	"github.com/taibuivan/orm1go/orm/mapping"
	"github.com/taibuivan/orm1go/orm/query"
)

// Session is the top-level handle application code holds for one unit of
// work against one mapping catalog.
type Session struct {
	catalog *mapping.Catalog
	be      backend.Backend
	idmap   *identity.Map
	eng     *engine.Engine
	depth   int
}

// New constructs a Session over catalog and be, with a fresh identity map.
func New(catalog *mapping.Catalog, be backend.Backend, logger *slog.Logger) *Session {
	idmap := identity.New()
	return &Session{
		catalog: catalog,
		be:      be,
		idmap:   idmap,
		eng:     engine.New(catalog, idmap, be, logger),
	}
}

// Query starts a composable SELECT over typ, aliased as alias.
func (s *Session) Query(typ reflect.Type, alias string) (*query.Builder, error) {
	return query.New(s.catalog, s.be, s.eng, typ, alias)
}

// Get resolves one entity per key in keys, recursively hydrating every
// mapped child level. A key with no matching row yields a nil entry.
func (s *Session) Get(ctx context.Context, typ reflect.Type, keys []identity.Key) ([]any, error) {
	return s.eng.BatchGet(ctx, typ, keys)
}

// Save inserts or updates every entity in entities, recursing into their
// mapped children.
func (s *Session) Save(ctx context.Context, typ reflect.Type, entities []any) error {
	return s.eng.BatchSave(ctx, typ, entities)
}

// Delete deletes every entity in entities, recursively deleting every
// tracked descendant first.
func (s *Session) Delete(ctx context.Context, typ reflect.Type, entities []any) error {
	return s.eng.BatchDelete(ctx, typ, entities)
}

// Tx runs fn as one unit of work: entry snapshots the identity map and
// issues BEGIN (at depth zero) or SAVEPOINT tx_<depth> (nested). If fn
// returns an error or panics, Tx rolls back (or rolls back to the
// savepoint) and restores the identity map to its pre-entry snapshot before
// the error re-surfaces; otherwise it issues COMMIT or RELEASE SAVEPOINT.
// Savepoints are named by nesting depth, so concurrent nested transactions
// at the same depth would collide — by design, a Session serves one
// cooperative task at a time.
func (s *Session) Tx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	snapshot := s.idmap.Snapshot()
	outermost := s.depth == 0
	savepointName := fmt.Sprintf("tx_%d", s.depth)

	if outermost {
		if beginErr := s.be.Begin(ctx); beginErr != nil {
			return beginErr
		}
	} else if spErr := s.be.Savepoint(ctx, savepointName); spErr != nil {
		return spErr
	}
	s.depth++

	defer func() {
		s.depth--

		if p := recover(); p != nil {
			s.idmap.Restore(snapshot)
			if outermost {
				_ = s.be.Rollback(ctx)
			} else {
				_ = s.be.RollbackTo(ctx, savepointName)
			}
			panic(p)
		}

		if err != nil {
			s.idmap.Restore(snapshot)
			if outermost {
				_ = s.be.Rollback(ctx)
			} else {
				_ = s.be.RollbackTo(ctx, savepointName)
			}
			return
		}

		if outermost {
			err = s.be.Commit(ctx)
		} else {
			err = s.be.Release(ctx, savepointName)
		}
	}()

	err = fn(ctx)
	return err
}
