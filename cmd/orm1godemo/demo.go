// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/orm1go/examples/blog"
	"github.com/taibuivan/orm1go/internal/platform/config"
	"github.com/taibuivan/orm1go/internal/platform/constants"
	"github.com/taibuivan/orm1go/internal/platform/logging"
	pgstore "github.com/taibuivan/orm1go/internal/platform/postgres"
	"github.com/taibuivan/orm1go/orm/backend/pgxbackend"
	"github.com/taibuivan/orm1go/orm/cursor"
	"github.com/taibuivan/orm1go/orm/identity"
	"github.com/taibuivan/orm1go/orm/mapping"
	"github.com/taibuivan/orm1go/orm/session"
	"github.com/taibuivan/orm1go/pkg/pointer"
)

func newDemoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Save, fetch and paginate a blog post aggregate",
		RunE:  runDemo,
	}
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	log := logging.New(cfg.LogLevel)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startupCtx, cancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer cancel()

	var pool *pgxpool.Pool
	var catalog *mapping.Catalog

	// The pool's connect+ping and the mapping catalog's build+validate don't
	// depend on each other, so the two independent startup checks run
	// concurrently and the first failure cancels the other — the teacher's
	// own startup sequence ran these kinds of checks sequentially because
	// each later step genuinely depended on the previous one; neither does
	// here.
	checks, checksCtx := errgroup.WithContext(startupCtx)
	checks.Go(func() error {
		p, err := pgstore.NewPool(checksCtx, cfg.DatabaseURL, cfg.StatementTimeout, log)
		if err != nil {
			return err
		}
		pool = p
		return nil
	})
	checks.Go(func() error {
		c, err := blog.NewCatalog()
		if err != nil {
			return err
		}
		catalog = c
		return nil
	})
	if err := checks.Wait(); err != nil {
		return fmt.Errorf("startup checks: %w", err)
	}
	defer closePoolWithin(pool, constants.ShutdownTimeout)

	be := pgxbackend.New(pool, log)
	sess := session.New(catalog, be, log)

	post := &blog.BlogPost{
		ID:        uuid.New(),
		Title:     "Hello, orm1go",
		Body:      "A short walkthrough of the aggregate engine.",
		CreatedAt: time.Now(),
		Comments: []*blog.Comment{
			{ID: uuid.New(), Author: "reader-1", Body: "Nice writeup.", CreatedAt: time.Now()},
			{ID: uuid.New(), Author: "reader-2", Body: "Looking forward to the pagination part.", CreatedAt: time.Now()},
		},
	}

	pterm.Info.Println("saving blog post aggregate")
	if err := sess.Save(startupCtx, blog.BlogPostType(), []any{post}); err != nil {
		return fmt.Errorf("save post: %w", err)
	}

	pterm.Info.Println("re-fetching through the identity map")
	found, err := sess.Get(startupCtx, blog.BlogPostType(), []identity.Key{{post.ID}})
	if err != nil {
		return fmt.Errorf("get post: %w", err)
	}
	if len(found) != 1 || found[0] == nil {
		return fmt.Errorf("expected to re-fetch the saved post, got %d result(s)", len(found))
	}
	refetched := found[0].(*blog.BlogPost)
	pterm.Success.Printfln("fetched %q with %d comment(s)", refetched.Title, len(refetched.Comments))

	builder, err := sess.Query(blog.BlogPostType(), "p")
	if err != nil {
		return err
	}
	if _, err := builder.OrderBy("p.created_at", nil, false, true); err != nil {
		return err
	}

	page, err := cursor.Paginate(startupCtx, builder, cursor.Args{First: pointer.To(5)})
	if err != nil {
		return fmt.Errorf("paginate posts: %w", err)
	}
	pterm.Success.Printfln("paginated %d post(s), has_next_page=%t", len(page.Entities), page.HasNextPage)

	return nil
}

// closePoolWithin closes the pool on its own goroutine and gives it timeout
// to finish draining in-flight connections before returning.
func closePoolWithin(pool *pgxpool.Pool, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		pool.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
	}
}
