// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Orm1godemo is a small CLI that exercises the orm1go core against a live
PostgreSQL instance: it applies the blog example's migrations, then runs a
scripted walkthrough that saves a BlogPost aggregate with its comments,
re-fetches it through the identity map, and pages through it with the
keyset cursor paginator.

Usage:

	orm1godemo migrate
	orm1godemo demo

The environment variables are:

	DATABASE_URL        Postgres connection string (required)
	MIGRATION_PATH      filesystem path to the migrations directory
	LOG_LEVEL           slog level (debug, info, warn, error)
	STATEMENT_TIMEOUT   per-connection statement timeout

No business logic lives here beyond orchestration: the core is entirely in
orm/*, the example aggregate is entirely in examples/blog.
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "orm1godemo",
		Short:         "Exercises the orm1go aggregate-persistence core against Postgres",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newDemoCommand())
	return root
}
