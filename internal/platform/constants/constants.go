// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values shared across the
platform layer.

Using this package ensures magic strings and magic numbers are eliminated
from the database and migration plumbing.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "orm1go"
	AppVersion = "0.1.0-dev"
)

// # Database Timing

const (
	// GlobalRequestTimeout is the deadline applied to every statement
	// issued over a pooled connection, via a per-connection
	// "SET statement_timeout".
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long the demo CLI waits for the connection
	// pool to finish closing.
	ShutdownTimeout = 10 * time.Second
)
