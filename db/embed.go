// Package db embeds the storefront's PostgreSQL schema.
package db

import _ "embed"

// Schema creates the session and cart tables. Every statement is idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string
