// Package db bundles the storefront schema and demo seed data into the binary.
package db

import _ "embed"

// Schema is the idempotent DDL applied on startup by the postgres storage.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedCatalog is the demo categories and products loaded by seed-db when no
// catalog file is given.
//
//go:embed seed/catalog.json
var SeedCatalog []byte
