// Package db embeds the SQL schema migrations.
package db

import "embed"

// Migrations holds golang-migrate files (NNNNNN_name.up.sql / .down.sql).
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"
