package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	_ "embed"
)

//go:embed schema_postgres.sql
var schemaPostgres string

//go:embed schema_sqlite.sql
var schemaSQLite string

// Migrate applies the dialect's DDL. Every statement is idempotent
// (IF NOT EXISTS), so running it on an up-to-date database is a no-op.
func (d *DB) Migrate(ctx context.Context, logger *slog.Logger) error {
	schema := schemaSQLite
	if d.Dialect == DialectPostgres {
		schema = schemaPostgres
	}

	applied := 0
	for _, stmt := range splitStatements(schema) {
		if _, err := d.SQL.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", applied+1, err)
		}
		applied++
	}
	logger.Info("schema applied", "dialect", d.Dialect, "statements", applied)
	return nil
}

// splitStatements breaks the DDL on semicolons. The schema files contain no
// string literals with semicolons, so a plain split is enough.
func splitStatements(schema string) []string {
	var out []string
	for _, s := range strings.Split(schema, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// rebind rewrites ? placeholders to $n for Postgres. Queries are written
// with ? so the SQLite path can run them untouched.
func (d *DB) rebind(query string) string {
	if d.Dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
