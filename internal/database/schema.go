package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
)

// Dialect names the SQL flavour of a connection.
type Dialect string

const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// ApplySchema creates any missing tables for the given dialect.  Every
// statement is idempotent (CREATE ... IF NOT EXISTS), so it runs on each
// startup.  Statements are executed one by one because the MySQL driver
// rejects multi-statement strings unless multiStatements is enabled.
func ApplySchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	raw, err := schemaFS.ReadFile("schema/" + string(dialect) + ".sql")
	if err != nil {
		return fmt.Errorf("read schema for %s: %w", dialect, err)
	}
	for _, stmt := range splitStatements(string(raw)) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func splitStatements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
