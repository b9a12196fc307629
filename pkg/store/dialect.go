// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/conneskills/cs-agent-registry-api/pkg/config"
)

// Dialect captures the differences between relational engines.
type Dialect struct {
	// Name is reported as the backend type.
	Name string
	// Driver is the database/sql driver name.
	Driver string

	numbered        bool
	schema          func(table string) []string
	uniqueViolation func(error) bool
}

// SQLite uses modernc.org/sqlite (pure Go, no cgo).
var SQLite = Dialect{
	Name:   "sqlite",
	Driver: "sqlite",
	schema: func(table string) []string {
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				seq INTEGER PRIMARY KEY AUTOINCREMENT,
				collection TEXT NOT NULL,
				id TEXT NOT NULL,
				version INTEGER NOT NULL,
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL,
				data TEXT NOT NULL,
				UNIQUE (collection, id)
			);`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_collection_seq ON %s (collection, seq);`, table, table),
		}
	},
	uniqueViolation: func(err error) bool {
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) {
			switch sqliteErr.Code() {
			case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
				return true
			}
		}
		return strings.Contains(err.Error(), "UNIQUE constraint failed")
	},
}

// Postgres uses the jackc/pgx stdlib driver.
var Postgres = Dialect{
	Name:     "postgres",
	Driver:   "pgx",
	numbered: true,
	schema: func(table string) []string {
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				seq BIGSERIAL PRIMARY KEY,
				collection VARCHAR(64) NOT NULL,
				id VARCHAR(255) NOT NULL,
				version INTEGER NOT NULL,
				created_at BIGINT NOT NULL,
				updated_at BIGINT NOT NULL,
				data JSONB NOT NULL,
				UNIQUE (collection, id)
			);`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_collection_seq ON %s (collection, seq);`, table, table),
		}
	},
	uniqueViolation: func(err error) bool {
		var pgErr *pgconn.PgError
		return errors.As(err, &pgErr) && pgErr.Code == "23505"
	},
}

// DialectByName returns the dialect for a configured backend name or alias.
func DialectByName(name string) (Dialect, error) {
	backend, _ := config.BackendName(name)
	switch backend {
	case config.BackendSQLite:
		return SQLite, nil
	case config.BackendPostgres:
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unknown sql dialect %q", name)
	}
}

// rebind rewrites ? placeholders to $n for numbered dialects.
func (d Dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func sanitizeTableName(table string) (string, error) {
	if table == "" {
		return "", fmt.Errorf("table name is required")
	}
	if !tableNamePattern.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}
