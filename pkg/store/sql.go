// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/conneskills/cs-agent-registry-api/pkg/core"
	"github.com/conneskills/cs-agent-registry-api/pkg/errors"
)

// DefaultTable is the table used when SQLConfig.TableName is empty.
const DefaultTable = "registry_resources"

// SQLBackend implements Backend on a relational table keyed by
// (collection, id). Each statement touches one row, so concurrent updates
// of the same identifier rely on the engine's row-level atomicity.
type SQLBackend struct {
	db      *sql.DB
	dialect Dialect
	table   string
}

// SQLConfig configures the relational backend.
type SQLConfig struct {
	// DB is the database connection. Required.
	DB *sql.DB
	// Dialect selects placeholder style, schema and error mapping. Required.
	Dialect Dialect
	// TableName is the table to use. Default: "registry_resources".
	TableName string
}

// NewSQLBackend creates a relational backend and ensures its schema.
func NewSQLBackend(ctx context.Context, cfg SQLConfig) (*SQLBackend, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if cfg.Dialect.schema == nil {
		return nil, fmt.Errorf("sql dialect is required")
	}
	table := cfg.TableName
	if table == "" {
		table = DefaultTable
	}
	table, err := sanitizeTableName(table)
	if err != nil {
		return nil, err
	}

	b := &SQLBackend{db: cfg.DB, dialect: cfg.Dialect, table: table}
	if err := b.ensureSchema(ctx); err != nil {
		return nil, errors.Unavailable("schema", err)
	}
	return b, nil
}

// OpenSQL opens a database for the dialect and wraps it in a backend.
// SQLite is limited to one open connection so that ":memory:" databases are
// shared and writers never contend for the file lock.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLBackend, error) {
	return OpenSQLTable(ctx, dialect, dsn, DefaultTable)
}

// OpenSQLTable is OpenSQL with an explicit table name.
func OpenSQLTable(ctx context.Context, dialect Dialect, dsn, table string) (*SQLBackend, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, errors.Unavailable("open", err)
	}
	if dialect.Name == SQLite.Name {
		db.SetMaxOpenConns(1)
	}
	backend, err := NewSQLBackend(ctx, SQLConfig{DB: db, Dialect: dialect, TableName: table})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return backend, nil
}

func (s *SQLBackend) ensureSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.schema(s.table) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Insert stores a new document with version 1.
func (s *SQLBackend) Insert(ctx context.Context, collection string, doc Document) (Document, error) {
	query := s.dialect.rebind(fmt.Sprintf(`
		INSERT INTO %s (collection, id, version, created_at, updated_at, data)
		VALUES (?, ?, 1, ?, ?, ?)
		RETURNING seq
	`, s.table))

	out := doc.clone()
	out.Version = 1
	err := s.db.QueryRowContext(ctx, query,
		collection,
		doc.ID,
		doc.CreatedAt.UnixMilli(),
		doc.UpdatedAt.UnixMilli(),
		string(doc.Data),
	).Scan(&out.Seq)
	if err != nil {
		return Document{}, s.translate("insert", collection, doc.ID, err)
	}
	return out, nil
}

// Get returns the document stored under id.
func (s *SQLBackend) Get(ctx context.Context, collection, id string) (Document, error) {
	query := s.dialect.rebind(fmt.Sprintf(`
		SELECT seq, version, created_at, updated_at, data
		FROM %s
		WHERE collection = ? AND id = ?
	`, s.table))

	doc := Document{ID: id}
	var created, updated int64
	err := s.db.QueryRowContext(ctx, query, collection, id).
		Scan(&doc.Seq, &doc.Version, &created, &updated, &doc.Data)
	if err != nil {
		return Document{}, s.translate("get", collection, id, err)
	}
	doc.CreatedAt = fromMillis(created)
	doc.UpdatedAt = fromMillis(updated)
	return doc, nil
}

// List returns every document of the collection ordered by insertion.
func (s *SQLBackend) List(ctx context.Context, collection string) ([]Document, error) {
	query := s.dialect.rebind(fmt.Sprintf(`
		SELECT id, seq, version, created_at, updated_at, data
		FROM %s
		WHERE collection = ?
		ORDER BY seq ASC
	`, s.table))

	rows, err := s.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, s.translate("list", collection, "", err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		var doc Document
		var created, updated int64
		if err := rows.Scan(&doc.ID, &doc.Seq, &doc.Version, &created, &updated, &doc.Data); err != nil {
			return nil, s.translate("list", collection, "", err)
		}
		doc.CreatedAt = fromMillis(created)
		doc.UpdatedAt = fromMillis(updated)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, s.translate("list", collection, "", err)
	}
	return docs, nil
}

// Replace swaps the data and bumps the version in a single statement.
func (s *SQLBackend) Replace(ctx context.Context, collection, id string, data []byte, at time.Time) (Document, error) {
	query := s.dialect.rebind(fmt.Sprintf(`
		UPDATE %s
		SET version = version + 1, updated_at = ?, data = ?
		WHERE collection = ? AND id = ?
		RETURNING seq, version, created_at
	`, s.table))

	doc := Document{ID: id, UpdatedAt: at, Data: append([]byte(nil), data...)}
	var created int64
	err := s.db.QueryRowContext(ctx, query, at.UnixMilli(), string(data), collection, id).
		Scan(&doc.Seq, &doc.Version, &created)
	if err != nil {
		return Document{}, s.translate("update", collection, id, err)
	}
	doc.CreatedAt = fromMillis(created)
	return doc, nil
}

// Delete removes the row. Zero affected rows is NOT_FOUND.
func (s *SQLBackend) Delete(ctx context.Context, collection, id string) error {
	query := s.dialect.rebind(fmt.Sprintf(`DELETE FROM %s WHERE collection = ? AND id = ?`, s.table))

	result, err := s.db.ExecContext(ctx, query, collection, id)
	if err != nil {
		return s.translate("delete", collection, id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return s.translate("delete", collection, id, err)
	}
	if affected == 0 {
		return errors.NotFound(singular(collection), id)
	}
	return nil
}

// Type implements Backend.
func (s *SQLBackend) Type() string { return s.dialect.Name }

// Check pings the database.
func (s *SQLBackend) Check(ctx context.Context) core.HealthResult {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	result := core.HealthResult{
		Details:   map[string]string{"type": s.Type()},
		LastCheck: time.Now(),
	}
	if err := s.db.PingContext(ctx); err != nil {
		result.Status = core.HealthUnhealthy
		result.Message = "database unreachable"
		result.Error = err
		result.Details["status"] = "error"
		return result
	}
	result.Status = core.HealthHealthy
	result.Details["status"] = "ok"
	return result
}

// Close closes the database connection.
func (s *SQLBackend) Close() error {
	return s.db.Close()
}

// translate maps driver errors onto registry error codes. Anything that is
// neither a missing row nor a unique violation means the backend could not
// answer, which callers must be able to tell apart from NOT_FOUND.
func (s *SQLBackend) translate(op, collection, id string, err error) error {
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return errors.NotFound(singular(collection), id)
	case s.dialect.uniqueViolation(err):
		return errors.Duplicate(singular(collection), id)
	default:
		return errors.Unavailable(op, err).
			WithContext("collection", collection).
			WithContext("backend", s.dialect.Name)
	}
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
