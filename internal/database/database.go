/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/config"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/schema"
)

// Catalog is the read-only catalog-access surface consumed by the enricher.
// Every method is scoped to one table of the connection's default schema.
type Catalog interface {
	TableExists(ctx context.Context, tableName string) (bool, error)
	ListTables(ctx context.Context) ([]string, error)
	ListColumns(ctx context.Context, tableName string) ([]schema.Column, error)
	ListPrimaryKeys(ctx context.Context, tableName string) ([]string, error)
	ListForeignKeys(ctx context.Context, tableName string) ([]schema.ForeignKeyRef, error)
	ListEnumColumns(ctx context.Context, tableName string) (map[string][]string, error)
	ListCheckConstraints(ctx context.Context, tableName string) ([]CheckConstraint, error)
	ListUniqueConstraints(ctx context.Context, tableName string) ([]UniqueConstraint, error)
	ListReferencingForeignKeys(ctx context.Context, tableName string) ([]schema.InboundReference, error)
}

var _ Catalog = (*DB)(nil)

// CheckConstraint is one check clause defined on a table. Column is empty
// when the catalog does not attribute the clause to a single column.
type CheckConstraint struct {
	Name   string
	Column string
	Clause string
}

// UniqueConstraint is a unique constraint or unique index, columns in key order.
type UniqueConstraint struct {
	Name    string
	Columns []string
}

// DB holds the database connection pool and dialect handler.
type DB struct {
	Pool    *sql.DB
	Handler DialectHandler
	Config  config.DatabaseConfig
}

// DialectHandler implements catalog queries for one database dialect.
type DialectHandler interface {
	CreateCloudSQLPool(cfg config.DatabaseConfig) (*sql.DB, error)
	CreateStandardPool(cfg config.DatabaseConfig) (*sql.DB, error)
	TableExists(ctx context.Context, db *DB, tableName string) (bool, error)
	ListTables(ctx context.Context, db *DB) ([]string, error)
	ListColumns(ctx context.Context, db *DB, tableName string) ([]schema.Column, error)
	ListPrimaryKeys(ctx context.Context, db *DB, tableName string) ([]string, error)
	ListForeignKeys(ctx context.Context, db *DB, tableName string) ([]schema.ForeignKeyRef, error)
	ListEnumColumns(ctx context.Context, db *DB, tableName string) (map[string][]string, error)
	ListCheckConstraints(ctx context.Context, db *DB, tableName string) ([]CheckConstraint, error)
	ListUniqueConstraints(ctx context.Context, db *DB, tableName string) ([]UniqueConstraint, error)
	ListReferencingForeignKeys(ctx context.Context, db *DB, tableName string) ([]schema.InboundReference, error)
}

var (
	dialectHandlers = make(map[string]DialectHandler)
	mu              sync.RWMutex
)

func RegisterDialectHandler(dialect string, handler DialectHandler) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := dialectHandlers[dialect]; exists {
		zap.L().Warn("dialect handler is being overwritten", zap.String("dialect", dialect))
	}
	dialectHandlers[dialect] = handler
}

func GetDialectHandler(dialect string) (DialectHandler, error) {
	mu.RLock()
	defer mu.RUnlock()
	handler, ok := dialectHandlers[dialect]
	if !ok {
		return nil, &ErrUnsupportedDialect{Dialect: dialect}
	}
	return handler, nil
}

// New opens a pool for cfg.Dialect and pings it, retrying transient
// connection failures up to cfg.ConnectRetries times.
func New(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	handler, err := GetDialectHandler(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	var pool *sql.DB
	if strings.HasPrefix(cfg.Dialect, "cloudsql") {
		pool, err = handler.CreateCloudSQLPool(cfg)
	} else {
		pool, err = handler.CreateStandardPool(cfg)
	}
	if err != nil {
		return nil, &ErrDatabaseConnection{Msg: fmt.Sprintf("failed to create pool for dialect %s", cfg.Dialect), Err: err}
	}
	if cfg.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	db := &DB{Pool: pool, Handler: handler, Config: cfg}

	opts := DefaultRetryOptions
	if cfg.ConnectRetries > 0 {
		opts.MaxAttempts = cfg.ConnectRetries
	}
	_, err = withRetry(ctx, opts, func(ctx context.Context) (struct{}, error) {
		if pingErr := pool.PingContext(ctx); pingErr != nil {
			return struct{}{}, &ErrDatabaseConnection{Msg: fmt.Sprintf("ping failed for dialect %s", cfg.Dialect), Err: pingErr}
		}
		return struct{}{}, nil
	})
	if err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) Ping(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("database connection pool is not initialized")
	}
	return db.Pool.PingContext(ctx)
}

func (db *DB) Close() error {
	if db.Pool != nil {
		return db.Pool.Close()
	}
	zap.L().Warn("attempted to close a nil database connection pool")
	return nil
}

func (db *DB) handler() (DialectHandler, error) {
	if db.Handler == nil {
		return nil, fmt.Errorf("dialect handler not initialized")
	}
	return db.Handler, nil
}

func (db *DB) TableExists(ctx context.Context, tableName string) (bool, error) {
	h, err := db.handler()
	if err != nil {
		return false, err
	}
	ok, err := h.TableExists(ctx, db, tableName)
	return ok, db.classify(fmt.Sprintf("checking table %s", tableName), err)
}

func (db *DB) ListTables(ctx context.Context) ([]string, error) {
	h, err := db.handler()
	if err != nil {
		return nil, err
	}
	tables, err := h.ListTables(ctx, db)
	return tables, db.classify("listing tables", err)
}

func (db *DB) ListColumns(ctx context.Context, tableName string) ([]schema.Column, error) {
	h, err := db.handler()
	if err != nil {
		return nil, err
	}
	cols, err := h.ListColumns(ctx, db, tableName)
	return cols, db.classify(fmt.Sprintf("listing columns of %s", tableName), err)
}

func (db *DB) ListPrimaryKeys(ctx context.Context, tableName string) ([]string, error) {
	h, err := db.handler()
	if err != nil {
		return nil, err
	}
	keys, err := h.ListPrimaryKeys(ctx, db, tableName)
	return keys, db.classify(fmt.Sprintf("listing primary keys of %s", tableName), err)
}

func (db *DB) ListForeignKeys(ctx context.Context, tableName string) ([]schema.ForeignKeyRef, error) {
	h, err := db.handler()
	if err != nil {
		return nil, err
	}
	fks, err := h.ListForeignKeys(ctx, db, tableName)
	return fks, db.classify(fmt.Sprintf("listing foreign keys of %s", tableName), err)
}

func (db *DB) ListEnumColumns(ctx context.Context, tableName string) (map[string][]string, error) {
	h, err := db.handler()
	if err != nil {
		return nil, err
	}
	enums, err := h.ListEnumColumns(ctx, db, tableName)
	return enums, db.classify(fmt.Sprintf("listing enum columns of %s", tableName), err)
}

func (db *DB) ListCheckConstraints(ctx context.Context, tableName string) ([]CheckConstraint, error) {
	h, err := db.handler()
	if err != nil {
		return nil, err
	}
	checks, err := h.ListCheckConstraints(ctx, db, tableName)
	return checks, db.classify(fmt.Sprintf("listing check constraints of %s", tableName), err)
}

func (db *DB) ListUniqueConstraints(ctx context.Context, tableName string) ([]UniqueConstraint, error) {
	h, err := db.handler()
	if err != nil {
		return nil, err
	}
	uniques, err := h.ListUniqueConstraints(ctx, db, tableName)
	return uniques, db.classify(fmt.Sprintf("listing unique constraints of %s", tableName), err)
}

func (db *DB) ListReferencingForeignKeys(ctx context.Context, tableName string) ([]schema.InboundReference, error) {
	h, err := db.handler()
	if err != nil {
		return nil, err
	}
	refs, err := h.ListReferencingForeignKeys(ctx, db, tableName)
	return refs, db.classify(fmt.Sprintf("listing references to %s", tableName), err)
}
