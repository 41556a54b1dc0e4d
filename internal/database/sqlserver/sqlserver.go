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
package sqlserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"cloud.google.com/go/cloudsqlconn"
	sq "github.com/Masterminds/squirrel"
	mssql "github.com/denisenkom/go-mssqldb"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/config"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/schema"
)

// sqlServerHandler struct implements database.DialectHandler for SQL Server.
type sqlServerHandler struct{}

var (
	_ database.DialectHandler   = (*sqlServerHandler)(nil)
	_ database.SQLStateProvider = (*sqlServerHandler)(nil)
)

// tsql builds INFORMATION_SCHEMA queries with @pN placeholders.
var tsql = sq.StatementBuilder.PlaceholderFormat(sq.AtP)

var inDefaultSchema = sq.Expr("TABLE_SCHEMA = SCHEMA_NAME()")

type csqlDialer struct {
	dialer     *cloudsqlconn.Dialer
	connName   string
	usePrivate bool
}

// DialContext adheres to the mssql.Dialer interface.
func (c *csqlDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	var opts []cloudsqlconn.DialOption
	if c.usePrivate {
		opts = append(opts, cloudsqlconn.WithPrivateIP())
	}
	return c.dialer.Dial(ctx, c.connName, opts...)
}

// CreateCloudSQLPool for SQL Server
func (h sqlServerHandler) CreateCloudSQLPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	mustGetenv := func(k string, cfg config.DatabaseConfig) string {
		v := ""
		switch k {
		case "user_name":
			v = cfg.User
		case "password":
			v = cfg.Password
		case "database_name":
			v = cfg.DBName
		case "instance_name":
			v = cfg.CloudSQLInstanceConnectionName
		case "PRIVATE_IP":
			if cfg.UsePrivateIP {
				v = "true"
			}
		}
		if v == "" {
			return os.Getenv(k)
		}
		return v
	}

	dbUser := mustGetenv("user_name", cfg)
	dbPwd := mustGetenv("password", cfg)
	dbName := mustGetenv("database_name", cfg)
	instanceConnectionName := mustGetenv("instance_name", cfg)
	usePrivate := mustGetenv("PRIVATE_IP", cfg)

	// Lazy refresh avoids background certificate refreshes on idle CLIs.
	dialer, err := cloudsqlconn.NewDialer(context.Background(), cloudsqlconn.WithLazyRefresh())
	if err != nil {
		return nil, fmt.Errorf("cloudsqlconn.NewDialer: %w", err)
	}
	connector, err := mssql.NewConnector(fmt.Sprintf("sqlserver://%s:%s@localhost:1433?database=%s&dial=cloudsqlconn&instance=%s",
		dbUser, dbPwd, dbName, instanceConnectionName))
	if err != nil {
		return nil, fmt.Errorf("mssql.NewConnector: %w", err)
	}
	connector.Dialer = &csqlDialer{
		dialer:     dialer,
		connName:   instanceConnectionName,
		usePrivate: usePrivate != "",
	}

	return sql.OpenDB(connector), nil
}

// CreateStandardPool creates a standard SQL Server connection pool
func (h sqlServerHandler) CreateStandardPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	port := cfg.Port
	if port == 0 {
		port = 1433
	}
	connStr := fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
		cfg.User, cfg.Password, cfg.Host, port, cfg.DBName)

	dbPool, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return nil, fmt.Errorf("sql.Open (standard sqlserver): %w", err)
	}
	return dbPool, nil
}

// SQLState reports the server error number. SQL Server has no SQLSTATE
// on the wire.
func (h sqlServerHandler) SQLState(err error) string {
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return strconv.Itoa(int(msErr.Number))
	}
	return ""
}

func (h sqlServerHandler) TableExists(ctx context.Context, db *database.DB, tableName string) (bool, error) {
	query, args, err := tsql.Select("COUNT(*)").
		From("INFORMATION_SCHEMA.TABLES").
		Where(inDefaultSchema).
		Where(sq.Eq{"TABLE_NAME": tableName, "TABLE_TYPE": "BASE TABLE"}).
		ToSql()
	if err != nil {
		return false, err
	}
	return database.QueryExists(ctx, db, query, args...)
}

// ListTables for SQL Server
func (h sqlServerHandler) ListTables(ctx context.Context, db *database.DB) ([]string, error) {
	query, args, err := tsql.Select("TABLE_NAME").
		From("INFORMATION_SCHEMA.TABLES").
		Where(inDefaultSchema).
		Where(sq.Eq{"TABLE_TYPE": "BASE TABLE"}).
		OrderBy("TABLE_NAME").
		ToSql()
	if err != nil {
		return nil, err
	}
	return database.QueryStrings(ctx, db, query, args...)
}

// ListColumns for SQL Server. There is no separate UDT name; bit columns
// report no character length, which marks them as booleans.
func (h sqlServerHandler) ListColumns(ctx context.Context, db *database.DB, tableName string) ([]schema.Column, error) {
	query, args, err := tsql.Select(
		"COLUMN_NAME", "DATA_TYPE", "IS_NULLABLE", "COLUMN_DEFAULT",
		"CHARACTER_MAXIMUM_LENGTH", "NUMERIC_PRECISION", "NUMERIC_SCALE",
	).
		From("INFORMATION_SCHEMA.COLUMNS").
		Where(inDefaultSchema).
		Where(sq.Eq{"TABLE_NAME": tableName}).
		OrderBy("ORDINAL_POSITION").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying columns: %w", err)
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var (
			col                 schema.Column
			nullable            string
			def                 sql.NullString
			length, prec, scale sql.NullInt64
		)
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &def, &length, &prec, &scale); err != nil {
			return nil, fmt.Errorf("error scanning column: %w", err)
		}
		col.IsNullable = strings.EqualFold(nullable, "YES")
		col.Default = database.StringPtr(def)
		col.CharMaxLength = database.Int64Ptr(length)
		col.NumericPrecision = database.Int64Ptr(prec)
		col.NumericScale = database.Int64Ptr(scale)
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}
	return columns, nil
}

const primaryKeysQuery = `
	SELECT COL_NAME(ic.object_id, ic.column_id)
	FROM sys.indexes i
	JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	WHERE i.is_primary_key = 1
	AND i.object_id = OBJECT_ID(@tableName)
	ORDER BY ic.key_ordinal`

func (h sqlServerHandler) ListPrimaryKeys(ctx context.Context, db *database.DB, tableName string) ([]string, error) {
	return database.QueryStrings(ctx, db, primaryKeysQuery, sql.Named("tableName", tableName))
}

const foreignKeysQuery = `
	SELECT
		COL_NAME(fkc.parent_object_id, fkc.parent_column_id),
		OBJECT_NAME(fkc.referenced_object_id),
		COL_NAME(fkc.referenced_object_id, fkc.referenced_column_id),
		f.name,
		f.delete_referential_action_desc,
		f.update_referential_action_desc
	FROM sys.foreign_keys f
	JOIN sys.foreign_key_columns fkc ON f.object_id = fkc.constraint_object_id
	WHERE f.parent_object_id = OBJECT_ID(@tableName)
	ORDER BY f.name, fkc.constraint_column_id`

func (h sqlServerHandler) ListForeignKeys(ctx context.Context, db *database.DB, tableName string) ([]schema.ForeignKeyRef, error) {
	rows, err := db.Pool.QueryContext(ctx, foreignKeysQuery, sql.Named("tableName", tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to execute foreign key query: %w", err)
	}
	defer rows.Close()

	var fks []schema.ForeignKeyRef
	for rows.Next() {
		var fk schema.ForeignKeyRef
		if err := rows.Scan(&fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn, &fk.ConstraintName, &fk.DeleteRule, &fk.UpdateRule); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key info: %w", err)
		}
		fk.DeleteRule = database.NormalizeRule(fk.DeleteRule)
		fk.UpdateRule = database.NormalizeRule(fk.UpdateRule)
		fks = append(fks, fk)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating foreign key rows: %w", err)
	}
	return fks, nil
}

// ListEnumColumns returns an empty map: SQL Server has no enumerated types.
// Closed domains come from check constraints instead.
func (h sqlServerHandler) ListEnumColumns(ctx context.Context, db *database.DB, tableName string) (map[string][]string, error) {
	return map[string][]string{}, nil
}

const checkConstraintsQuery = `
	SELECT cc.name, COALESCE(COL_NAME(cc.parent_object_id, NULLIF(cc.parent_column_id, 0)), ''), cc.definition
	FROM sys.check_constraints cc
	WHERE cc.parent_object_id = OBJECT_ID(@tableName)
	ORDER BY cc.name`

func (h sqlServerHandler) ListCheckConstraints(ctx context.Context, db *database.DB, tableName string) ([]database.CheckConstraint, error) {
	rows, err := db.Pool.QueryContext(ctx, checkConstraintsQuery, sql.Named("tableName", tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to execute check constraint query: %w", err)
	}
	defer rows.Close()

	var checks []database.CheckConstraint
	for rows.Next() {
		var c database.CheckConstraint
		if err := rows.Scan(&c.Name, &c.Column, &c.Clause); err != nil {
			return nil, fmt.Errorf("failed to scan check constraint: %w", err)
		}
		checks = append(checks, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating check constraint rows: %w", err)
	}
	return checks, nil
}

const uniqueConstraintsQuery = `
	SELECT i.name, COL_NAME(ic.object_id, ic.column_id)
	FROM sys.indexes i
	JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	WHERE i.is_unique = 1
	AND i.is_primary_key = 0
	AND ic.is_included_column = 0
	AND i.object_id = OBJECT_ID(@tableName)
	ORDER BY i.name, ic.key_ordinal`

func (h sqlServerHandler) ListUniqueConstraints(ctx context.Context, db *database.DB, tableName string) ([]database.UniqueConstraint, error) {
	return database.QueryUniqueConstraints(ctx, db, uniqueConstraintsQuery, sql.Named("tableName", tableName))
}

const referencingForeignKeysQuery = `
	SELECT
		OBJECT_NAME(fkc.parent_object_id),
		COL_NAME(fkc.parent_object_id, fkc.parent_column_id),
		f.delete_referential_action_desc
	FROM sys.foreign_keys f
	JOIN sys.foreign_key_columns fkc ON f.object_id = fkc.constraint_object_id
	WHERE f.referenced_object_id = OBJECT_ID(@tableName)
	ORDER BY OBJECT_NAME(fkc.parent_object_id), COL_NAME(fkc.parent_object_id, fkc.parent_column_id)`

func (h sqlServerHandler) ListReferencingForeignKeys(ctx context.Context, db *database.DB, tableName string) ([]schema.InboundReference, error) {
	rows, err := db.Pool.QueryContext(ctx, referencingForeignKeysQuery, sql.Named("tableName", tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to execute referencing foreign key query: %w", err)
	}
	defer rows.Close()

	var refs []schema.InboundReference
	for rows.Next() {
		var ref schema.InboundReference
		if err := rows.Scan(&ref.Table, &ref.Field, &ref.DeleteRule); err != nil {
			return nil, fmt.Errorf("failed to scan referencing foreign key: %w", err)
		}
		ref.DeleteRule = database.NormalizeRule(ref.DeleteRule)
		ref.Cascade = database.IsCascade(ref.DeleteRule)
		refs = append(refs, ref)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating referencing foreign key rows: %w", err)
	}
	return refs, nil
}

func init() {
	handler := sqlServerHandler{}
	database.RegisterDialectHandler("sqlserver", handler)
	database.RegisterDialectHandler("cloudsqlsqlserver", handler)
}
