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
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"cloud.google.com/go/cloudsqlconn"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/config"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/schema"
)

// postgresHandler struct implements database.DialectHandler for PostgreSQL.
type postgresHandler struct{}

var (
	_ database.DialectHandler   = (*postgresHandler)(nil)
	_ database.SQLStateProvider = (*postgresHandler)(nil)
)

// psql builds information_schema queries with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var inCurrentSchema = sq.Expr("table_schema = current_schema()")

// CreateCloudSQLPool for PostgreSQL
func (h postgresHandler) CreateCloudSQLPool(cfg config.DatabaseConfig) (*sql.DB, error) {
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

	dsn := fmt.Sprintf("user=%s password=%s database=%s", dbUser, dbPwd, dbName)
	pgxConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	var opts []cloudsqlconn.Option
	if usePrivate != "" && strings.ToLower(usePrivate) != "false" && usePrivate != "0" {
		opts = append(opts, cloudsqlconn.WithDefaultDialOptions(cloudsqlconn.WithPrivateIP()))
	}
	d, err := cloudsqlconn.NewDialer(context.Background(), opts...)
	if err != nil {
		return nil, err
	}
	pgxConfig.DialFunc = func(ctx context.Context, network, instance string) (net.Conn, error) {
		return d.Dial(ctx, instanceConnectionName)
	}
	dbURI := stdlib.RegisterConnConfig(pgxConfig)
	dbPool, err := sql.Open("pgx", dbURI)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	return dbPool, nil
}

// CreateStandardPool creates a standard PostgreSQL connection pool
func (h postgresHandler) CreateStandardPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	dbPool, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	return dbPool, nil
}

// SQLState extracts the SQLSTATE from lib/pq and pgx errors.
func (h postgresHandler) SQLState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func (h postgresHandler) TableExists(ctx context.Context, db *database.DB, tableName string) (bool, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("information_schema.tables").
		Where(inCurrentSchema).
		Where(sq.Eq{"table_name": tableName, "table_type": "BASE TABLE"}).
		ToSql()
	if err != nil {
		return false, err
	}
	return database.QueryExists(ctx, db, query, args...)
}

// ListTables for PostgreSQL
func (h postgresHandler) ListTables(ctx context.Context, db *database.DB) ([]string, error) {
	query, args, err := psql.Select("table_name").
		From("information_schema.tables").
		Where(inCurrentSchema).
		Where(sq.Eq{"table_type": "BASE TABLE"}).
		OrderBy("table_name").
		ToSql()
	if err != nil {
		return nil, err
	}
	return database.QueryStrings(ctx, db, query, args...)
}

// ListColumns for PostgreSQL
func (h postgresHandler) ListColumns(ctx context.Context, db *database.DB, tableName string) ([]schema.Column, error) {
	query, args, err := psql.Select(
		"column_name", "data_type", "udt_name", "is_nullable", "column_default",
		"character_maximum_length", "numeric_precision", "numeric_scale",
	).
		From("information_schema.columns").
		Where(inCurrentSchema).
		Where(sq.Eq{"table_name": tableName}).
		OrderBy("ordinal_position").
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
		if err := rows.Scan(&col.Name, &col.DataType, &col.UDTName, &nullable, &def, &length, &prec, &scale); err != nil {
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

func (h postgresHandler) ListPrimaryKeys(ctx context.Context, db *database.DB, tableName string) ([]string, error) {
	query, args, err := psql.Select("kcu.column_name").
		From("information_schema.table_constraints tc").
		Join("information_schema.key_column_usage kcu ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema").
		Where(sq.Expr("tc.table_schema = current_schema()")).
		Where(sq.Eq{"tc.table_name": tableName, "tc.constraint_type": "PRIMARY KEY"}).
		OrderBy("kcu.ordinal_position").
		ToSql()
	if err != nil {
		return nil, err
	}
	return database.QueryStrings(ctx, db, query, args...)
}

// referentialAction spells out a pg_constraint action code the way
// information_schema reports it.
const referentialAction = `CASE %s
		WHEN 'c' THEN 'CASCADE'
		WHEN 'n' THEN 'SET NULL'
		WHEN 'd' THEN 'SET DEFAULT'
		WHEN 'r' THEN 'RESTRICT'
		ELSE 'NO ACTION' END`

// Key columns are paired by position so a composite key yields one row per
// column pair.
var foreignKeysQuery = `
	SELECT att.attname, ref.relname, ratt.attname, con.conname,
		` + fmt.Sprintf(referentialAction, "con.confdeltype") + `,
		` + fmt.Sprintf(referentialAction, "con.confupdtype") + `
	FROM pg_catalog.pg_constraint con
	JOIN pg_catalog.pg_class rel ON rel.oid = con.conrelid
	JOIN pg_catalog.pg_namespace nsp ON nsp.oid = rel.relnamespace
	JOIN pg_catalog.pg_class ref ON ref.oid = con.confrelid
	CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(attnum, refattnum, pos)
	JOIN pg_catalog.pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = k.attnum
	JOIN pg_catalog.pg_attribute ratt ON ratt.attrelid = con.confrelid AND ratt.attnum = k.refattnum
	WHERE con.contype = 'f'
	AND rel.relname = $1
	AND nsp.nspname = current_schema()
	ORDER BY con.conname, k.pos;`

func (h postgresHandler) ListForeignKeys(ctx context.Context, db *database.DB, tableName string) ([]schema.ForeignKeyRef, error) {
	rows, err := db.Pool.QueryContext(ctx, foreignKeysQuery, tableName)
	if err != nil {
		return nil, fmt.Errorf("error querying foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []schema.ForeignKeyRef
	for rows.Next() {
		var fk schema.ForeignKeyRef
		if err := rows.Scan(&fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn, &fk.ConstraintName, &fk.DeleteRule, &fk.UpdateRule); err != nil {
			return nil, fmt.Errorf("error scanning foreign key: %w", err)
		}
		fks = append(fks, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating foreign keys: %w", err)
	}
	return fks, nil
}

const enumColumnsQuery = `
	SELECT a.attname, array_agg(e.enumlabel ORDER BY e.enumsortorder)
	FROM pg_catalog.pg_attribute a
	JOIN pg_catalog.pg_class c ON c.oid = a.attrelid
	JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
	JOIN pg_catalog.pg_enum e ON e.enumtypid = a.atttypid
	WHERE c.relname = $1
	AND n.nspname = current_schema()
	AND a.attnum > 0
	AND NOT a.attisdropped
	GROUP BY a.attname, a.attnum
	ORDER BY a.attnum;`

// ListEnumColumns returns the declared labels of every enum-typed column, in
// the enum's sort order.
func (h postgresHandler) ListEnumColumns(ctx context.Context, db *database.DB, tableName string) (map[string][]string, error) {
	rows, err := db.Pool.QueryContext(ctx, enumColumnsQuery, tableName)
	if err != nil {
		return nil, fmt.Errorf("error querying enum columns: %w", err)
	}
	defer rows.Close()

	enums := map[string][]string{}
	for rows.Next() {
		var column string
		var labels pq.StringArray
		if err := rows.Scan(&column, &labels); err != nil {
			return nil, fmt.Errorf("error scanning enum column: %w", err)
		}
		enums[column] = []string(labels)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enum columns: %w", err)
	}
	return enums, nil
}

const checkConstraintsQuery = `
	SELECT con.conname, COALESCE(att.attname, ''), pg_get_constraintdef(con.oid)
	FROM pg_catalog.pg_constraint con
	JOIN pg_catalog.pg_class rel ON rel.oid = con.conrelid
	JOIN pg_catalog.pg_namespace nsp ON nsp.oid = rel.relnamespace
	LEFT JOIN pg_catalog.pg_attribute att
		ON att.attrelid = con.conrelid
		AND array_length(con.conkey, 1) = 1
		AND att.attnum = con.conkey[1]
	WHERE con.contype = 'c'
	AND rel.relname = $1
	AND nsp.nspname = current_schema()
	ORDER BY con.conname;`

// ListCheckConstraints attributes a clause to a column only when the
// constraint's key covers exactly one column.
func (h postgresHandler) ListCheckConstraints(ctx context.Context, db *database.DB, tableName string) ([]database.CheckConstraint, error) {
	rows, err := db.Pool.QueryContext(ctx, checkConstraintsQuery, tableName)
	if err != nil {
		return nil, fmt.Errorf("error querying check constraints: %w", err)
	}
	defer rows.Close()

	var checks []database.CheckConstraint
	for rows.Next() {
		var c database.CheckConstraint
		if err := rows.Scan(&c.Name, &c.Column, &c.Clause); err != nil {
			return nil, fmt.Errorf("error scanning check constraint: %w", err)
		}
		checks = append(checks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating check constraints: %w", err)
	}
	return checks, nil
}

// Unique indexes count alongside UNIQUE constraints. Partial and expression
// indexes do not make a column unique on their own and are skipped.
const uniqueIndexesQuery = `
	SELECT ic.relname, att.attname
	FROM pg_catalog.pg_index idx
	JOIN pg_catalog.pg_class rel ON rel.oid = idx.indrelid
	JOIN pg_catalog.pg_namespace nsp ON nsp.oid = rel.relnamespace
	JOIN pg_catalog.pg_class ic ON ic.oid = idx.indexrelid
	CROSS JOIN LATERAL unnest(idx.indkey::smallint[]) WITH ORDINALITY AS k(attnum, pos)
	JOIN pg_catalog.pg_attribute att ON att.attrelid = idx.indrelid AND att.attnum = k.attnum
	WHERE idx.indisunique
	AND NOT idx.indisprimary
	AND idx.indpred IS NULL
	AND idx.indexprs IS NULL
	AND rel.relname = $1
	AND nsp.nspname = current_schema()
	ORDER BY ic.relname, k.pos;`

func (h postgresHandler) ListUniqueConstraints(ctx context.Context, db *database.DB, tableName string) ([]database.UniqueConstraint, error) {
	return database.QueryUniqueConstraints(ctx, db, uniqueIndexesQuery, tableName)
}

// The referenced side is matched on confrelid so constraints sharing a
// name on other tables never leak in.
var referencingForeignKeysQuery = `
	SELECT rel.relname, att.attname,
		` + fmt.Sprintf(referentialAction, "con.confdeltype") + `
	FROM pg_catalog.pg_constraint con
	JOIN pg_catalog.pg_class rel ON rel.oid = con.conrelid
	JOIN pg_catalog.pg_class ref ON ref.oid = con.confrelid
	JOIN pg_catalog.pg_namespace nsp ON nsp.oid = ref.relnamespace
	CROSS JOIN LATERAL unnest(con.conkey) AS k(attnum)
	JOIN pg_catalog.pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = k.attnum
	WHERE con.contype = 'f'
	AND ref.relname = $1
	AND nsp.nspname = current_schema()
	ORDER BY rel.relname, att.attname;`

func (h postgresHandler) ListReferencingForeignKeys(ctx context.Context, db *database.DB, tableName string) ([]schema.InboundReference, error) {
	rows, err := db.Pool.QueryContext(ctx, referencingForeignKeysQuery, tableName)
	if err != nil {
		return nil, fmt.Errorf("error querying referencing foreign keys: %w", err)
	}
	defer rows.Close()

	var refs []schema.InboundReference
	for rows.Next() {
		var ref schema.InboundReference
		if err := rows.Scan(&ref.Table, &ref.Field, &ref.DeleteRule); err != nil {
			return nil, fmt.Errorf("error scanning referencing foreign key: %w", err)
		}
		ref.DeleteRule = database.NormalizeRule(ref.DeleteRule)
		ref.Cascade = database.IsCascade(ref.DeleteRule)
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating referencing foreign keys: %w", err)
	}
	return refs, nil
}

func init() {
	handler := postgresHandler{}
	database.RegisterDialectHandler("postgres", handler)
	database.RegisterDialectHandler("cloudsqlpostgres", handler)
}
