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
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"cloud.google.com/go/cloudsqlconn"
	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/config"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/schema"
)

type mysqlHandler struct{}

var (
	_ database.DialectHandler   = (*mysqlHandler)(nil)
	_ database.SQLStateProvider = (*mysqlHandler)(nil)
)

var inCurrentDatabase = sq.Expr("TABLE_SCHEMA = DATABASE()")

// enumLabelPattern matches one quoted label of an enum('a','b') column type.
var enumLabelPattern = regexp.MustCompile(`'((?:[^']|'')*)'`)

func (h mysqlHandler) CreateCloudSQLPool(cfg config.DatabaseConfig) (*sql.DB, error) {
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
		return v
	}

	dbUser := mustGetenv("user_name", cfg)
	dbPwd := mustGetenv("password", cfg)
	dbName := mustGetenv("database_name", cfg)
	instanceConnectionName := mustGetenv("instance_name", cfg)
	usePrivate := mustGetenv("PRIVATE_IP", cfg)

	if dbUser == "" || dbPwd == "" || dbName == "" || instanceConnectionName == "" {
		return nil, fmt.Errorf("missing required CloudSQL connection parameter (user, pass, db, instance)")
	}

	d, err := cloudsqlconn.NewDialer(context.Background())
	if err != nil {
		return nil, fmt.Errorf("cloudsqlconn.NewDialer: %w", err)
	}

	var opts []cloudsqlconn.DialOption
	if usePrivate != "" && strings.ToLower(usePrivate) != "false" && usePrivate != "0" {
		opts = append(opts, cloudsqlconn.WithPrivateIP())
	}

	network := fmt.Sprintf("cloudsql-%s", instanceConnectionName)

	mysql.RegisterDialContext(network,
		func(ctx context.Context, addr string) (net.Conn, error) {
			conn, dialErr := d.Dial(ctx, instanceConnectionName, opts...)
			if dialErr != nil {
				zap.L().Error("cloud sql dial failed", zap.String("instance", instanceConnectionName), zap.Error(dialErr))
			}
			return conn, dialErr
		})

	mysqlCfg := mysql.Config{
		User:                 dbUser,
		Passwd:               dbPwd,
		Net:                  network,
		Addr:                 instanceConnectionName,
		DBName:               dbName,
		AllowNativePasswords: true,
		ParseTime:            true,
	}

	dbPool, err := sql.Open("mysql", mysqlCfg.FormatDSN())
	if err != nil {
		mysql.DeregisterDialContext(network)
		d.Close()
		return nil, fmt.Errorf("sql.Open failed for CloudSQL MySQL: %w", err)
	}
	return dbPool, nil
}

func (h mysqlHandler) CreateStandardPool(cfg config.DatabaseConfig) (*sql.DB, error) {
	mysqlCfg := mysql.Config{
		User:                 cfg.User,
		Passwd:               cfg.Password,
		Net:                  "tcp",
		Addr:                 fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		DBName:               cfg.DBName,
		AllowNativePasswords: true,
		ParseTime:            true,
	}

	dbPool, err := sql.Open("mysql", mysqlCfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("sql.Open (standard mysql): %w", err)
	}
	return dbPool, nil
}

// SQLState returns the five-character state of a server error.
func (h mysqlHandler) SQLState(err error) string {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return strings.TrimRight(string(myErr.SQLState[:]), "\x00")
	}
	return ""
}

func (h mysqlHandler) TableExists(ctx context.Context, db *database.DB, tableName string) (bool, error) {
	query, args, err := sq.Select("COUNT(*)").
		From("information_schema.TABLES").
		Where(inCurrentDatabase).
		Where(sq.Eq{"TABLE_NAME": tableName, "TABLE_TYPE": "BASE TABLE"}).
		ToSql()
	if err != nil {
		return false, err
	}
	return database.QueryExists(ctx, db, query, args...)
}

func (h mysqlHandler) ListTables(ctx context.Context, db *database.DB) ([]string, error) {
	query, args, err := sq.Select("TABLE_NAME").
		From("information_schema.TABLES").
		Where(inCurrentDatabase).
		Where(sq.Eq{"TABLE_TYPE": "BASE TABLE"}).
		OrderBy("TABLE_NAME").
		ToSql()
	if err != nil {
		return nil, err
	}
	return database.QueryStrings(ctx, db, query, args...)
}

// ListColumns reports COLUMN_TYPE as the column's UDT name, which keeps
// tinyint(1) booleans and enum label lists visible to the classifier.
func (h mysqlHandler) ListColumns(ctx context.Context, db *database.DB, tableName string) ([]schema.Column, error) {
	query, args, err := sq.Select(
		"COLUMN_NAME", "DATA_TYPE", "COLUMN_TYPE", "IS_NULLABLE", "COLUMN_DEFAULT",
		"CHARACTER_MAXIMUM_LENGTH", "NUMERIC_PRECISION", "NUMERIC_SCALE",
	).
		From("information_schema.COLUMNS").
		Where(inCurrentDatabase).
		Where(sq.Eq{"TABLE_NAME": tableName}).
		OrderBy("ORDINAL_POSITION").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying columns for table %s: %w", tableName, err)
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
		return nil, fmt.Errorf("error iterating column rows: %w", err)
	}
	return columns, nil
}

func (h mysqlHandler) ListPrimaryKeys(ctx context.Context, db *database.DB, tableName string) ([]string, error) {
	query, args, err := sq.Select("COLUMN_NAME").
		From("information_schema.KEY_COLUMN_USAGE").
		Where(inCurrentDatabase).
		Where(sq.Eq{"CONSTRAINT_NAME": "PRIMARY", "TABLE_NAME": tableName}).
		OrderBy("ORDINAL_POSITION").
		ToSql()
	if err != nil {
		return nil, err
	}
	return database.QueryStrings(ctx, db, query, args...)
}

func (h mysqlHandler) ListForeignKeys(ctx context.Context, db *database.DB, tableName string) ([]schema.ForeignKeyRef, error) {
	query, args, err := sq.Select(
		"kcu.COLUMN_NAME", "kcu.REFERENCED_TABLE_NAME", "kcu.REFERENCED_COLUMN_NAME",
		"kcu.CONSTRAINT_NAME", "rc.DELETE_RULE", "rc.UPDATE_RULE",
	).
		From("information_schema.KEY_COLUMN_USAGE kcu").
		Join("information_schema.REFERENTIAL_CONSTRAINTS rc ON rc.CONSTRAINT_SCHEMA = kcu.CONSTRAINT_SCHEMA AND rc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME").
		Where(sq.Expr("kcu.TABLE_SCHEMA = DATABASE()")).
		Where(sq.Eq{"kcu.TABLE_NAME": tableName}).
		Where(sq.NotEq{"kcu.REFERENCED_TABLE_NAME": nil}).
		OrderBy("kcu.CONSTRAINT_NAME", "kcu.ORDINAL_POSITION").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying foreign keys for table %s: %w", tableName, err)
	}
	defer rows.Close()

	var fks []schema.ForeignKeyRef
	for rows.Next() {
		var fk schema.ForeignKeyRef
		if err := rows.Scan(&fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn, &fk.ConstraintName, &fk.DeleteRule, &fk.UpdateRule); err != nil {
			return nil, fmt.Errorf("error scanning foreign key data for table %s: %w", tableName, err)
		}
		fks = append(fks, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating foreign key rows: %w", err)
	}
	return fks, nil
}

// ListEnumColumns parses the labels out of each enum column's COLUMN_TYPE.
func (h mysqlHandler) ListEnumColumns(ctx context.Context, db *database.DB, tableName string) (map[string][]string, error) {
	query, args, err := sq.Select("COLUMN_NAME", "COLUMN_TYPE").
		From("information_schema.COLUMNS").
		Where(inCurrentDatabase).
		Where(sq.Eq{"DATA_TYPE": "enum", "TABLE_NAME": tableName}).
		OrderBy("ORDINAL_POSITION").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying enum columns for table %s: %w", tableName, err)
	}
	defer rows.Close()

	enums := map[string][]string{}
	for rows.Next() {
		var column, columnType string
		if err := rows.Scan(&column, &columnType); err != nil {
			return nil, fmt.Errorf("error scanning enum column: %w", err)
		}
		enums[column] = parseEnumLabels(columnType)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enum columns: %w", err)
	}
	return enums, nil
}

func parseEnumLabels(columnType string) []string {
	labels := []string{}
	for _, m := range enumLabelPattern.FindAllStringSubmatch(columnType, -1) {
		labels = append(labels, strings.ReplaceAll(m[1], "''", "'"))
	}
	return labels
}

// ListCheckConstraints requires MySQL 8.0.16 or later. The catalog does not
// say which column a check covers, so Column is left empty.
func (h mysqlHandler) ListCheckConstraints(ctx context.Context, db *database.DB, tableName string) ([]database.CheckConstraint, error) {
	query, args, err := sq.Select("cc.CONSTRAINT_NAME", "cc.CHECK_CLAUSE").
		From("information_schema.CHECK_CONSTRAINTS cc").
		Join("information_schema.TABLE_CONSTRAINTS tc ON tc.CONSTRAINT_SCHEMA = cc.CONSTRAINT_SCHEMA AND tc.CONSTRAINT_NAME = cc.CONSTRAINT_NAME").
		Where(sq.Expr("tc.TABLE_SCHEMA = DATABASE()")).
		Where(sq.Eq{"tc.CONSTRAINT_TYPE": "CHECK", "tc.TABLE_NAME": tableName}).
		OrderBy("cc.CONSTRAINT_NAME").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying check constraints for table %s: %w", tableName, err)
	}
	defer rows.Close()

	var checks []database.CheckConstraint
	for rows.Next() {
		var c database.CheckConstraint
		if err := rows.Scan(&c.Name, &c.Clause); err != nil {
			return nil, fmt.Errorf("error scanning check constraint: %w", err)
		}
		checks = append(checks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating check constraints: %w", err)
	}
	return checks, nil
}

// ListUniqueConstraints covers both UNIQUE constraints and unique indexes,
// which MySQL stores identically.
func (h mysqlHandler) ListUniqueConstraints(ctx context.Context, db *database.DB, tableName string) ([]database.UniqueConstraint, error) {
	query, args, err := sq.Select("INDEX_NAME", "COLUMN_NAME").
		From("information_schema.STATISTICS").
		Where(inCurrentDatabase).
		Where(sq.Eq{"TABLE_NAME": tableName}).
		Where(sq.Expr("NON_UNIQUE = 0")).
		Where(sq.NotEq{"INDEX_NAME": "PRIMARY"}).
		OrderBy("INDEX_NAME", "SEQ_IN_INDEX").
		ToSql()
	if err != nil {
		return nil, err
	}
	return database.QueryUniqueConstraints(ctx, db, query, args...)
}

func (h mysqlHandler) ListReferencingForeignKeys(ctx context.Context, db *database.DB, tableName string) ([]schema.InboundReference, error) {
	query, args, err := sq.Select("kcu.TABLE_NAME", "kcu.COLUMN_NAME", "rc.DELETE_RULE").
		From("information_schema.KEY_COLUMN_USAGE kcu").
		Join("information_schema.REFERENTIAL_CONSTRAINTS rc ON rc.CONSTRAINT_SCHEMA = kcu.CONSTRAINT_SCHEMA AND rc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME").
		Where(sq.Expr("kcu.REFERENCED_TABLE_SCHEMA = DATABASE()")).
		Where(sq.Eq{"kcu.REFERENCED_TABLE_NAME": tableName}).
		OrderBy("kcu.TABLE_NAME", "kcu.COLUMN_NAME").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying references to table %s: %w", tableName, err)
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
	handler := mysqlHandler{}
	database.RegisterDialectHandler("mysql", handler)
	database.RegisterDialectHandler("cloudsqlmysql", handler)
}
