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
)

// Helpers shared by the dialect handlers.

// QueryStrings runs a query returning a single text column.
func QueryStrings(ctx context.Context, db *DB, query string, args ...any) ([]string, error) {
	rows, err := db.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error running query: %w", err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return values, nil
}

// QueryExists runs a COUNT(*) query and reports whether it is positive.
func QueryExists(ctx context.Context, db *DB, query string, args ...any) (bool, error) {
	var n int
	if err := db.Pool.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("error checking existence: %w", err)
	}
	return n > 0, nil
}

// QueryUniqueConstraints runs a query returning (constraint name, column
// name) rows ordered by constraint and key position, and groups them.
func QueryUniqueConstraints(ctx context.Context, db *DB, query string, args ...any) ([]UniqueConstraint, error) {
	rows, err := db.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying unique constraints: %w", err)
	}
	defer rows.Close()

	var out []UniqueConstraint
	index := map[string]int{}
	for rows.Next() {
		var name, column string
		if err := rows.Scan(&name, &column); err != nil {
			return nil, fmt.Errorf("error scanning unique constraint: %w", err)
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, UniqueConstraint{Name: name})
		}
		out[i].Columns = append(out[i].Columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unique constraints: %w", err)
	}
	return out, nil
}

// StringPtr returns nil for a NULL value.
func StringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// Int64Ptr returns nil for a NULL value.
func Int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	n := ni.Int64
	return &n
}

// NormalizeRule converts a referential action such as "SET_NULL" or
// "no action" to the information_schema spelling "SET NULL".
func NormalizeRule(rule string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(rule), "_", " "))
}

// IsCascade reports whether a delete rule removes referencing rows.
func IsCascade(rule string) bool {
	return NormalizeRule(rule) == "CASCADE"
}
