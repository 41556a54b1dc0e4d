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
package enricher

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/constraint"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/schema"
)

// Reader reads the raw catalog facts of one table.
type Reader struct {
	catalog database.Catalog
	sem     *semaphore.Weighted
}

// NewReader returns a Reader issuing at most maxConcurrentReads catalog
// queries at a time. A non-positive limit means one at a time.
func NewReader(catalog database.Catalog, maxConcurrentReads int) *Reader {
	if maxConcurrentReads < 1 {
		maxConcurrentReads = 1
	}
	return &Reader{catalog: catalog, sem: semaphore.NewWeighted(int64(maxConcurrentReads))}
}

// query runs one catalog call under the concurrency limit.
func (r *Reader) query(ctx context.Context, table, op string, fn func(context.Context) error) error {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return &CatalogAccessError{Table: table, Op: op, Err: err}
	}
	defer r.sem.Release(1)
	if err := fn(ctx); err != nil {
		return &CatalogAccessError{Table: table, Op: op, Err: err}
	}
	return nil
}

// ReadTable returns the raw facts of table, or nil when the table does not
// exist. The per-table queries run concurrently; the first failure cancels
// the rest and is returned as a *CatalogAccessError.
func (r *Reader) ReadTable(ctx context.Context, table string) (*schema.CatalogTable, error) {
	if strings.TrimSpace(table) == "" {
		return nil, ErrInvalidTableName
	}

	var exists bool
	err := r.query(ctx, table, "check existence", func(ctx context.Context) (err error) {
		exists, err = r.catalog.TableExists(ctx, table)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	var (
		columns []schema.Column
		pks     []string
		fks     []schema.ForeignKeyRef
		enums   map[string][]string
		checks  []database.CheckConstraint
		uniques []database.UniqueConstraint
		refs    []schema.InboundReference
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.query(gctx, table, "list columns", func(ctx context.Context) (err error) {
			columns, err = r.catalog.ListColumns(ctx, table)
			return err
		})
	})
	g.Go(func() error {
		return r.query(gctx, table, "list primary keys", func(ctx context.Context) (err error) {
			pks, err = r.catalog.ListPrimaryKeys(ctx, table)
			return err
		})
	})
	g.Go(func() error {
		return r.query(gctx, table, "list foreign keys", func(ctx context.Context) (err error) {
			fks, err = r.catalog.ListForeignKeys(ctx, table)
			return err
		})
	})
	g.Go(func() error {
		return r.query(gctx, table, "list enum columns", func(ctx context.Context) (err error) {
			enums, err = r.catalog.ListEnumColumns(ctx, table)
			return err
		})
	})
	g.Go(func() error {
		return r.query(gctx, table, "list check constraints", func(ctx context.Context) (err error) {
			checks, err = r.catalog.ListCheckConstraints(ctx, table)
			return err
		})
	})
	g.Go(func() error {
		return r.query(gctx, table, "list unique constraints", func(ctx context.Context) (err error) {
			uniques, err = r.catalog.ListUniqueConstraints(ctx, table)
			return err
		})
	})
	g.Go(func() error {
		return r.query(gctx, table, "list referencing foreign keys", func(ctx context.Context) (err error) {
			refs, err = r.catalog.ListReferencingForeignKeys(ctx, table)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return joinCatalog(table, columns, pks, fks, enums, checks, uniques, refs), nil
}

// joinCatalog marks key columns and attributes constraints to columns. The
// returned table shares no slices with its inputs.
func joinCatalog(
	table string,
	columns []schema.Column,
	pks []string,
	fks []schema.ForeignKeyRef,
	enums map[string][]string,
	checks []database.CheckConstraint,
	uniques []database.UniqueConstraint,
	refs []schema.InboundReference,
) *schema.CatalogTable {
	out := &schema.CatalogTable{
		Name:                 table,
		Columns:              make([]schema.Column, 0, len(columns)),
		PrimaryKeys:          append([]string{}, pks...),
		ForeignKeys:          append([]schema.ForeignKeyRef{}, fks...),
		ForeignKeyReferences: append([]schema.InboundReference{}, refs...),
		UniqueConstraints:    splitUniques(uniques),
		EnumValues:           map[string][]string{},
		CheckClauses:         map[string][]string{},
	}

	isPK := make(map[string]bool, len(pks))
	for _, pk := range pks {
		isPK[pk] = true
	}
	fkByColumn := make(map[string]schema.ForeignKeyRef, len(fks))
	for _, fk := range fks {
		if _, seen := fkByColumn[fk.Column]; !seen {
			fkByColumn[fk.Column] = fk
		}
	}

	names := make([]string, 0, len(columns))
	for _, c := range columns {
		col := c
		col.IsPrimaryKey = isPK[col.Name]
		col.IsForeignKey = false
		col.ForeignKey = nil
		if fk, ok := fkByColumn[col.Name]; ok {
			fk := fk
			col.IsForeignKey = true
			col.ForeignKey = &fk
		}
		out.Columns = append(out.Columns, col)
		names = append(names, col.Name)
	}

	for column, values := range enums {
		out.EnumValues[column] = append([]string{}, values...)
	}
	for _, check := range checks {
		column := check.Column
		if column == "" {
			column = constraint.ColumnOf(check.Clause, names)
		}
		if column == "" {
			continue
		}
		out.CheckClauses[column] = append(out.CheckClauses[column], check.Clause)
	}
	return out
}

func splitUniques(uniques []database.UniqueConstraint) schema.UniqueConstraints {
	out := schema.UniqueConstraints{SingleField: []string{}, Composite: [][]string{}}
	seen := map[string]bool{}
	for _, u := range uniques {
		if len(u.Columns) == 0 {
			continue
		}
		key := strings.Join(u.Columns, "\x00")
		if seen[key] {
			continue
		}
		seen[key] = true
		if len(u.Columns) == 1 {
			out.SingleField = append(out.SingleField, u.Columns[0])
		} else {
			out.Composite = append(out.Composite, append([]string{}, u.Columns...))
		}
	}
	return out
}
