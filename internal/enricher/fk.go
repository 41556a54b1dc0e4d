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
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/classifier"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/schema"
)

// displayPriority lists the column names preferred as human-readable labels.
var displayPriority = []string{"name", "title", "first_name", "username", "email", "description", "label", "display_name"}

const maxDisplayFields = 3

// tableCache memoizes raw catalog reads for the lifetime of one request.
type tableCache struct {
	reader *Reader
	mu     sync.Mutex
	tables map[string]*cachedTable
}

type cachedTable struct {
	once  sync.Once
	table *schema.CatalogTable
	err   error
}

func newTableCache(reader *Reader) *tableCache {
	return &tableCache{reader: reader, tables: map[string]*cachedTable{}}
}

func (c *tableCache) read(ctx context.Context, name string) (*schema.CatalogTable, error) {
	c.mu.Lock()
	entry, ok := c.tables[name]
	if !ok {
		entry = &cachedTable{}
		c.tables[name] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.table, entry.err = c.reader.ReadTable(ctx, name)
	})
	return entry.table, entry.err
}

// enrichForeignKeys fills DropdownInfo for every foreign-key column of
// columns, reading the referenced tables concurrently. ancestors holds the
// tables already being expanded on the path from the requested table.
func (s *Service) enrichForeignKeys(ctx context.Context, req *request, table string, columns []schema.EnrichedColumn, depth int, ancestors map[string]bool) {
	var wg sync.WaitGroup
	for i := range columns {
		if columns[i].FieldType != schema.KindForeignKeyDropdown || columns[i].ForeignKey == nil {
			continue
		}
		wg.Add(1)
		go func(col *schema.EnrichedColumn) {
			defer wg.Done()
			col.DropdownInfo = s.dropdownFor(ctx, req, table, col, depth, ancestors)
		}(&columns[i])
	}
	wg.Wait()
}

func (s *Service) dropdownFor(ctx context.Context, req *request, table string, col *schema.EnrichedColumn, depth int, ancestors map[string]bool) *schema.DropdownInfo {
	fk := col.ForeignKey
	key := fk.ReferencedColumn
	if key == "" {
		key = classifier.KeyIdentifier
	}
	info := &schema.DropdownInfo{
		Endpoint:      s.endpointFor(fk.ReferencedTable),
		HasEndpoint:   false,
		DisplayFields: []string{key},
	}

	ref, err := req.cache.read(ctx, fk.ReferencedTable)
	if err != nil || ref == nil {
		reason := "referenced table does not exist"
		if err != nil {
			reason = err.Error()
		}
		req.logger.Warn("foreign key enrichment degraded",
			zap.String("table", table),
			zap.String("column", col.Name),
			zap.String("referenced_table", fk.ReferencedTable),
			zap.String("reason", reason))
		return info
	}

	info.DisplayFields = selectDisplayFields(ref, key)
	info.HasEndpoint = hasLookupEndpoint(ref)

	if depth+1 > s.cfg.MaxDepth || ancestors[ref.Name] {
		info.Truncated = true
		return info
	}
	next := make(map[string]bool, len(ancestors)+1)
	for name := range ancestors {
		next[name] = true
	}
	next[ref.Name] = true
	info.ReferencedSchema = s.assemble(ctx, req, ref, depth+1, next)
	return info
}

func (s *Service) endpointFor(table string) string {
	return fmt.Sprintf(s.cfg.EndpointPattern, table)
}

// selectDisplayFields picks up to two label columns of ref, by priority or
// else the first plain textual column, followed by the key.
func selectDisplayFields(ref *schema.CatalogTable, key string) []string {
	var fields []string
	for _, name := range displayPriority {
		if len(fields) == maxDisplayFields-1 {
			break
		}
		if col := findColumn(ref, name); col != nil && col.Name != key {
			fields = append(fields, col.Name)
		}
	}
	if len(fields) == 0 {
		for _, col := range ref.Columns {
			if col.Name == key || col.IsPrimaryKey || col.IsForeignKey {
				continue
			}
			if kind, ok := classifier.CatalogKind(col); ok && kind.Family() == schema.FamilyTextual {
				fields = append(fields, col.Name)
				break
			}
		}
	}
	return append(fields, key)
}

// hasLookupEndpoint reports whether ref has the column set a generated
// lookup endpoint serves: a primary key and a label column.
func hasLookupEndpoint(ref *schema.CatalogTable) bool {
	if len(ref.PrimaryKeys) == 0 {
		return false
	}
	for _, name := range displayPriority {
		if findColumn(ref, name) != nil {
			return true
		}
	}
	return false
}

func findColumn(t *schema.CatalogTable, name string) *schema.Column {
	for i := range t.Columns {
		if strings.EqualFold(t.Columns[i].Name, name) {
			return &t.Columns[i]
		}
	}
	return nil
}
