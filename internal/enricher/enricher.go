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
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/classifier"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/config"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/constraint"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/database"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/filtering"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/genai"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/rules"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/schema"
)

// Service assembles enhanced table schemas from a catalog.
type Service struct {
	catalog   database.Catalog
	reader    *Reader
	llmClient genai.LLMClient
	cfg       config.IntrospectionConfig
	logger    *zap.Logger
}

// NewService builds a Service. llm may be nil, in which case Annotate is a
// no-op.
func NewService(catalog database.Catalog, llm genai.LLMClient, cfg config.IntrospectionConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.EndpointPattern == "" {
		cfg.EndpointPattern = config.Default().Introspection.EndpointPattern
	}
	return &Service{
		catalog:   catalog,
		reader:    NewReader(catalog, cfg.MaxConcurrentReads),
		llmClient: llm,
		cfg:       cfg,
		logger:    logger.Named("enricher"),
	}
}

// request is the state owned by one GetEnhancedSchema call.
type request struct {
	cache  *tableCache
	logger *zap.Logger
}

// GetEnhancedSchema reads and classifies one table. It returns (nil, nil)
// when the table does not exist and a *CatalogAccessError when the
// catalog cannot be read. Failures while expanding referenced tables only
// degrade the affected foreign-key columns.
func (s *Service) GetEnhancedSchema(ctx context.Context, table string) (*schema.TableSchema, error) {
	startTime := time.Now()
	req := &request{
		cache:  newTableCache(s.reader),
		logger: s.logger.With(zap.String("request_id", uuid.NewString()), zap.String("table", table)),
	}

	raw, err := req.cache.read(ctx, table)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		req.logger.Info("table not found")
		return nil, nil
	}

	ts := s.assemble(ctx, req, raw, 0, map[string]bool{raw.Name: true})
	req.logger.Info("schema assembled",
		zap.Int("fields", ts.Capabilities.TotalFields),
		zap.Int("fields_needing_review", ts.Capabilities.FieldsNeedingReview),
		zap.Int("missing_lookup_endpoints", ts.Capabilities.MissingLookupEndpoints),
		zap.Duration("elapsed", time.Since(startTime)))
	return ts, nil
}

// assemble classifies raw and expands its foreign keys.
func (s *Service) assemble(ctx context.Context, req *request, raw *schema.CatalogTable, depth int, ancestors map[string]bool) *schema.TableSchema {
	columns := ClassifyColumns(raw)
	s.enrichForeignKeys(ctx, req, raw.Name, columns, depth, ancestors)

	ts := &schema.TableSchema{
		TableName:            raw.Name,
		Columns:              columns,
		PrimaryKeys:          append([]string{}, raw.PrimaryKeys...),
		ForeignKeys:          append([]schema.ForeignKeyRef{}, raw.ForeignKeys...),
		UniqueConstraints:    raw.UniqueConstraints,
		ForeignKeyReferences: append([]schema.InboundReference{}, raw.ForeignKeyReferences...),
	}
	ts.BusinessRules = rules.DeriveRules(columns)
	ts.ErrorCodes = rules.GenerateErrorCodes(raw.Name, ts)
	ts.Capabilities = computeCapabilities(ts)
	return ts
}

// ClassifyColumns runs the per-column stages (constraint extraction,
// classification, filtering) over a raw table. Foreign-key columns are
// returned without DropdownInfo.
func ClassifyColumns(raw *schema.CatalogTable) []schema.EnrichedColumn {
	columns := make([]schema.EnrichedColumn, 0, len(raw.Columns))
	for _, col := range raw.Columns {
		meta := constraint.CreateConstraintMetadata(constraint.Input{
			Column:       col,
			DeclaredEnum: raw.EnumValues[col.Name],
			CheckClauses: raw.CheckClauses[col.Name],
		})
		enumish := meta.Kind == schema.ConstraintEnum || meta.Kind == schema.ConstraintCheck
		decision := classifier.Resolve(col, col.IsForeignKey, enumish)

		columns = append(columns, schema.EnrichedColumn{
			Column:            col,
			FieldType:         decision.Kind,
			Constraint:        meta,
			FilteringStrategy: filtering.ResolveStrategy(col, decision.Kind),
			NeedsReview:       decision.NeedsReview() || (meta.Kind != schema.ConstraintUnknown && meta.ConfidenceScore < constraint.ConfidenceDeclaredEnum),
		})
	}
	return columns
}

func computeCapabilities(ts *schema.TableSchema) schema.Capabilities {
	c := schema.Capabilities{
		TotalFields:          len(ts.Columns),
		HasPrimaryKey:        len(ts.PrimaryKeys) > 0,
		HasUniqueConstraints: len(ts.UniqueConstraints.SingleField)+len(ts.UniqueConstraints.Composite) > 0,
		IsReferenced:         len(ts.ForeignKeyReferences) > 0,
		BusinessRuleCount:    len(ts.BusinessRules),
	}
	for _, col := range ts.Columns {
		switch col.FieldType {
		case schema.KindForeignKeyDropdown:
			c.ForeignKeyCount++
			if col.DropdownInfo == nil || !col.DropdownInfo.HasEndpoint {
				c.MissingLookupEndpoints++
			}
		case schema.KindEnumSelect:
			c.EnumFieldCount++
		case schema.KindAuditTimestamp:
			c.HasAuditTimestamps = true
		case schema.KindAuditUser:
			c.HasAuditUsers = true
		case schema.KindFile, schema.KindImage:
			c.HasFileUploads = true
		}
		if col.Name == "deleted_at" || col.Name == "is_deleted" {
			c.HasSoftDelete = true
		}
		if filtering.IsFilterable(col.FilteringStrategy) {
			c.FilterableFieldCount++
		}
		if filtering.IsSearchable(col.FilteringStrategy) {
			c.SearchableFieldCount++
		}
		if col.NeedsReview {
			c.FieldsNeedingReview++
		}
	}
	c.HasForeignKeys = c.ForeignKeyCount > 0
	c.HasEnums = c.EnumFieldCount > 0
	return c
}

// ListTables returns the catalog's tables, restricted to the keys of
// tableFilters when any are given.
func (s *Service) ListTables(ctx context.Context, tableFilters map[string][]string) ([]string, error) {
	tables, err := s.catalog.ListTables(ctx)
	if err != nil {
		return nil, &CatalogAccessError{Table: "*", Op: "list tables", Err: err}
	}
	return filterTables(tables, tableFilters), nil
}

func filterTables(allTables []string, tableFilters map[string][]string) []string {
	if len(tableFilters) == 0 {
		return allTables
	}
	filtered := make([]string, 0, len(tableFilters))
	allowed := make(map[string]bool)
	for table := range tableFilters {
		allowed[table] = true
	}
	for _, table := range allTables {
		if allowed[table] {
			filtered = append(filtered, table)
		}
	}
	sort.Strings(filtered)
	return filtered
}
