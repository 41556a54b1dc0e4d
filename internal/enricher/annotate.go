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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/genai"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/schema"
)

// Annotate fills Description for the named columns of ts (every column
// when columns is empty) from knowledgeContext. It does nothing without an
// LLM client or context. Failures are logged and the column is left as is.
func (s *Service) Annotate(ctx context.Context, ts *schema.TableSchema, columns []string, knowledgeContext string) {
	if s.llmClient == nil || ts == nil || knowledgeContext == "" {
		return
	}
	wanted := make(map[string]bool, len(columns))
	for _, c := range columns {
		wanted[c] = true
	}

	var g errgroup.Group
	g.SetLimit(max(1, s.cfg.MaxConcurrentReads))
	for i := range ts.Columns {
		col := &ts.Columns[i]
		if len(wanted) > 0 && !wanted[col.Name] {
			continue
		}
		field := genai.FieldInfo{
			Table:    ts.TableName,
			Column:   col.Name,
			DataType: col.DataType,
			Kind:     col.FieldType.String(),
		}
		if col.Constraint != nil {
			field.Values = col.Constraint.Values
		}
		g.Go(func() error {
			desc, err := s.llmClient.GenerateFieldDescription(ctx, field, knowledgeContext)
			if err != nil {
				s.logger.Warn("failed to generate column description",
					zap.String("table", ts.TableName),
					zap.String("column", field.Column),
					zap.Error(err))
				return nil
			}
			if desc != "" {
				col.Description = desc
			}
			return nil
		})
	}
	_ = g.Wait()
}
