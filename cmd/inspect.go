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
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/enricher"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/schema"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/utils"
)

var (
	inspectTables  string
	inspectFormat  string
	inspectOutput  string
	inspectContext string
	inspectForce   bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Write enhanced schemas for database tables",
	Long: `Reads the catalog of the selected tables (all tables by default), classifies
every column and writes the enhanced schemas as JSON or YAML. With --context,
column descriptions are generated from the given knowledge files.`,
	Example: `./db_schema_introspector inspect --dialect postgres --username user --password pass --database mydb --tables "orders,customers" --format yaml --output -`,
	RunE:    runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	format, err := utils.ParseFormat(inspectFormat)
	if err != nil {
		return err
	}
	tableFilters, err := utils.ParseTablesFlag(inspectTables)
	if err != nil {
		return fmt.Errorf("invalid --tables value: %w", err)
	}
	knowledgeContext, err := utils.ReadContextFiles(inspectContext)
	if err != nil {
		return err
	}

	outputFile := inspectOutput
	if outputFile == "" {
		outputFile = utils.GetDefaultOutputFilePath(appConfig.Database.DBName, format)
	}
	if outputFile != "-" && !inspectForce && !utils.ConfirmOverwrite(outputFile, os.Stdin, os.Stdout) {
		logger.Info("inspect cancelled, output file kept", zap.String("output", outputFile))
		return nil
	}

	ctx := cmd.Context()
	startTime := time.Now()
	logger.Info("starting inspect operation",
		zap.String("dialect", appConfig.Database.Dialect),
		zap.String("database", appConfig.Database.DBName))

	db, err := setupDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	llm, err := setupLLM(ctx, knowledgeContext)
	if err != nil {
		return fmt.Errorf("failed to set up description generation: %w", err)
	}
	if llm != nil {
		defer llm.Close()
	}

	svc := newService(db, llm)
	schemas, err := collectSchemas(ctx, svc, tableFilters)
	if err != nil {
		return err
	}
	for _, ts := range schemas {
		svc.Annotate(ctx, ts, tableFilters[ts.TableName], knowledgeContext)
	}

	if outputFile == "-" {
		if err := utils.WriteSchemas(cmd.OutOrStdout(), schemas, format); err != nil {
			return err
		}
	} else {
		if err := utils.WriteSchemasToFile(outputFile, schemas, format); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Enhanced schemas written to: %s\n", outputFile)
	}

	logReviewCounts(schemas)
	logger.Info("inspect operation completed",
		zap.Int("tables", len(schemas)),
		zap.Duration("elapsed", time.Since(startTime)))
	return nil
}

// collectSchemas assembles every selected table. Tables that no longer
// exist are skipped with a warning.
func collectSchemas(ctx context.Context, svc *enricher.Service, tableFilters map[string][]string) ([]*schema.TableSchema, error) {
	tables, err := svc.ListTables(ctx, tableFilters)
	if err != nil {
		return nil, err
	}
	for name := range tableFilters {
		if !contains(tables, name) {
			logger.Warn("requested table not found in catalog", zap.String("table", name))
		}
	}

	schemas := make([]*schema.TableSchema, 0, len(tables))
	for _, table := range tables {
		ts, err := svc.GetEnhancedSchema(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
		}
		if ts == nil {
			logger.Warn("table disappeared while inspecting", zap.String("table", table))
			continue
		}
		schemas = append(schemas, ts)
	}
	return schemas, nil
}

func logReviewCounts(schemas []*schema.TableSchema) {
	for _, ts := range schemas {
		if ts.Capabilities.FieldsNeedingReview == 0 {
			continue
		}
		var fields []string
		for _, col := range ts.Columns {
			if col.NeedsReview {
				fields = append(fields, col.Name)
			}
		}
		logger.Info("fields need manual review",
			zap.String("table", ts.TableName),
			zap.Int("count", ts.Capabilities.FieldsNeedingReview),
			zap.Strings("fields", fields))
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func init() {
	inspectCmd.Flags().StringVar(&inspectTables, "tables", "", "Comma-separated tables to inspect, optionally with columns to describe: users,orders[id,status]")
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "json", "Output format (json or yaml)")
	inspectCmd.Flags().StringVarP(&inspectOutput, "output", "o", "", "Output file, or - for stdout (defaults to <database>_schema.<format>)")
	inspectCmd.Flags().StringVar(&inspectContext, "context", "", "Comma-separated knowledge files used to generate column descriptions")
	inspectCmd.Flags().BoolVar(&inspectForce, "force", false, "Overwrite the output file without asking")
}
