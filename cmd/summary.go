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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/report"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/utils"
)

var (
	summaryTables  string
	summaryNoColor bool
)

var summaryCmd = &cobra.Command{
	Use:     "summary",
	Short:   "Print a per-column classification table",
	Example: `./db_schema_introspector summary --dialect mysql --username root --database shop --tables orders`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tableFilters, err := utils.ParseTablesFlag(summaryTables)
		if err != nil {
			return fmt.Errorf("invalid --tables value: %w", err)
		}

		ctx := cmd.Context()
		db, err := setupDatabase(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		schemas, err := collectSchemas(ctx, newService(db, nil), tableFilters)
		if err != nil {
			return err
		}
		printer := report.NewPrinter(cmd.OutOrStdout(), report.Options{NoColor: summaryNoColor})
		for i, ts := range schemas {
			if i > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			printer.PrintTable(ts)
		}
		logReviewCounts(schemas)
		return nil
	},
}

func init() {
	summaryCmd.Flags().StringVar(&summaryTables, "tables", "", "Comma-separated tables to summarize (all tables by default)")
	summaryCmd.Flags().BoolVar(&summaryNoColor, "no-color", false, "Disable colored output")
}
