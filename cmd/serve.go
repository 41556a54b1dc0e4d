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
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve enhanced schemas over HTTP",
	Long: `Starts a read-only HTTP server:
  GET /healthz          database reachability
  GET /tables           table names
  GET /tables/{table}   enhanced schema of one table (404 when absent)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		db, err := setupDatabase(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		router := server.NewRouter(newService(db, nil), db, logger)
		return server.Serve(ctx, appConfig.Server.Addr, router, logger.Named("server"))
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	if err := v.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr")); err != nil {
		panic(err)
	}
}
