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
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/config"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/database"
	_ "github.com/GoogleCloudPlatform/db-schema-introspector/internal/database/mysql"
	_ "github.com/GoogleCloudPlatform/db-schema-introspector/internal/database/postgres"
	_ "github.com/GoogleCloudPlatform/db-schema-introspector/internal/database/sqlite"
	_ "github.com/GoogleCloudPlatform/db-schema-introspector/internal/database/sqlserver"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/enricher"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/genai"
	"github.com/GoogleCloudPlatform/db-schema-introspector/internal/logging"
)

var (
	configFile string

	v         = viper.New()
	appConfig *config.Config
	logger    = zap.NewNop()
)

// flagBindings maps persistent flags to their configuration keys.
var flagBindings = map[string]string{
	"dialect":                           "database.dialect",
	"host":                              "database.host",
	"port":                              "database.port",
	"username":                          "database.user",
	"password":                          "database.password",
	"database":                          "database.dbname",
	"sslmode":                           "database.sslmode",
	"cloudsql-instance-connection-name": "database.cloudsql_instance_connection_name",
	"cloudsql-use-private-ip":           "database.use_private_ip",
	"max-depth":                         "introspection.max_depth",
	"max-concurrent-reads":              "introspection.max_concurrent_reads",
	"endpoint-pattern":                  "introspection.endpoint_pattern",
	"log-level":                         "logging.level",
	"log-format":                        "logging.format",
	"gemini-api-key":                    "gemini_api_key",
}

var rootCmd = &cobra.Command{
	Use:   "db_schema_introspector",
	Short: "A tool to derive form and API metadata from database schemas",
	Long: `db_schema_introspector reads a relational database's catalog and classifies
every column into a semantic field kind, with value domains, filtering
strategies, foreign-key dropdowns, business rules and error codes.`,
	SilenceUsage:      true,
	PersistentPreRunE: initFlagsAndConfig,
}

// initFlagsAndConfig loads configuration from file, environment and flags
// and installs the global logger.
func initFlagsAndConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return err
	}
	appConfig = cfg

	l, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	logger = l
	zap.ReplaceGlobals(logger)
	return nil
}

func setupDatabase(ctx context.Context) (*database.DB, error) {
	if appConfig == nil {
		return nil, fmt.Errorf("configuration is not initialized")
	}
	db, err := database.New(ctx, appConfig.Database)
	if err != nil {
		logger.Error("failed to connect to database",
			zap.String("dialect", appConfig.Database.Dialect),
			zap.String("database", appConfig.Database.DBName),
			zap.Error(err))
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// setupLLM returns a Gemini client, or nil when no context was requested.
func setupLLM(ctx context.Context, knowledgeContext string) (genai.LLMClient, error) {
	if knowledgeContext == "" {
		return nil, nil
	}
	client, err := genai.NewClient(ctx, genai.Config{APIKey: appConfig.GeminiAPIKey})
	if err != nil {
		return nil, err
	}
	if err := client.IsAPIKeyValid(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func newService(db *database.DB, llm genai.LLMClient) *enricher.Service {
	return enricher.NewService(db, llm, appConfig.Introspection, logger)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

func init() {
	d := config.Default()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&configFile, "config", "", "Config file (default is ./"+config.ConfigName+".yaml or $HOME/"+config.ConfigName+".yaml)")

	// Database connection flags
	flags.String("dialect", d.Database.Dialect, fmt.Sprintf("Database dialect (%s)", strings.Join(config.SupportedDialects, ", ")))
	flags.String("host", d.Database.Host, "Database host")
	flags.Int("port", d.Database.Port, "Database port")
	flags.String("username", "", "Database username")
	flags.String("password", "", "Database password")
	flags.String("database", "", "Database name (file path for sqlite)")
	flags.String("sslmode", d.Database.SSLMode, "Postgres SSL mode")
	flags.String("cloudsql-instance-connection-name", "", "Cloud SQL instance connection name (for Cloud SQL dialects)")
	flags.Bool("cloudsql-use-private-ip", false, "Use private IP for Cloud SQL connection (Cloud SQL)")

	// Introspection flags
	flags.Int("max-depth", d.Introspection.MaxDepth, "Levels of referenced tables to embed in foreign-key dropdowns")
	flags.Int("max-concurrent-reads", d.Introspection.MaxConcurrentReads, "Maximum concurrent catalog queries")
	flags.String("endpoint-pattern", d.Introspection.EndpointPattern, "Lookup endpoint pattern; %s is replaced by the table name")

	flags.String("log-level", d.Logging.Level, "Log level (debug, info, warn, error)")
	flags.String("log-format", d.Logging.Format, "Log format (console or json)")

	// Gemini API Key flag
	flags.String("gemini-api-key", "", "Gemini API key (can also be set via GEMINI_API_KEY environment variable)")

	for name, key := range flagBindings {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", name, err))
		}
	}

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(listTablesCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(serveCmd)
}
