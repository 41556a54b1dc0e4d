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
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigName is the base name of the optional configuration file.
	ConfigName = ".db_schema_introspector"
	// EnvPrefix prefixes every environment variable read by Load.
	EnvPrefix = "DBSI"
)

// SupportedDialects lists the dialect names accepted in DatabaseConfig.Dialect.
var SupportedDialects = []string{
	"postgres", "cloudsqlpostgres",
	"mysql", "cloudsqlmysql",
	"sqlserver", "cloudsqlsqlserver",
	"sqlite",
}

// Config holds all configuration for the application
type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	Introspection IntrospectionConfig `mapstructure:"introspection"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Server        ServerConfig        `mapstructure:"server"`
	GeminiAPIKey  string              `mapstructure:"gemini_api_key"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Dialect                        string `mapstructure:"dialect"`
	Host                           string `mapstructure:"host"`
	Port                           int    `mapstructure:"port"`
	User                           string `mapstructure:"user"`
	Password                       string `mapstructure:"password"`
	DBName                         string `mapstructure:"dbname"`
	SSLMode                        string `mapstructure:"sslmode"`
	CloudSQLInstanceConnectionName string `mapstructure:"cloudsql_instance_connection_name"`
	UsePrivateIP                   bool   `mapstructure:"use_private_ip"`
	MaxOpenConns                   int    `mapstructure:"max_open_conns"`
	ConnectRetries                 int    `mapstructure:"connect_retries"`
}

// IntrospectionConfig bounds foreign-key expansion.
type IntrospectionConfig struct {
	// MaxDepth is how many levels of referenced tables are expanded. Zero
	// keeps dropdown metadata but never embeds referenced schemas.
	MaxDepth           int    `mapstructure:"max_depth"`
	MaxConcurrentReads int    `mapstructure:"max_concurrent_reads"`
	EndpointPattern    string `mapstructure:"endpoint_pattern"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Dialect:        "postgres",
			Host:           "localhost",
			Port:           5432,
			SSLMode:        "disable",
			MaxOpenConns:   10,
			ConnectRetries: 3,
		},
		Introspection: IntrospectionConfig{
			MaxDepth:           2,
			MaxConcurrentReads: 8,
			EndpointPattern:    "/api/%s/options",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// SetDefaults registers every key of Default on v so that environment
// variables and bound flags are visible to Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("database.dialect", d.Database.Dialect)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "")
	v.SetDefault("database.sslmode", d.Database.SSLMode)
	v.SetDefault("database.cloudsql_instance_connection_name", "")
	v.SetDefault("database.use_private_ip", false)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.connect_retries", d.Database.ConnectRetries)
	v.SetDefault("introspection.max_depth", d.Introspection.MaxDepth)
	v.SetDefault("introspection.max_concurrent_reads", d.Introspection.MaxConcurrentReads)
	v.SetDefault("introspection.endpoint_pattern", d.Introspection.EndpointPattern)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("gemini_api_key", "")
}

// Load reads configuration from defaults, an optional YAML file, DBSI_*
// environment variables and any flags already bound on v, in increasing
// order of precedence. configFile may be empty, in which case
// .db_schema_introspector.yaml is looked up in the working directory and
// then in $HOME.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("gemini_api_key", EnvPrefix+"_GEMINI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind gemini api key: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsSupportedDialect reports whether dialect is one of SupportedDialects.
func IsSupportedDialect(dialect string) bool {
	for _, d := range SupportedDialects {
		if d == dialect {
			return true
		}
	}
	return false
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if !IsSupportedDialect(c.Database.Dialect) {
		return fmt.Errorf("invalid dialect: %q. Supported dialects are: %s", c.Database.Dialect, strings.Join(SupportedDialects, ", "))
	}
	if c.Database.Port < 0 {
		return fmt.Errorf("invalid port: %d", c.Database.Port)
	}
	if c.Database.ConnectRetries < 1 {
		return fmt.Errorf("connect_retries must be positive, got %d", c.Database.ConnectRetries)
	}
	if c.Introspection.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative, got %d", c.Introspection.MaxDepth)
	}
	if c.Introspection.MaxConcurrentReads < 1 {
		return fmt.Errorf("max_concurrent_reads must be positive, got %d", c.Introspection.MaxConcurrentReads)
	}
	if strings.Count(c.Introspection.EndpointPattern, "%s") != 1 {
		return fmt.Errorf("endpoint_pattern must contain exactly one %%s, got %q", c.Introspection.EndpointPattern)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	return nil
}
