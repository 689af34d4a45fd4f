package cli

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/sluicedb/sluice/internal/config"
	"github.com/sluicedb/sluice/internal/configstore"
	"github.com/sluicedb/sluice/internal/connector"
	"github.com/sluicedb/sluice/internal/connector/mssql"
	"github.com/sluicedb/sluice/internal/connector/mysql"
	"github.com/sluicedb/sluice/internal/connector/postgres"
	"github.com/sluicedb/sluice/internal/connector/sqlite"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from --data-dir flag,
// SLUICE_DATA_DIR env var, or ~/.sluice as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("SLUICE_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return home + "/.sluice"
}

// loadGatewayConfig returns the parsed sluice.yaml when viper located one,
// or the built-in defaults otherwise. The bool reports whether a file was
// actually loaded. Parsing goes through config.LoadYAMLConfig so ${VAR}
// references in the file are expanded.
func loadGatewayConfig() (*config.YAMLConfig, bool, error) {
	path := viper.ConfigFileUsed()
	if path == "" {
		return config.DefaultYAMLConfig(), false, nil
	}
	cfg, err := config.LoadYAMLConfig(path)
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", path, err)
	}
	return cfg, true, nil
}

// openConfigStore opens the SQLite config store in the data directory.
func openConfigStore() (*configstore.Store, error) {
	return configstore.Open(configstore.DriverSQLite, resolveDataDir())
}

// newRegistry creates a connector registry with all supported tenant
// database drivers registered.
func newRegistry() *connector.Registry {
	registry := connector.NewRegistry()
	registry.RegisterDriver("postgres", postgres.New)
	registry.RegisterDriver("mysql", mysql.New)
	registry.RegisterDriver("mssql", mssql.New)
	registry.RegisterDriver("sqlite", sqlite.New)
	return registry
}
