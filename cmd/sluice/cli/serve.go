package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sluicedb/sluice/internal/config"
	"github.com/sluicedb/sluice/internal/configstore"
	"github.com/sluicedb/sluice/internal/router"
	"github.com/sluicedb/sluice/internal/server"
	"github.com/sluicedb/sluice/internal/service"
)

func newServeCmd() *cobra.Command {
	var dev bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Sluice gateway server",
		Long:  "Start the HTTP server that replicates integrator payloads and executes SQL against tenant databases.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(dev)
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "HTTP listen port")
	cmd.Flags().String("host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(dev bool) error {
	cfg, haveFile, err := loadGatewayConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Logging, dev)
	if haveFile {
		logger.Info("configuration loaded", "file", viper.ConfigFileUsed())
	}

	// 1. Open the tenant config store. Env and flags go through viper;
	// the YAML file supplies the rest. Absent both, the store lives in
	// the data directory alongside the CLI's.
	storeDriver := viper.GetString("store.driver")
	storeDSN := viper.GetString("store.dsn")
	if haveFile && cfg.Store.Driver != "" {
		storeDriver = cfg.Store.Driver
		storeDSN = cfg.Store.DSN
	}
	if storeDriver == "" || storeDriver == configstore.DriverSQLite && storeDSN == "" {
		storeDriver = configstore.DriverSQLite
		storeDSN = resolveDataDir()
	}
	store, err := configstore.Open(storeDriver, storeDSN)
	if err != nil {
		return fmt.Errorf("init config store: %w", err)
	}
	defer store.Close()
	logger.Info("config store initialized", "driver", storeDriver)

	// 2. Connector registry with all tenant drivers.
	registry := newRegistry()
	logger.Info("connector registry initialized",
		"drivers", []string{"postgres", "mysql", "mssql", "sqlite"})

	// 3. Tenant router: connections open lazily on first request.
	tenants := router.New(store, registry, logger)

	// 4. Auth service.
	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = viper.GetString("auth.jwt_secret")
	}
	if jwtSecret == "" {
		jwtSecret = "sluice-dev-secret-change-me"
		logger.Warn("auth.jwt_secret not set, using development default")
	}
	authSvc := service.NewAuthService(store, jwtSecret)

	// 5. Build and start the HTTP server.
	srvCfg := server.DefaultConfig()
	srvCfg.Host = viper.GetString("server.host")
	srvCfg.Port = viper.GetInt("server.port")
	srvCfg.ShutdownTimeout = cfg.ShutdownTimeoutDuration()
	maxBody, err := cfg.MaxBodyBytes()
	if err != nil {
		return fmt.Errorf("server.max_body_size: %w", err)
	}
	srvCfg.MaxBodySize = maxBody
	if origins := cfg.Server.CORS.Origins; len(origins) > 0 {
		srvCfg.CORSOrigins = origins
	}
	scheme := "http"
	if cfg.Server.TLS.Enabled {
		srvCfg.TLSCertFile = cfg.Server.TLS.CertFile
		srvCfg.TLSKeyFile = cfg.Server.TLS.KeyFile
		scheme = "https"
	}

	srv := server.New(srvCfg, registry, store, tenants, authSvc, logger)

	fmt.Printf("→ Sluice gateway\n")
	fmt.Printf("→ Listening on %s://%s:%d\n", scheme, srvCfg.Host, srvCfg.Port)
	fmt.Printf("→ Health:    %s://%s:%d/healthz\n", scheme, srvCfg.Host, srvCfg.Port)
	fmt.Println()

	return srv.ListenAndServe()
}

// newLogger builds the process logger from the logging section; --dev
// forces debug level regardless of the file.
func newLogger(lc config.LoggingConfig, dev bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if dev {
		level = slog.LevelDebug
	}

	format := lc.Format
	if f := viper.GetString("logging.format"); f != "" {
		format = f
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
